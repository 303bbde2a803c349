package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"strings"
)

// ANSI escapes.
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorCyan   = "\033[36m"
	colorWhite  = "\033[37m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

// colorEnabled controls whether ANSI colors are used.
var colorEnabled = true

// DisableColors disables ANSI color output.
func DisableColors() {
	colorEnabled = false
}

// EnableColors enables ANSI color output.
func EnableColors() {
	colorEnabled = true
}

func color(code, text string) string {
	if !colorEnabled {
		return text
	}
	return code + text + colorReset
}

func red(text string) string    { return color(colorRed, text) }
func green(text string) string  { return color(colorGreen, text) }
func yellow(text string) string { return color(colorYellow, text) }
func blue(text string) string   { return color(colorBlue, text) }
func cyan(text string) string   { return color(colorCyan, text) }
func white(text string) string  { return color(colorWhite, text) }
func gray(text string) string   { return color(colorGray, text) }
func bold(text string) string   { return color(colorBold, text) }

// printer accumulates indented report lines.
type printer struct {
	b strings.Builder
}

func (p *printer) line(indent int, parts ...string) {
	p.b.WriteString(strings.Repeat(" ", indent))
	for _, s := range parts {
		p.b.WriteString(s)
	}
	p.b.WriteByte('\n')
}

func (p *printer) blank() { p.b.WriteByte('\n') }

// Format renders the error for a terminal: header, document excerpt, tree
// path, cause, detail, hint, example and documentation link.
func (e *AirsetError) Format() string {
	p := &printer{}
	p.blank()
	if e.Code != "" {
		p.line(0, red(bold("ERROR ")), white(bold(e.Code+": ")), white(e.Message))
	} else {
		p.line(0, red(bold("ERROR: ")), white(e.Message))
	}
	p.blank()

	if e.Location != nil {
		p.line(2, cyan(e.Location.String()))
		p.blank()
		e.formatContext(p)
	}
	if e.Path != "" {
		p.line(2, gray("at "), yellow(e.Path))
		p.blank()
	}
	if e.Wrapped != nil {
		p.line(2, e.Wrapped.Error())
		p.blank()
	}
	if lines := wrapText(e.Detail, 70); len(lines) > 0 {
		for _, l := range lines {
			p.line(2, l)
		}
		p.blank()
	}
	if e.Suggestion != "" {
		p.line(2, cyan("Hint: "), e.Suggestion)
		p.blank()
	}
	if e.Example != "" {
		p.line(2, cyan("Example:"))
		for _, l := range strings.Split(e.Example, "\n") {
			p.line(4, l)
		}
		p.blank()
	}
	if e.DocURL != "" {
		p.line(2, gray("Learn more: "), blue(e.DocURL))
	}
	return p.b.String()
}

// formatContext prints the document lines around the location, marking the
// failing line and, when known, the column.
func (e *AirsetError) formatContext(p *printer) {
	if len(e.Context) == 0 {
		return
	}
	first := e.Location.Line - len(e.Context)/2
	for i, text := range e.Context {
		n := first + i
		number := fmt.Sprintf("%4d", n) + gray(" │ ")
		if n != e.Location.Line {
			p.line(4, number, text)
			continue
		}
		p.line(2, red("→ "), number, text)
		if col := e.Location.Column; col > 0 {
			p.line(7, gray("│ "), strings.Repeat(" ", col-1), red("^"))
		}
	}
	p.blank()
}

// FormatCompact returns a compact single-line error format.
func (e *AirsetError) FormatCompact() string {
	var b strings.Builder

	if e.Location != nil {
		b.WriteString(e.Location.String())
		b.WriteString(": ")
	}

	if e.Code != "" {
		b.WriteString(e.Code)
		b.WriteString(": ")
	}

	b.WriteString(e.Message)

	if e.Path != "" {
		b.WriteString(" at ")
		b.WriteString(e.Path)
	}
	if e.Wrapped != nil {
		b.WriteString(": ")
		b.WriteString(e.Wrapped.Error())
	}

	return b.String()
}

// jsonError is the wire shape of FormatJSON and MarshalJSON.
type jsonError struct {
	Code       string    `json:"code,omitempty"`
	Category   Category  `json:"category"`
	Message    string    `json:"message"`
	Detail     string    `json:"detail,omitempty"`
	Location   *Location `json:"location,omitempty"`
	Path       string    `json:"path,omitempty"`
	Suggestion string    `json:"suggestion,omitempty"`
	DocURL     string    `json:"docUrl,omitempty"`
	Cause      string    `json:"cause,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (e *AirsetError) MarshalJSON() ([]byte, error) {
	je := jsonError{
		Code:       e.Code,
		Category:   e.Category,
		Message:    e.Message,
		Detail:     e.Detail,
		Location:   e.Location,
		Path:       e.Path,
		Suggestion: e.Suggestion,
		DocURL:     e.DocURL,
	}
	if e.Wrapped != nil {
		je.Cause = e.Wrapped.Error()
	}
	return json.Marshal(je)
}

// FormatJSON returns the error as a JSON object.
func (e *AirsetError) FormatJSON() string {
	data, err := e.MarshalJSON()
	if err != nil {
		return fmt.Sprintf(`{"message":%q}`, e.Message)
	}
	return string(data)
}

// wrapText breaks text into lines of at most width bytes at word
// boundaries. A single word longer than width gets a line of its own.
func wrapText(text string, width int) []string {
	var lines []string
	cur := ""
	for _, word := range strings.Fields(text) {
		switch {
		case cur == "":
			cur = word
		case len(cur)+1+len(word) > width:
			lines = append(lines, cur)
			cur = word
		default:
			cur += " " + word
		}
	}
	if cur != "" {
		lines = append(lines, cur)
	}
	return lines
}

// PrintError writes err to w, using Format when err is or wraps an
// *AirsetError.
func PrintError(w io.Writer, err error) {
	var ae *AirsetError
	if stderrors.As(err, &ae) {
		fmt.Fprint(w, ae.Format())
		return
	}
	fmt.Fprintf(w, "\n%s %s\n\n", red(bold("ERROR:")), err.Error())
}
