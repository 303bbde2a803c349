package errors

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strconv"
)

// Category represents the type of error.
type Category string

const (
	CategoryStore     Category = "store"
	CategoryTask      Category = "task"
	CategoryInput     Category = "input"
	CategoryInspector Category = "inspector"
	CategoryConfig    Category = "config"
	CategoryCLI       Category = "cli"
)

// Location represents a position in an input document.
type Location struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Column int    `json:"column,omitempty"`
}

// String returns the location as a formatted string.
func (l *Location) String() string {
	if l == nil {
		return ""
	}
	if l.Column > 0 {
		return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// AirsetError is a structured error with an optional document location, a
// tree path, suggestions and documentation.
type AirsetError struct {
	Code     string // registry code such as "E001"; empty for ad-hoc errors
	Category Category
	Message  string // one-line summary
	Detail   string

	// Location and Context point into an input document.
	Location *Location
	Context  []string

	Path       string // tree path, if the error concerns one node
	Suggestion string
	Example    string
	DocURL     string
	Wrapped    error
}

// Error implements the error interface.
func (e *AirsetError) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *AirsetError) Unwrap() error {
	return e.Wrapped
}

// Is reports whether target is an *AirsetError with the same code.
func (e *AirsetError) Is(target error) bool {
	t, ok := target.(*AirsetError)
	return ok && t.Code != "" && t.Code == e.Code
}

// WithLocation adds a document location to the error.
func (e *AirsetError) WithLocation(file string, line, column int) *AirsetError {
	e.Location = &Location{File: file, Line: line, Column: column}
	e.Context = readContextLines(file, line, 5)
	return e
}

// decoder errors look like "yaml: line 3: ..." or "line 3, column 7: ...".
var lineRe = regexp.MustCompile(`line (\d+)(?:, column (\d+))?`)

// WithLocationFromError extracts a line (and column, if present) from a
// decoder error message and attaches it as the location in file.
func (e *AirsetError) WithLocationFromError(file string, err error) *AirsetError {
	if err == nil {
		return e
	}
	m := lineRe.FindStringSubmatch(err.Error())
	if m == nil {
		return e
	}
	line, _ := strconv.Atoi(m[1])
	col := 0
	if m[2] != "" {
		col, _ = strconv.Atoi(m[2])
	}
	if line > 0 {
		e.WithLocation(file, line, col)
	}
	return e
}

// The With* builders and Wrap set one field and return e for chaining.

// WithPath records the tree path the error refers to.
func (e *AirsetError) WithPath(p string) *AirsetError {
	e.Path = p
	return e
}

func (e *AirsetError) WithSuggestion(s string) *AirsetError {
	e.Suggestion = s
	return e
}

func (e *AirsetError) WithExample(ex string) *AirsetError {
	e.Example = ex
	return e
}

func (e *AirsetError) WithDetail(d string) *AirsetError {
	e.Detail = d
	return e
}

func (e *AirsetError) Wrap(err error) *AirsetError {
	e.Wrapped = err
	return e
}

// readContextLines returns up to size lines of filename centred on line.
// Unreadable files yield no context.
func readContextLines(filename string, line, size int) []string {
	f, err := os.Open(filename)
	if err != nil {
		return nil
	}
	defer f.Close()

	from, to := line-size/2, line+size/2
	var out []string
	sc := bufio.NewScanner(f)
	for n := 1; sc.Scan() && n <= to; n++ {
		if n >= from {
			out = append(out, sc.Text())
		}
	}
	return out
}

// New returns a fresh error for a registered code. Unregistered codes get
// the message "Unknown error".
func New(code string) *AirsetError {
	e := &AirsetError{Code: code, Message: "Unknown error"}
	if t, ok := registry[code]; ok {
		e.Category, e.Message, e.Detail, e.DocURL = t.Category, t.Message, t.Detail, t.DocURL
	}
	return e
}

// Newf creates a new AirsetError with a formatted message (no code).
func Newf(category Category, format string, args ...any) *AirsetError {
	return &AirsetError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps a standard error in an AirsetError.
func FromError(err error, code string) *AirsetError {
	if err == nil {
		return nil
	}
	if ae, ok := err.(*AirsetError); ok {
		return ae
	}
	return New(code).Wrap(err)
}

// Code returns the code of the first AirsetError in err's chain, or "".
func Code(err error) string {
	for err != nil {
		if ae, ok := err.(*AirsetError); ok && ae.Code != "" {
			return ae.Code
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return ""
		}
		err = u.Unwrap()
	}
	return ""
}
