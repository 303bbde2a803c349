package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantMsg string
		wantCat Category
	}{
		{
			name:    "store error",
			code:    "E001",
			wantMsg: "Store destroyed",
			wantCat: CategoryStore,
		},
		{
			name:    "task error",
			code:    "E010",
			wantMsg: "Task panicked",
			wantCat: CategoryTask,
		},
		{
			name:    "input error",
			code:    "E041",
			wantMsg: "Document could not be decoded",
			wantCat: CategoryInput,
		},
		{
			name:    "unknown error code",
			code:    "E999",
			wantMsg: "Unknown error",
			wantCat: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code)
			if err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", err.Message, tt.wantMsg)
			}
			if err.Category != tt.wantCat {
				t.Errorf("Category = %q, want %q", err.Category, tt.wantCat)
			}
			if err.Code != tt.code {
				t.Errorf("Code = %q, want %q", err.Code, tt.code)
			}
		})
	}
}

func TestNewf(t *testing.T) {
	err := Newf(CategoryInput, "file %q not found", "state.json")
	if err.Message != `file "state.json" not found` {
		t.Errorf("Message = %q, want %q", err.Message, `file "state.json" not found`)
	}
	if err.Category != CategoryInput {
		t.Errorf("Category = %q, want %q", err.Category, CategoryInput)
	}
}

func TestAirsetError_Error(t *testing.T) {
	err := New("E001")
	if got, want := err.Error(), "E001: Store destroyed"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	err2 := &AirsetError{Message: "test error"}
	if err2.Error() != "test error" {
		t.Errorf("Error() = %q, want %q", err2.Error(), "test error")
	}

	err3 := New("E011").Wrap(fmt.Errorf("boom"))
	if got, want := err3.Error(), "E011: Task failed: boom"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestAirsetError_WithLocation(t *testing.T) {
	tmpDir := t.TempDir()
	tmpFile := filepath.Join(tmpDir, "state.yaml")
	content := "users:\n  - name: ada\n   age: 36\n  - name: grace\n"
	if err := os.WriteFile(tmpFile, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	err := New("E041").WithLocation(tmpFile, 3, 4)

	if err.Location == nil {
		t.Fatal("Location is nil")
	}
	if err.Location.File != tmpFile {
		t.Errorf("Location.File = %q, want %q", err.Location.File, tmpFile)
	}
	if err.Location.Line != 3 || err.Location.Column != 4 {
		t.Errorf("Location = %d:%d, want 3:4", err.Location.Line, err.Location.Column)
	}
	if len(err.Context) == 0 {
		t.Error("Context should not be empty")
	}
}

func TestAirsetError_WithLocationFromError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantLine int
		wantCol  int
		wantNil  bool
	}{
		{"yaml style", fmt.Errorf("yaml: line 3: did not find expected key"), 3, 0, false},
		{"line and column", fmt.Errorf("line 7, column 12: unexpected token"), 7, 12, false},
		{"no position", fmt.Errorf("unexpected end of JSON input"), 0, 0, true},
		{"nil error", nil, 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New("E041").WithLocationFromError("doc.yaml", tt.err)
			if tt.wantNil {
				if err.Location != nil {
					t.Errorf("Location = %v, want nil", err.Location)
				}
				return
			}
			if err.Location == nil {
				t.Fatal("Location is nil")
			}
			if err.Location.Line != tt.wantLine || err.Location.Column != tt.wantCol {
				t.Errorf("Location = %d:%d, want %d:%d",
					err.Location.Line, err.Location.Column, tt.wantLine, tt.wantCol)
			}
		})
	}
}

func TestAirsetError_Builders(t *testing.T) {
	err := New("E003").
		WithPath("$.items").
		WithSuggestion("Wrap the data in a mapping").
		WithExample(`store.New(tree.NewMapping())`).
		WithDetail("custom detail")

	if err.Path != "$.items" {
		t.Errorf("Path = %q", err.Path)
	}
	if err.Suggestion != "Wrap the data in a mapping" {
		t.Errorf("Suggestion = %q", err.Suggestion)
	}
	if err.Example == "" {
		t.Error("Example should be set")
	}
	if err.Detail != "custom detail" {
		t.Errorf("Detail = %q", err.Detail)
	}
}

func TestAirsetError_Unwrap(t *testing.T) {
	inner := fmt.Errorf("inner error")
	err := New("E011").Wrap(inner)

	if err.Unwrap() != inner {
		t.Error("Unwrap() should return wrapped error")
	}
	if !stderrors.Is(err, inner) {
		t.Error("errors.Is should find the wrapped error")
	}
}

func TestAirsetError_Is(t *testing.T) {
	err := fmt.Errorf("run: %w", New("E001"))

	if !stderrors.Is(err, New("E001")) {
		t.Error("errors.Is should match on code")
	}
	if stderrors.Is(err, New("E002")) {
		t.Error("errors.Is should not match a different code")
	}
	if stderrors.Is(err, &AirsetError{Message: "Store destroyed"}) {
		t.Error("errors.Is should not match an error without a code")
	}
}

func TestFromError(t *testing.T) {
	if FromError(nil, "E011") != nil {
		t.Error("FromError(nil) should return nil")
	}

	existing := New("E010")
	if FromError(existing, "E011") != existing {
		t.Error("FromError should return an existing AirsetError as is")
	}

	plain := fmt.Errorf("plain error")
	wrapped := FromError(plain, "E011")
	if wrapped.Code != "E011" || wrapped.Wrapped != plain {
		t.Errorf("FromError = %+v", wrapped)
	}
}

func TestCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"plain", fmt.Errorf("x"), ""},
		{"direct", New("E010"), "E010"},
		{"wrapped", fmt.Errorf("ctx: %w", New("E012")), "E012"},
		{"uncoded", Newf(CategoryCLI, "bad"), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Code(tt.err); got != tt.want {
				t.Errorf("Code() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormat(t *testing.T) {
	DisableColors()
	defer EnableColors()

	err := New("E003").
		WithPath("$.items[2]").
		WithSuggestion("Use Set instead")

	out := err.Format()
	for _, want := range []string{
		"ERROR E003: Partial update on non-mapping data",
		"at $.items[2]",
		"Hint: Use Set instead",
		"Learn more: https://airset.dev/docs/errors/E003",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Format() missing %q\n%s", want, out)
		}
	}
	if strings.Contains(out, "\033[") {
		t.Error("Format() contains ANSI codes with colors disabled")
	}
}

func TestFormatWithContext(t *testing.T) {
	DisableColors()
	defer EnableColors()

	tmpFile := filepath.Join(t.TempDir(), "doc.json")
	if err := os.WriteFile(tmpFile, []byte("{\n  \"a\": 1,\n  \"b\": ,\n}\n"), 0644); err != nil {
		t.Fatal(err)
	}
	out := New("E041").WithLocation(tmpFile, 3, 8).Format()

	if !strings.Contains(out, "→") {
		t.Errorf("Format() should mark the error line\n%s", out)
	}
	if !strings.Contains(out, `"b": ,`) {
		t.Errorf("Format() should show the error line\n%s", out)
	}
}

func TestFormatCompact(t *testing.T) {
	err := New("E041").WithPath("$.a").Wrap(fmt.Errorf("eof"))
	err.Location = &Location{File: "a.json", Line: 2}

	if got, want := err.FormatCompact(), "a.json:2: E041: Document could not be decoded at $.a: eof"; got != want {
		t.Errorf("FormatCompact() = %q, want %q", got, want)
	}
}

func TestFormatJSON(t *testing.T) {
	err := New("E080").WithPath("$").Wrap(fmt.Errorf("missing"))

	var got map[string]any
	if e := json.Unmarshal([]byte(err.FormatJSON()), &got); e != nil {
		t.Fatalf("FormatJSON() is not valid JSON: %v", e)
	}
	want := map[string]any{
		"code":     "E080",
		"category": "inspector",
		"message":  "Store not registered",
		"path":     "$",
		"cause":    "missing",
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %v, want %v", k, got[k], v)
		}
	}
}

func TestPrintError(t *testing.T) {
	DisableColors()
	defer EnableColors()

	var b strings.Builder
	PrintError(&b, New("E001"))
	if !strings.Contains(b.String(), "ERROR E001: Store destroyed") {
		t.Errorf("PrintError() = %q", b.String())
	}

	b.Reset()
	PrintError(&b, fmt.Errorf("plain"))
	if !strings.Contains(b.String(), "ERROR: plain") {
		t.Errorf("PrintError() = %q", b.String())
	}
}

func TestRegistry(t *testing.T) {
	codes := GetAllCodes()
	if len(codes) == 0 {
		t.Fatal("registry is empty")
	}
	for i := 1; i < len(codes); i++ {
		if codes[i-1] >= codes[i] {
			t.Errorf("GetAllCodes() not sorted at %d: %q >= %q", i, codes[i-1], codes[i])
		}
	}
	for _, code := range codes {
		tmpl, ok := GetTemplate(code)
		if !ok {
			t.Errorf("GetTemplate(%q) not found", code)
			continue
		}
		if tmpl.Message == "" || tmpl.Category == "" {
			t.Errorf("template %q incomplete: %+v", code, tmpl)
		}
		if !strings.HasSuffix(tmpl.DocURL, code) {
			t.Errorf("template %q DocURL = %q", code, tmpl.DocURL)
		}
	}

	Register("E900", ErrorTemplate{Category: CategoryCLI, Message: "Custom"})
	defer delete(registry, "E900")
	if New("E900").Message != "Custom" {
		t.Error("Register did not add the template")
	}
}

func TestPrintErrorWrapped(t *testing.T) {
	DisableColors()
	defer EnableColors()

	var b strings.Builder
	PrintError(&b, fmt.Errorf("serve: %w", New("E142")))
	if !strings.Contains(b.String(), "ERROR E142: No documents to serve") {
		t.Errorf("PrintError() = %q", b.String())
	}
}

func TestWrapText(t *testing.T) {
	got := wrapText("one two three four", 9)
	want := []string{"one two", "three", "four"}
	if len(got) != len(want) {
		t.Fatalf("wrapText() = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, got[i], want[i])
		}
	}
	if wrapText("", 10) != nil {
		t.Error("wrapText of empty text should be nil")
	}
}
