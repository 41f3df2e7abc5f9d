package output

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func newBufferPrinter(quiet bool) (*Printer, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	return NewPrinter(Options{Out: &out, Err: &errOut, Quiet: quiet}), &out, &errOut
}

func TestParseColorMode(t *testing.T) {
	tests := []struct {
		input string
		want  ColorMode
	}{
		{"", ColorAuto},
		{"auto", ColorAuto},
		{"always", ColorAlways},
		{"never", ColorNever},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseColorMode(tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseColorMode(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}

	if _, err := ParseColorMode("sometimes"); err == nil {
		t.Error("expected error for invalid color mode")
	}
}

func TestResolveColors(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	if !ResolveColors(ColorAlways, false) {
		t.Error("ColorAlways should win over NO_COLOR")
	}
	if ResolveColors(ColorAuto, true) {
		t.Error("NO_COLOR should disable colors in auto mode")
	}
	if ResolveColors(ColorNever, true) {
		t.Error("ColorNever should disable colors")
	}
}

func TestPrinter_PlainPrefixes(t *testing.T) {
	p, out, errOut := newBufferPrinter(false)

	p.Success("logged in as %s", "Jane")
	p.Warning("session expires soon")
	p.Error("request failed")

	if got := out.String(); got != "[OK] logged in as Jane\n" {
		t.Errorf("stdout = %q", got)
	}
	if !strings.Contains(errOut.String(), "[WARN] session expires soon") {
		t.Errorf("stderr missing warning: %q", errOut.String())
	}
	if !strings.Contains(errOut.String(), "[ERROR] request failed") {
		t.Errorf("stderr missing error: %q", errOut.String())
	}
}

func TestPrinter_QuietSuppressesAllButErrors(t *testing.T) {
	p, out, errOut := newBufferPrinter(true)

	p.Info("info")
	p.Print("plain")
	p.Header("Movies")
	p.PrintHints("login")
	p.Error("boom")

	if out.Len() != 0 {
		t.Errorf("quiet printer wrote to stdout: %q", out.String())
	}
	if !strings.Contains(errOut.String(), "boom") {
		t.Errorf("errors must print in quiet mode, got %q", errOut.String())
	}
}

func TestPrinter_Stars(t *testing.T) {
	p, _, _ := newBufferPrinter(false)

	tests := []struct {
		rating float64
		want   string
	}{
		{0, "☆☆☆☆☆"},
		{5, "★★★☆☆"},
		{8.4, "★★★★☆"},
		{10, "★★★★★"},
		{12, "★★★★★"},
	}
	for _, tt := range tests {
		if got := p.Stars(tt.rating); got != tt.want {
			t.Errorf("Stars(%v) = %q, want %q", tt.rating, got, tt.want)
		}
	}
}

func TestPrintHints(t *testing.T) {
	p, out, _ := newBufferPrinter(false)

	p.PrintHints("login")
	if !strings.Contains(out.String(), "See also: flixctl whoami, flixctl movies featured") {
		t.Errorf("unexpected hints: %q", out.String())
	}

	out.Reset()
	p.PrintHints("version")
	if out.Len() != 0 {
		t.Errorf("expected no hints, got %q", out.String())
	}
}

func TestFormatError(t *testing.T) {
	p, _, errOut := newBufferPrinter(false)

	p.FormatError(&CLIError{
		Summary:    "not logged in",
		Detail:     "no stored session",
		Suggestion: "Run 'flixctl login'",
		ExitCode:   ExitAuthError,
	})

	for _, want := range []string{"[ERROR] not logged in", "Cause: no stored session", "Suggestion: Run 'flixctl login'"} {
		if !strings.Contains(errOut.String(), want) {
			t.Errorf("missing %q in %q", want, errOut.String())
		}
	}
}

func TestExitCodeOf(t *testing.T) {
	if got := ExitCodeOf(nil); got != ExitSuccess {
		t.Errorf("nil error exit code = %d", got)
	}
	if got := ExitCodeOf(errors.New("plain")); got != ExitGeneral {
		t.Errorf("plain error exit code = %d", got)
	}
	wrapped := fmt.Errorf("running: %w", &CLIError{Summary: "x", ExitCode: ExitAPIError})
	if got := ExitCodeOf(wrapped); got != ExitAPIError {
		t.Errorf("wrapped CLIError exit code = %d", got)
	}
}

func TestTable_Render(t *testing.T) {
	p, out, _ := newBufferPrinter(false)

	table := p.NewTable("ID", "TITLE")
	table.AddRow("1", "Heat")
	table.AddRow("2", "Se7en")
	if err := table.Render(); err != nil {
		t.Fatalf("render: %v", err)
	}

	for _, want := range []string{"Heat", "Se7en", "TITLE"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("table output missing %q:\n%s", want, out.String())
		}
	}
	if table.Len() != 2 {
		t.Errorf("Len() = %d", table.Len())
	}
}
