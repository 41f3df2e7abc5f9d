// Package output formats flixctl results for the terminal.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
)

// ColorMode selects when to emit ANSI colors.
type ColorMode int

const (
	ColorAuto ColorMode = iota
	ColorAlways
	ColorNever
)

// ParseColorMode parses auto, always or never.
func ParseColorMode(s string) (ColorMode, error) {
	switch s {
	case "", "auto":
		return ColorAuto, nil
	case "always":
		return ColorAlways, nil
	case "never":
		return ColorNever, nil
	default:
		return ColorAuto, fmt.Errorf("invalid color mode %q: must be auto, always, or never", s)
	}
}

// ResolveColors decides on colors from the flag mode, NO_COLOR, TERM and the config value.
func ResolveColors(mode ColorMode, configColors bool) bool {
	switch mode {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	return configColors
}

// Options configures a Printer.
type Options struct {
	Out       io.Writer
	Err       io.Writer
	UseColors bool
	Quiet     bool
}

// Printer writes messages, headers and errors.
type Printer struct {
	out       io.Writer
	err       io.Writer
	useColors bool
	quiet     bool
}

// NewPrinter creates a printer. Nil writers default to stdout and stderr.
func NewPrinter(opts Options) *Printer {
	p := &Printer{out: opts.Out, err: opts.Err, useColors: opts.UseColors, quiet: opts.Quiet}
	if p.out == nil {
		p.out = os.Stdout
	}
	if p.err == nil {
		p.err = os.Stderr
	}
	return p
}

// Out returns the standard output writer.
func (p *Printer) Out() io.Writer { return p.out }

// IsQuiet reports whether informational output is suppressed.
func (p *Printer) IsQuiet() bool { return p.quiet }

func (p *Printer) colored(w io.Writer, attrs []color.Attribute, prefix, plainPrefix, format string, args ...any) {
	if p.useColors {
		c := color.New(attrs...)
		c.EnableColor()
		c.Fprintf(w, prefix+format+"\n", args...)
		return
	}
	fmt.Fprintf(w, plainPrefix+format+"\n", args...)
}

// Info prints an informational line.
func (p *Printer) Info(format string, args ...any) {
	if p.quiet {
		return
	}
	p.colored(p.out, []color.Attribute{color.FgCyan}, "", "", format, args...)
}

// Success prints a confirmation line.
func (p *Printer) Success(format string, args ...any) {
	if p.quiet {
		return
	}
	p.colored(p.out, []color.Attribute{color.FgGreen}, "✓ ", "[OK] ", format, args...)
}

// Warning prints to stderr.
func (p *Printer) Warning(format string, args ...any) {
	if p.quiet {
		return
	}
	p.colored(p.err, []color.Attribute{color.FgYellow}, "⚠ ", "[WARN] ", format, args...)
}

// Error prints to stderr even in quiet mode.
func (p *Printer) Error(format string, args ...any) {
	p.colored(p.err, []color.Attribute{color.FgRed}, "✗ ", "[ERROR] ", format, args...)
}

// Print prints a plain line.
func (p *Printer) Print(format string, args ...any) {
	if p.quiet {
		return
	}
	fmt.Fprintf(p.out, format+"\n", args...)
}

// Header prints an underlined section title.
func (p *Printer) Header(title string) {
	if p.quiet {
		return
	}
	rule := strings.Repeat("─", len([]rune(title)))
	if p.useColors {
		h := color.New(color.FgWhite, color.Bold)
		h.EnableColor()
		h.Fprintf(p.out, "\n%s\n", title)
		fmt.Fprintf(p.out, "%s\n", rule)
		return
	}
	fmt.Fprintf(p.out, "\n%s\n%s\n", title, strings.Repeat("-", len([]rune(title))))
}

// Stars renders a 0..10 rating as five stars.
func (p *Printer) Stars(rating float64) string {
	full := int(rating/2 + 0.5)
	if full > 5 {
		full = 5
	}
	if full < 0 {
		full = 0
	}
	s := strings.Repeat("★", full) + strings.Repeat("☆", 5-full)
	if p.useColors {
		return color.YellowString(s)
	}
	return s
}

// Bold returns text in bold when colors are on.
func (p *Printer) Bold(text string) string {
	if p.useColors {
		return color.New(color.Bold).Sprint(text)
	}
	return text
}

// Dim returns faint text when colors are on.
func (p *Printer) Dim(text string) string {
	if p.useColors {
		return color.New(color.Faint).Sprint(text)
	}
	return text
}
