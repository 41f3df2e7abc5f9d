package output

import (
	"fmt"
	"strings"
)

// CommandHints lists follow-up commands per command.
var CommandHints = map[string][]string{
	"login":           {"whoami", "movies featured"},
	"signup":          {"login"},
	"logout":          {"login"},
	"whoami":          {"logout"},
	"movies list":     {"movie show <id>", "genres"},
	"movies featured": {"movies list", "movie show <id>"},
	"movie show":      {"movie rate <id> <1-10>", "movie comment <id> <text>", "movie favorite <id>"},
	"genres":          {"movies list --genre <id>"},
	"admin add-movie": {"movie show <id>"},
	"mock-api":        {"login", "config"},
}

// PrintHints prints "See also" for command. It is silent in quiet mode.
func (p *Printer) PrintHints(command string) {
	if p.quiet {
		return
	}
	hints := CommandHints[command]
	if len(hints) == 0 {
		return
	}
	cmds := make([]string, len(hints))
	for i, h := range hints {
		cmds[i] = "flixctl " + h
	}
	fmt.Fprintf(p.out, "\nSee also: %s\n", strings.Join(cmds, ", "))
}
