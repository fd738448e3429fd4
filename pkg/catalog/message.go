package catalog

import (
	"fmt"
	"strings"
	"time"
)

// ComponentCommit names one component's bound version and the short SHA of
// the commit its worktree is currently checked out at.
type ComponentCommit struct {
	Name     string
	Version  string
	ShortSHA string
}

// ConfigCommits names the global and tenant ("customer") configuration
// repositories' current commits.
type ConfigCommits struct {
	GlobalSHA   string
	CustomerSHA string
}

// RenderCommitMessage renders the catalog commit message template from
// spec.md §4.H step 5.
func RenderCommitMessage(components []ComponentCommit, config ConfigCommits, timestamp time.Time) string {
	var b strings.Builder
	b.WriteString("Automated catalog update from Commodore\n\n")
	b.WriteString("Component commits:\n")
	for _, c := range components {
		fmt.Fprintf(&b, " * %s: %s (%s)\n", c.Name, c.Version, c.ShortSHA)
	}
	b.WriteString("\nConfiguration commits:\n")
	fmt.Fprintf(&b, " * global: %s\n", config.GlobalSHA)
	fmt.Fprintf(&b, " * customer: %s\n", config.CustomerSHA)
	b.WriteString("\n")
	fmt.Fprintf(&b, "Compilation timestamp: %s\n", timestamp.UTC().Format("2006-01-02T15:04:05.000Z"))
	return b.String()
}
