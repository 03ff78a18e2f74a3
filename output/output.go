// Package output renders the user-facing summaries the plan and run
// commands print: the computed plan, the migration-run progress, the
// no-changes list, and commit failures. Styled with the same
// lipgloss/fatih-color combination used elsewhere in this codebase for
// terminal output.
package output

import (
	"fmt"
	"sort"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
)

var (
	packageStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("cyan"))
	versionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("green"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("magenta"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// PlannedUpdate is one row of the plan summary.
type PlannedUpdate struct {
	Package          string
	Version          string
	AddToPackageJson string
}

// PrintPlan renders the computed packageJsonUpdates in the order given.
func PrintPlan(updates []PlannedUpdate) {
	fmt.Println(headerStyle.Render("Migration plan"))
	if len(updates) == 0 {
		fmt.Println(dimStyle.Render("  (no package updates)"))
		return
	}

	for _, u := range updates {
		suffix := ""
		if u.AddToPackageJson != "" && u.AddToPackageJson != "false" {
			suffix = dimStyle.Render(fmt.Sprintf(" (new: %s)", u.AddToPackageJson))
		}
		fmt.Printf("  %s %s%s\n", packageStyle.Render(u.Package), versionStyle.Render("→ "+u.Version), suffix)
	}
}

// PrintMigrationStart announces a migration about to run.
func PrintMigrationStart(pkg, name string) {
	fmt.Printf("%s %s\n", dimStyle.Render("running"), packageStyle.Render(pkg+":"+name))
}

// PrintNoChanges lists migrations that ran but made no changes.
func PrintNoChanges(names []string) {
	if len(names) == 0 {
		return
	}
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)

	fmt.Println(headerStyle.Render("No changes"))
	for _, n := range sorted {
		fmt.Printf("  %s\n", dimStyle.Render(n))
	}
}

// PrintCommit reports a successful commit for a migration.
func PrintCommit(name, sha string) {
	fmt.Printf("  %s %s\n", dimStyle.Render("committed"), versionStyle.Render(sha[:min(12, len(sha))]+" "+name))
}

// PrintCommitFailure logs a non-fatal commit failure in red.
func PrintCommitFailure(name string, err error) {
	red := color.New(color.FgRed)
	red.Printf("  commit failed for %s: %v\n", name, err)
}

// PrintSummary prints the final run summary regardless of success/failure.
func PrintSummary(ranCount, noChangeCount, failedCount int) {
	fmt.Println()
	fmt.Printf("%d migration(s) run, %d with no changes, %d failed\n", ranCount, noChangeCount, failedCount)
}
