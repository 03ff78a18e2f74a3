// Package progress reports live status for a migration run: a spinner
// while migrations are being resolved and applied, and a final summary of
// what ran.
package progress

import (
	"fmt"
	"sync"
	"time"

	"github.com/briandowns/spinner"
)

// PackageInfo names one package whose migrations ran, for the closing
// summary.
type PackageInfo struct {
	Name    string
	Version string
}

// Progress drives a terminal spinner across a migration run.
type Progress struct {
	spinner    *spinner.Spinner
	startTime  time.Time
	topLevel   []PackageInfo
	totalCount int
	mu         sync.Mutex
	version    string
	verbose    bool
}

// New creates a Progress for a run targeting the given workspace version.
func New(version string, verbose bool) *Progress {
	s := spinner.New(spinner.CharSets[14], 80*time.Millisecond)
	s.Color("cyan")

	return &Progress{
		spinner:  s,
		topLevel: make([]PackageInfo, 0),
		version:  version,
		verbose:  verbose,
	}
}

// Start prints the header and starts the spinner.
func (p *Progress) Start() {
	p.startTime = time.Now()
	fmt.Printf("migrate %s\n\n", p.version)
	p.spinner.Suffix = " Resolving dependencies..."
	p.spinner.Start()
}

// SetStatus updates the spinner status message
// When verbose mode is enabled, it also prints the message to stdout
func (p *Progress) SetStatus(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.spinner.Suffix = " " + msg

	if p.verbose {
		p.spinner.Stop()
		fmt.Printf("  %s\n", msg)
		p.spinner.Start()
	}
}

// AddTopLevel records a package and version, shown in the closing summary.
// The runner calls it once for each migration that made changes, with the
// migration's package and version.
func (p *Progress) AddTopLevel(name, version string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topLevel = append(p.topLevel, PackageInfo{Name: name, Version: version})
}

// IncrementCount increments the count of migrations applied so far.
func (p *Progress) IncrementCount() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.totalCount++
}

// Finish stops the spinner and prints the final summary.
func (p *Progress) Finish() {
	p.spinner.Stop()

	for _, pkg := range p.topLevel {
		fmt.Printf("+ %s@%s\n", pkg.Name, pkg.Version)
	}

	if len(p.topLevel) > 0 {
		fmt.Println()
	}

	duration := time.Since(p.startTime)
	fmt.Printf("%d migration(s) applied [%.2fs]\n", p.totalCount, duration.Seconds())
}

// Warn prints a warning message without leaving the spinner stopped.
func (p *Progress) Warn(format string, args ...interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.spinner.Stop()
	fmt.Printf("warning: "+format+"\n", args...)
	p.spinner.Start()
}

