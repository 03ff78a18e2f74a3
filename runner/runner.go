// Package runner replays a planned migration list against the workspace:
// for each migration it builds a virtual file-tree host, invokes the
// migration's implementation, and flushes, diffs, and optionally commits
// whatever changes resulted. It installs dependencies before the first
// migration and again afterward if the manifest's dependency set changed.
package runner

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/daem0ndev/migrate/migrations"
	"github.com/daem0ndev/migrate/output"
	"github.com/daem0ndev/migrate/packagejson"
	"github.com/daem0ndev/migrate/progress"
	"github.com/daem0ndev/migrate/scripts"
	"github.com/daem0ndev/migrate/tree"
	"github.com/daem0ndev/migrate/vcs"
)

// Implementation is a migration's code-modifying unit: it reads and writes
// against host and returns an error if it cannot complete. options is
// always {} for the nx path; it exists so the signature matches the
// fixed shape migration implementations are invoked with.
type Implementation func(host *tree.Host, options map[string]any) error

// Loader resolves a migration's implementation file, relative to the
// declaring package's own directory, into a callable Implementation. This
// is an external collaborator: discovering and loading a package's
// migration code is mechanical, package-manager-specific work that stays
// outside this module's pure logic.
type Loader interface {
	Load(pkgDir, implementation string) (Implementation, error)
}

// AdapterResult is what a non-nx adapter reports after running one
// migration directly against the workspace on disk.
type AdapterResult struct {
	MadeChanges  bool
	LoggingQueue []string
}

// Adapter runs a migration whose declaring package set `cli` to something
// other than "nx". Like Loader, this is an external collaborator: the
// contract is fixed, but how it is satisfied is out of scope here.
type Adapter interface {
	Run(ctx context.Context, root, pkg, name string, verbose bool) (AdapterResult, error)
}

// AdapterError wraps a failure surfaced by an Adapter, identifying which
// migration failed.
type AdapterError struct {
	Package string
	Name    string
	Err     error
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("adapter failed for %s:%s: %v", e.Package, e.Name, e.Err)
}

func (e *AdapterError) Unwrap() error { return e.Err }

// CommitResult records a successful commit for one migration.
type CommitResult struct {
	Name string
	SHA  string
}

// Summary is the final report of a run, printed regardless of outcome.
type Summary struct {
	Ran       int
	NoChanges []string
	Failed    int
	Commits   []CommitResult
}

// Options configures a Runner.
type Options struct {
	CreateCommits  bool
	CommitPrefix   string
	Verbose        bool
	SkipInstall    bool
	InstallCommand string
	Committer      *vcs.Committer
	Progress       *progress.Progress
}

// Runner replays migrations against a workspace rooted at Root.
type Runner struct {
	root     string
	manifest *packagejson.Manifest
	loader   Loader
	adapter  Adapter
	installer *scripts.Executor
	opts     Options
}

// New builds a Runner. manifest is reloaded internally after the loop to
// detect whether the dependency set changed.
func New(root string, manifest *packagejson.Manifest, loader Loader, adapter Adapter, opts Options) *Runner {
	return &Runner{
		root:      root,
		manifest:  manifest,
		loader:    loader,
		adapter:   adapter,
		installer: scripts.NewExecutor(),
		opts:      opts,
	}
}

// Run replays entries in order, returning the final summary. A migration
// implementation or adapter failure aborts the whole run; a commit
// failure is logged and does not.
func (r *Runner) Run(ctx context.Context, entries []migrations.Entry) (*Summary, error) {
	beforeSnapshot := r.manifest.DependencySnapshot()

	if !r.opts.SkipInstall {
		if err := r.install(ctx); err != nil {
			return nil, fmt.Errorf("pre-run install failed: %w", err)
		}
	}

	if r.opts.Progress != nil {
		r.opts.Progress.Start()
	}

	summary := &Summary{}

	for _, entry := range entries {
		if r.opts.Progress != nil {
			r.opts.Progress.SetStatus(fmt.Sprintf("%s:%s", entry.Package, entry.Name))
		}

		madeChanges, sha, err := r.runOne(ctx, entry)
		if err != nil {
			summary.Failed++
			return summary, err
		}

		if !madeChanges {
			summary.NoChanges = append(summary.NoChanges, entry.Package+":"+entry.Name)
			continue
		}

		summary.Ran++
		if r.opts.Progress != nil {
			r.opts.Progress.IncrementCount()
			r.opts.Progress.AddTopLevel(entry.Package, entry.Version)
		}
		if sha != "" {
			summary.Commits = append(summary.Commits, CommitResult{Name: entry.Name, SHA: sha})
		}
	}

	if r.opts.Progress != nil {
		r.opts.Progress.Finish()
	}

	reloaded, err := packagejson.Load(r.manifest.Path)
	if err != nil {
		return summary, fmt.Errorf("failed to reload %s: %w", r.manifest.Path, err)
	}
	if reloaded.DependencySnapshot() != beforeSnapshot {
		if err := r.install(ctx); err != nil {
			return summary, fmt.Errorf("post-run install failed: %w", err)
		}
	}

	return summary, nil
}

// runOne replays a single migration, returning whether it made changes and
// (if committed) the resulting commit sha.
func (r *Runner) runOne(ctx context.Context, entry migrations.Entry) (bool, string, error) {
	output.PrintMigrationStart(entry.Package, entry.Name)

	cli := entry.CLI
	if cli == "" {
		cli = "nx"
	}

	var madeChanges bool
	var host *tree.Host

	if cli != "nx" {
		result, err := r.adapter.Run(ctx, r.root, entry.Package, entry.Name, r.opts.Verbose)
		if err != nil {
			return false, "", &AdapterError{Package: entry.Package, Name: entry.Name, Err: err}
		}
		if r.opts.Verbose {
			for _, line := range result.LoggingQueue {
				fmt.Println(line)
			}
		}
		madeChanges = result.MadeChanges
	} else {
		pkgDir := filepath.Join(r.root, "node_modules", entry.Package)
		impl, err := r.loader.Load(pkgDir, entry.Implementation)
		if err != nil {
			return false, "", fmt.Errorf("failed to load %s:%s: %w", entry.Package, entry.Name, err)
		}

		host = tree.New(r.root)
		if err := impl(host, map[string]any{}); err != nil {
			return false, "", fmt.Errorf("migration %s:%s failed: %w", entry.Package, entry.Name, err)
		}

		changes := host.ListChanges()
		madeChanges = len(changes) > 0
		if madeChanges {
			diff, err := host.Diff(changes)
			if err != nil {
				return false, "", fmt.Errorf("failed to diff %s:%s: %w", entry.Package, entry.Name, err)
			}
			fmt.Println(diff)

			if err := host.Flush(); err != nil {
				return false, "", fmt.Errorf("failed to flush %s:%s: %w", entry.Package, entry.Name, err)
			}
		}
	}

	if !madeChanges {
		return false, "", nil
	}

	if r.opts.CreateCommits && r.opts.Committer != nil {
		sha, err := r.opts.Committer.Commit(r.opts.CommitPrefix + entry.Name)
		if err != nil {
			output.PrintCommitFailure(entry.Name, err)
			return true, "", nil
		}
		output.PrintCommit(entry.Name, sha)
		return true, sha, nil
	}

	return true, "", nil
}

func (r *Runner) install(ctx context.Context) error {
	if r.opts.InstallCommand == "" {
		return nil
	}
	return r.installer.Execute(ctx, r.opts.InstallCommand, r.root)
}
