package cmd

import (
	"context"
	"fmt"

	"github.com/daem0ndev/migrate/runner"
)

// notImplementedLoader is the production Loader wired into the run
// command. Resolving and loading a migration package's own code (its
// declared implementation file and default export) is the external
// collaborator the design notes name as out of scope here: this module
// plans and replays migrations, but does not itself embed a loader for
// arbitrary published migration code.
type notImplementedLoader struct{}

func (notImplementedLoader) Load(pkgDir, implementation string) (runner.Implementation, error) {
	return nil, fmt.Errorf("no migration implementation loader configured for %s (%s)", pkgDir, implementation)
}

// notImplementedAdapter is the production Adapter for migrations whose
// declaring package sets cli to something other than "nx". Like the
// Loader, the external tool's own invocation contract is out of scope.
type notImplementedAdapter struct{}

func (notImplementedAdapter) Run(ctx context.Context, root, pkg, name string, verbose bool) (runner.AdapterResult, error) {
	return runner.AdapterResult{}, fmt.Errorf("no external adapter configured to run %s:%s", pkg, name)
}
