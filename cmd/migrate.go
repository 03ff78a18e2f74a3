package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/daem0ndev/migrate/cliargs"
	"github.com/daem0ndev/migrate/config"
	"github.com/daem0ndev/migrate/fetcher"
	"github.com/daem0ndev/migrate/installedversion"
	"github.com/daem0ndev/migrate/migrations"
	"github.com/daem0ndev/migrate/output"
	"github.com/daem0ndev/migrate/packagejson"
	"github.com/daem0ndev/migrate/planner"
	"github.com/daem0ndev/migrate/progress"
	"github.com/daem0ndev/migrate/prompt"
	"github.com/daem0ndev/migrate/registry"
	"github.com/daem0ndev/migrate/runner"
	"github.com/daem0ndev/migrate/vcs"
)

var migrateArgs struct {
	From          string
	To            string
	Interactive   bool
	RunMigrations string
	Verbose       bool
	CreateCommits bool
	CommitPrefix  string
}

var migrateCmd = &cobra.Command{
	Use:   "migrate [packageAndVersion]",
	Short: "Compute or replay a workspace migration plan",
	Long:  `migrate computes a migration plan for packageAndVersion (e.g. "nx@16.0.0" or "latest") and writes it to migrations.json, or replays an existing one with --run-migrations.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.Flags().StringVar(&migrateArgs.From, "from", "", "comma-separated pkg@version overrides used when resolving installed versions")
	migrateCmd.Flags().StringVar(&migrateArgs.To, "to", "", "comma-separated pkg@version pins applied regardless of what the traversal computes")
	migrateCmd.Flags().BoolVar(&migrateArgs.Interactive, "interactive", false, "prompt for x-prompt confirmations while planning")
	migrateCmd.Flags().StringVar(&migrateArgs.RunMigrations, "run-migrations", "", "replay a previously generated migrations file instead of planning a new one")
	migrateCmd.Flags().Lookup("run-migrations").NoOptDefVal = migrations.DefaultFileName
	migrateCmd.Flags().BoolVar(&migrateArgs.Verbose, "verbose", os.Getenv("NX_VERBOSE_LOGGING") == "true", "verbose logging")
	migrateCmd.Flags().BoolVar(&migrateArgs.CreateCommits, "create-commits", false, "commit each migration's changes individually")
	migrateCmd.Flags().StringVar(&migrateArgs.CommitPrefix, "commit-prefix", "chore: ", "prefix applied to each migration's commit message")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	var packageAndVersion string
	if len(args) == 1 {
		packageAndVersion = args[0]
	}

	raw := cliargs.RawInput{
		PackageAndVersion: packageAndVersion,
		From:              migrateArgs.From,
		To:                migrateArgs.To,
		Interactive:       migrateArgs.Interactive,
		Verbose:           migrateArgs.Verbose,
		CreateCommits:     migrateArgs.CreateCommits,
		CommitPrefix:      migrateArgs.CommitPrefix,
	}
	if cmd.Flags().Changed("run-migrations") {
		file := migrateArgs.RunMigrations
		raw.RunMigrationsFile = &file
	}

	opts, err := cliargs.Parse(raw)
	if err != nil {
		return err
	}

	root, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to resolve working directory: %w", err)
	}

	ctx := context.Background()

	if opts.Run != nil {
		return executeRun(ctx, root, opts)
	}
	return executePlan(ctx, root, opts)
}

func executePlan(ctx context.Context, root string, opts *cliargs.Options) error {
	manifest, err := packagejson.Load(filepath.Join(root, "package.json"))
	if err != nil {
		return fmt.Errorf("failed to read workspace manifest: %w", err)
	}

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to initialize cache directories: %w", err)
	}
	defer cfg.ClearCache()

	client := registry.New(cfg)
	f := fetcher.New(client, cfg)
	resolver := installedversion.New(root, os.ReadFile)

	confirm := prompt.Confirmer(prompt.AlwaysYes)
	if opts.Generate.Interactive {
		confirm = prompt.Interactive{}
	}

	p := planner.New(f, resolver, manifest, confirm, opts.Generate.Interactive, nil, opts.Generate.From, opts.Generate.To)

	if err := p.Plan(ctx, opts.Generate.TargetPackage, opts.Generate.TargetVersion); err != nil {
		return err
	}

	updates := p.PackageJsonUpdates()
	if err := applyManifestUpdates(manifest, updates); err != nil {
		return err
	}

	planned, err := p.AssembleMigrations(ctx)
	if err != nil {
		return err
	}

	entries := make([]migrations.Entry, 0, len(planned))
	for _, m := range planned {
		entries = append(entries, migrations.Entry{
			Package:        m.Package,
			Name:           m.Name,
			Version:        m.Generator.RawVersion,
			Description:    m.Generator.Description,
			Implementation: m.Generator.Path(),
			CLI:            m.Generator.CLI,
		})
	}

	if err := migrations.WriteFile(filepath.Join(root, migrations.DefaultFileName), entries); err != nil {
		return err
	}

	printed := make([]output.PlannedUpdate, 0, len(updates))
	for pkg, upd := range updates {
		printed = append(printed, output.PlannedUpdate{
			Package:          pkg,
			Version:          upd.Version.String(),
			AddToPackageJson: string(upd.AddToPackageJson),
		})
	}
	output.PrintPlan(printed)

	return nil
}

// applyManifestUpdates rewrites each planned package's version in the
// manifest section where it already appears. A package absent from the
// manifest is inserted only when addToPackageJson names a section; the
// `false` case leaves the manifest untouched even though the plan still
// records the package (test 6 in the testable-properties list).
func applyManifestUpdates(manifest *packagejson.Manifest, updates map[string]migrations.PackageJsonUpdateForPackage) error {
	for pkg, upd := range updates {
		if manifest.Has(pkg, packagejson.Dependencies) {
			if err := manifest.SetVersion(pkg, upd.Version.String(), packagejson.Dependencies); err != nil {
				return err
			}
			continue
		}
		if manifest.Has(pkg, packagejson.DevDependencies) {
			if err := manifest.SetVersion(pkg, upd.Version.String(), packagejson.DevDependencies); err != nil {
				return err
			}
			continue
		}

		switch upd.AddToPackageJson {
		case migrations.AddDependencies:
			if err := manifest.SetVersion(pkg, upd.Version.String(), packagejson.Dependencies); err != nil {
				return err
			}
		case migrations.AddDevDependencies:
			if err := manifest.SetVersion(pkg, upd.Version.String(), packagejson.DevDependencies); err != nil {
				return err
			}
		}
	}
	return nil
}

func executeRun(ctx context.Context, root string, opts *cliargs.Options) error {
	entries, err := migrations.ReadFile(filepath.Join(root, opts.Run.File))
	if err != nil {
		return err
	}

	manifest, err := packagejson.Load(filepath.Join(root, "package.json"))
	if err != nil {
		return fmt.Errorf("failed to read workspace manifest: %w", err)
	}

	runnerOpts := runner.Options{
		CreateCommits:  opts.CreateCommits,
		CommitPrefix:   opts.CommitPrefix,
		Verbose:        opts.Verbose,
		SkipInstall:    os.Getenv("NX_MIGRATE_SKIP_INSTALL") != "",
		InstallCommand: "npm install",
		Progress:       progress.New(getVersion(), opts.Verbose),
	}

	if opts.CreateCommits {
		committer, err := vcs.Open(root)
		if err != nil {
			return fmt.Errorf("--create-commits requires a git repository: %w", err)
		}
		runnerOpts.Committer = committer
	}

	r := runner.New(root, manifest, notImplementedLoader{}, notImplementedAdapter{}, runnerOpts)

	summary, err := r.Run(ctx, entries)
	if summary != nil {
		output.PrintNoChanges(summary.NoChanges)
		output.PrintSummary(summary.Ran, len(summary.NoChanges), summary.Failed)
	}
	return err
}
