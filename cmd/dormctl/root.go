package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"dormcore/internal/config"
	"dormcore/internal/core"
	"dormcore/pkg/domain"
)

type rootOptions struct {
	configPath string
	envFile    string
	dataDir    string
	storage    string
	onExit     string
	metrics    bool
	trace      bool

	app *app
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "dormctl",
		Short:         "Manage dormitory students, rooms, contracts and fees",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if err := opts.teardown(cmd.Context()); err != nil {
				return err
			}
			if opts.metrics {
				return opts.app.writeMetrics(cmd.ErrOrStderr())
			}
			return nil
		},
	}
	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "dormcore.yaml", "YAML configuration file")
	flags.StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before the environment")
	flags.StringVar(&opts.dataDir, "data-dir", "", "override the data directory")
	flags.StringVar(&opts.storage, "storage", "", "override the storage driver (text|sqlite|postgres|memory)")
	flags.StringVar(&opts.onExit, "on-exit", "save", "what to do with unsaved changes (save|discard|cancel)")
	flags.BoolVar(&opts.metrics, "print-metrics", false, "write repository metrics to stderr after the command")
	flags.BoolVar(&opts.trace, "trace", false, "write one JSON line per repository operation to stderr")

	root.AddCommand(
		newStudentsCmd(opts),
		newRoomsCmd(opts),
		newContractsCmd(opts),
		newFeesCmd(opts),
		newAssignCmd(opts),
		newUnassignCmd(opts),
		newReportCmd(opts),
		newExportCmd(opts),
		newReportsCmd(opts),
		newSaveCmd(opts),
	)
	return root
}

func (o *rootOptions) setup(cmd *cobra.Command) error {
	if _, err := core.ParseExitChoice(o.onExit); err != nil {
		return err
	}
	cfg, err := config.Load(o.configPath, o.envFile)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("data-dir") {
		cfg.DataDir = o.dataDir
	}
	if cmd.Flags().Changed("storage") {
		cfg.Storage.Driver = o.storage
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	if o.trace {
		cfg.Trace = "stderr"
	}
	a, err := newApp(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	o.app = a
	return nil
}

// teardown applies the exit policy when the repository was opened.
func (o *rootOptions) teardown(ctx context.Context) error {
	if o.app == nil {
		return nil
	}
	defer o.app.close()
	if o.app.backend == nil {
		return nil
	}
	choice, err := core.ParseExitChoice(o.onExit)
	if err != nil {
		return err
	}
	repo, err := o.app.repo(ctx)
	if err != nil {
		return err
	}
	exit, err := repo.HandleExit(ctx, choice)
	if err != nil {
		return err
	}
	if !exit {
		o.app.log.Info("exit cancelled, changes kept in memory")
	}
	return nil
}

func (o *rootOptions) repo(cmd *cobra.Command) (*core.Repository, error) {
	return o.app.repo(cmd.Context())
}

func parseID(raw string) (int, error) {
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q is not a valid id", domain.ErrInvalid, raw)
	}
	return id, nil
}

func parseIDs(raw []string) ([]int, error) {
	ids := make([]int, 0, len(raw))
	for _, r := range raw {
		id, err := parseID(r)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func notFound(kind domain.Kind, id int) error {
	return domain.ErrNotFound{Kind: kind, ID: id}
}

// exitCode maps command errors to process exit codes.
func exitCode(err error) int {
	var nf domain.ErrNotFound
	switch {
	case err == nil:
		return 0
	case errors.As(err, &nf):
		return 3
	case errors.Is(err, domain.ErrInvalid):
		return 2
	default:
		return 1
	}
}
