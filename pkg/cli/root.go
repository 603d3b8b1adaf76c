// Package cli implements gridctl, the administration CLI of the grid server.
// It talks to the metadata database directly through the same services the
// HTTP API uses.
package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"gridbase/internal/config"
	internaldb "gridbase/internal/db"
	"gridbase/internal/db/repository"
	"gridbase/internal/ddl"
	"gridbase/internal/domain"
	"gridbase/internal/grid"
	"gridbase/internal/service/datasets"
	"gridbase/internal/service/records"
)

var (
	version = "dev"
	commit  = "none"
)

// Execute runs the CLI.
func Execute() int {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		output, _ := rootCmd.PersistentFlags().GetString("output")
		if output == "json" {
			errObj := map[string]any{"error": err.Error()}
			if kind := errorKind(err); kind != "" {
				errObj["code"] = kind
			}
			_ = PrintJSON(os.Stdout, errObj)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

// errorKind names the domain error class of err, if any.
func errorKind(err error) string {
	var (
		notFound   *domain.NotFoundError
		validation *domain.ValidationError
		identifier *domain.IdentifierError
		conflict   *domain.ConflictError
	)
	switch {
	case errors.As(err, &notFound):
		return "NOT_FOUND"
	case errors.As(err, &validation), errors.As(err, &identifier):
		return "INVALID_ARGUMENT"
	case errors.As(err, &conflict):
		return "CONFLICT"
	default:
		return ""
	}
}

// dialectFlag is a --driver value validated at parse time.
type dialectFlag struct {
	dialect ddl.Dialect
}

var _ pflag.Value = (*dialectFlag)(nil)

func (f *dialectFlag) String() string { return string(f.dialect) }

func (f *dialectFlag) Set(s string) error {
	d, err := ddl.ParseDialect(s)
	if err != nil {
		return err
	}
	f.dialect = d
	return nil
}

func (f *dialectFlag) Type() string { return "driver" }

// rootOptions holds the persistent flags shared by every command.
type rootOptions struct {
	driver  dialectFlag
	dsn     string
	envFile string
	profile string
	output  string
	verbose bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "gridctl",
		Short:         "Grid server administration CLI",
		Long:          "Manage datasets and records directly in the grid metadata database.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("output") {
				if p, err := loadUserConfigOrEmpty().ActiveProfile(opts.profile); err == nil && p.Output != "" {
					opts.output = p.Output
				}
			}
			return validateOutputFormat(opts.output)
		},
	}

	rootCmd.PersistentFlags().Var(&opts.driver, "driver", "Database driver (sqlite, postgres); overrides DB_DRIVER")
	rootCmd.PersistentFlags().StringVar(&opts.dsn, "dsn", "", "SQLite file path or Postgres connection string")
	rootCmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "Environment file loaded before reading configuration")
	rootCmd.PersistentFlags().StringVarP(&opts.profile, "profile", "p", "", "Config profile to use")
	rootCmd.PersistentFlags().StringVarP(&opts.output, "output", "o", "table", "Output format (table, json)")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log service activity to stderr")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newMigrateCmd(opts))
	rootCmd.AddCommand(newDatasetsCmd(opts))
	rootCmd.AddCommand(newRecordsCmd(opts))
	rootCmd.AddCommand(newCompletionCmd())

	return rootCmd
}

// store is an open database with the services built on it.
type store struct {
	pools    *internaldb.Pools
	datasets *datasets.Service
	records  *records.Service
}

func (s *store) Close() error { return s.pools.Close() }

// target resolves the database to use: flags win over the profile, which
// wins over the environment.
func (o *rootOptions) target() (*config.Config, ddl.Dialect, string, error) {
	if err := config.LoadDotEnv(o.envFile); err != nil {
		return nil, "", "", err
	}
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, "", "", fmt.Errorf("load config: %w", err)
	}
	profile, err := loadUserConfigOrEmpty().ActiveProfile(o.profile)
	if err != nil {
		return nil, "", "", err
	}

	dialect := cfg.Dialect
	switch {
	case o.driver.dialect != "":
		dialect = o.driver.dialect
	case profile.Driver != "":
		if dialect, err = ddl.ParseDialect(profile.Driver); err != nil {
			return nil, "", "", err
		}
	}

	dsn := o.dsn
	if dsn == "" {
		dsn = profile.DSN
	}
	if dsn == "" {
		switch dialect {
		case ddl.Postgres:
			dsn = cfg.DatabaseURL
		default:
			dsn = cfg.MetaDBPath
		}
	}
	return cfg, dialect, dsn, nil
}

// openPools opens the configured database without building services.
func (o *rootOptions) openPools() (*internaldb.Pools, error) {
	_, dialect, dsn, err := o.target()
	if err != nil {
		return nil, err
	}
	return internaldb.Open(dialect, dsn, 0)
}

// open opens the configured database and wires the services.
func (o *rootOptions) open(cmd *cobra.Command) (*store, error) {
	cfg, dialect, dsn, err := o.target()
	if err != nil {
		return nil, err
	}
	pools, err := internaldb.Open(dialect, dsn, 0)
	if err != nil {
		return nil, err
	}

	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	datasetRepo := repository.NewDatasetRepo(pools)
	resolver := grid.NewResolver(grid.Options{
		Strict:       cfg.Grid.StrictFields,
		DefaultLimit: cfg.Grid.DefaultLimit,
		MaxLimit:     cfg.Grid.MaxLimit,
	})
	return &store{
		pools:    pools,
		datasets: datasets.NewService(datasetRepo, logger, nil),
		records:  records.NewService(datasetRepo, repository.NewRecordRepo(pools), resolver, logger),
	}, nil
}

func newCompletionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			default:
				return fmt.Errorf("unsupported shell: %s", args[0])
			}
		},
	}
}
