package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/sprin/trac-post-receive-hook/internal/config"
	"github.com/sprin/trac-post-receive-hook/internal/git"
	"github.com/sprin/trac-post-receive-hook/internal/hook"
	"github.com/sprin/trac-post-receive-hook/internal/notify"
	"github.com/sprin/trac-post-receive-hook/internal/trac"
)

var (
	configPath string
	verbose    bool
	dryRun     bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "post-receive",
		Short:         "Trac post-receive hook for ticket branches",
		Long:          "Reads ref updates from stdin, routes new commit messages to Trac tickets, and posts one consolidated comment per ticket per push.",
		RunE:          run,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to hook config file (default $"+config.EnvConfigPath+", then hook.toml)")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print debug output")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "route commits and print targets without posting")

	rootCmd.AddCommand(newInitDBCmd())
	rootCmd.AddCommand(newVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if verbose {
		cfg.Verbose = true
	}
	if dryRun {
		cfg.PostComment = false
	}

	env, err := trac.OpenEnv(cfg.TracEnvPath())
	if err != nil {
		return err
	}
	db, err := env.Connect(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	history, err := git.Open(cfg.GitPath, cfg.GitDir)
	if err != nil {
		return err
	}

	logger := log.New(cmd.ErrOrStderr(), "post-receive: ", 0)
	notifier := notify.New(env, cfg.Notification)

	h := hook.New(cfg, history, db, notifier, logger)
	return h.Run(cmd.InOrStdin())
}

func newInitDBCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init-db",
		Short: "Create the seen-commit ledger table if it does not exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			env, err := trac.OpenEnv(cfg.TracEnvPath())
			if err != nil {
				return err
			}
			db, err := env.Connect(cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := trac.EnsureSchema(db); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "git_seen table ready")
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the hook version",
		Run: func(cmd *cobra.Command, args []string) {
			version := os.Getenv("TRAC_HOOK_VERSION")
			if version == "" {
				version = "0.0.0-dev"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "post-receive %s\n", version)
		},
	}
}
