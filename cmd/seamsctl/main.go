// Command seamsctl administers a SEAMS installation: users, database tables,
// the observation index, and offline grid and frame tools.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"seams/internal/config"
	"seams/internal/logger"
	"seams/internal/repository/sqlite"
)

// env holds what the subcommands share. Config and logger are loaded lazily
// so that offline tools work without a configured installation.
type env struct {
	configFile string
	cfg        *config.Config
	log        *logger.Logger
	db         *sqlite.DB
}

func (e *env) config() (*config.Config, error) {
	if e.cfg != nil {
		return e.cfg, nil
	}
	var err error
	if e.configFile != "" {
		e.cfg, err = config.LoadFile(e.configFile)
	} else {
		e.cfg, err = config.Load()
	}
	return e.cfg, err
}

func (e *env) logger() (*logger.Logger, error) {
	if e.log != nil {
		return e.log, nil
	}
	cfg, err := e.config()
	if err != nil {
		return nil, err
	}
	e.log, err = logger.NewQuiet(cfg.LogDirectory)
	return e.log, err
}

func (e *env) database() (*sqlite.DB, error) {
	if e.db != nil {
		return e.db, nil
	}
	cfg, err := e.config()
	if err != nil {
		return nil, err
	}
	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	e.db = db
	return db, nil
}

func (e *env) close() {
	if e.db != nil {
		e.db.Close()
	}
	if e.log != nil {
		e.log.Close()
	}
}

func newRootCommand(e *env) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "seamsctl",
		Short:         "Administration tool for the SEAMS annotation server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&e.configFile, "config", "c", "", "Path to configuration (default: seams.{toml,yaml,json} in . or ./config)")

	rootCmd.AddCommand(
		usersCommand(e),
		tablesCommand(e),
		reindexCommand(e),
		gridCommand(e),
		framesCommand(e),
	)
	return rootCmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	e := &env{}
	err := newRootCommand(e).ExecuteContext(ctx)
	e.close()
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
