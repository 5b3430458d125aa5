package main

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/hpungsan/libreplot/internal/config"
	"github.com/hpungsan/libreplot/internal/db"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// env holds what the commands share. The database is opened on first use so
// that commands working only on export files never touch ~/.libreplot.
type env struct {
	baseDir string
	cfg     *config.Config
	log     *zap.Logger
	db      *sql.DB
}

// database opens the import store on first use.
func (e *env) database() (*sql.DB, error) {
	if e.db != nil {
		return e.db, nil
	}
	database, err := db.Init(e.baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	e.db = database
	return database, nil
}

func (e *env) close() {
	if e.db != nil {
		e.db.Close()
	}
	if e.log != nil {
		_ = e.log.Sync()
	}
}

func main() {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: could not determine home directory: %v\n", err)
		os.Exit(1)
	}
	baseDir := filepath.Join(homeDir, ".libreplot")

	wd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: could not determine working directory: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.LoadWithRepo(baseDir, wd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "error: invalid config: %v\n", err)
		os.Exit(1)
	}

	e := &env{baseDir: baseDir, cfg: cfg}
	app := newCLIApp(e)
	err = app.Run(os.Args)
	e.close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
