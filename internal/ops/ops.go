// Package ops implements the user-facing operations shared by the CLI, the
// directory watcher and the MCP server.
package ops

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/hpungsan/libreplot/internal/config"
	"github.com/hpungsan/libreplot/internal/errors"
	"github.com/hpungsan/libreplot/internal/parse"
	"github.com/hpungsan/libreplot/internal/record"
	"github.com/hpungsan/libreplot/internal/timeline"
)

// Pagination limits
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// Dataset is one export after parsing and normalization.
type Dataset struct {
	Path     string
	Lines    int
	Failed   int
	Reported int
	Days     []timeline.DayGroup
}

// Records returns the normalized records of every day in order.
func (d *Dataset) Records() []record.Record {
	return timeline.Flatten(d.Days)
}

// Load parses the export at path and normalizes it into day groups.
func Load(cfg *config.Config, log *zap.Logger, path string) (*Dataset, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.NewInvalidRequest("path is required")
	}
	cfg = orDefault(cfg)
	if log == nil {
		log = zap.NewNop()
	}

	mode, err := timeline.ParseSplitMode(cfg.DaySplit)
	if err != nil {
		return nil, errors.NewInvalidRequest(err.Error())
	}

	p := parse.New(
		parse.WithSeparator(cfg.Separator),
		parse.WithPreambleLines(cfg.PreambleLines),
		parse.WithLogger(log),
	)
	res, err := p.ParseFile(path)
	if err != nil {
		return nil, err
	}

	days := timeline.Normalize(res.Records, mode)
	log.Info("export loaded",
		zap.String("path", path),
		zap.Int("lines", res.Lines),
		zap.Int("records", len(res.Records)),
		zap.Int("failed", res.Failed),
		zap.Int("days", len(days)),
	)

	return &Dataset{
		Path:     path,
		Lines:    res.Lines,
		Failed:   res.Failed,
		Reported: res.Reported,
		Days:     days,
	}, nil
}

func orDefault(cfg *config.Config) *config.Config {
	if cfg == nil {
		return config.DefaultConfig()
	}
	return cfg
}

// outputDir returns dir, or the configured output directory when dir is empty.
func outputDir(cfg *config.Config, dir string) string {
	if dir != "" {
		return dir
	}
	return orDefault(cfg).OutputDir
}

// defaultOutputPath names an output file after the export's base name.
func defaultOutputPath(cfg *config.Config, exportPath, suffix string) string {
	base := strings.TrimSuffix(filepath.Base(exportPath), filepath.Ext(exportPath))
	return filepath.Join(outputDir(cfg, ""), SanitizeForFilename(base)+suffix)
}

// cleanOptionalString trims s and returns nil when nothing is left.
func cleanOptionalString(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// writeAtomic writes through a temp file next to path and renames it into
// place, so an existing file survives a failed write.
func writeAtomic(path string, write func(io.Writer) error) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to create output directory: %w", err))
	}

	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	tempPath := path + "." + hex.EncodeToString(randBytes) + ".tmp"
	file, err := openFileNoFollow(tempPath, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0644)
	if err != nil {
		return errors.NewInternal(fmt.Errorf("failed to create output file: %w", err))
	}

	defer func() {
		if err != nil {
			file.Close()
			os.Remove(tempPath)
		}
	}()

	if err = write(file); err != nil {
		return err
	}
	if err = file.Sync(); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to sync output file: %w", err))
	}
	if err = file.Close(); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to close output file: %w", err))
	}
	if err = os.Rename(tempPath, path); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to finalize output file: %w", err))
	}
	return nil
}
