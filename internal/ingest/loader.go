// Package ingest loads BOM sources (delimited text, XLSX workbooks, SQLite
// tables and S3 objects) into normalized model.SourceTables.
package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/StinkyLord/bom-tree-builder/internal/config"
	"github.com/StinkyLord/bom-tree-builder/internal/logging"
	"github.com/StinkyLord/bom-tree-builder/internal/metrics"
	"github.com/StinkyLord/bom-tree-builder/internal/model"
)

// Loader is the interface every source format implements.
type Loader interface {
	Name() string
	Load(ctx context.Context, opts Options) (*model.SourceTable, error)
}

// Options carries the settings shared by all loaders.
type Options struct {
	Aliases Aliases
	Logger  *zap.Logger
	Metrics *metrics.Registry
}

func (o Options) logger() *zap.Logger { return logging.OrNop(o.Logger) }

// NewLoader picks the loader for src. Format "auto" or "" chooses by path:
// s3:// URIs are fetched from S3, .xlsx/.xlsm are workbooks, .db/.sqlite
// are SQLite files and everything else is delimited text.
func NewLoader(src config.Source, s3 S3Settings) (Loader, error) {
	name := src.DisplayName()
	delim, err := parseDelimiter(src.Delimiter)
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", name, err)
	}

	if strings.HasPrefix(src.Path, "s3://") {
		bucket, key, err := parseS3URI(src.Path)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", name, err)
		}
		format := src.Format
		if format == "" || format == "auto" {
			format = formatFromExt(key)
		}
		if format == "sqlite" {
			return nil, fmt.Errorf("source %s: sqlite sources cannot be read from S3", name)
		}
		return &S3Loader{
			SourceName: name,
			Bucket:     bucket,
			Key:        key,
			Format:     format,
			Sheet:      src.Sheet,
			Delimiter:  delim,
			Settings:   s3,
		}, nil
	}

	format := src.Format
	if format == "" || format == "auto" {
		format = formatFromExt(src.Path)
	}
	switch format {
	case "text", "csv":
		return &TextLoader{SourceName: name, Path: src.Path, Delimiter: delim}, nil
	case "xlsx":
		return &XLSXLoader{SourceName: name, Path: src.Path, Sheet: src.Sheet}, nil
	case "sqlite":
		if !config.IsSQLIdent(src.Table) {
			return nil, fmt.Errorf("source %s: invalid sqlite table %q", name, src.Table)
		}
		return &SQLiteLoader{SourceName: name, Path: src.Path, Table: src.Table}, nil
	default:
		return nil, fmt.Errorf("source %s: unsupported format %q", name, format)
	}
}

// NewLoaders builds one loader per configured source, in priority order.
func NewLoaders(cfg *config.Config) ([]Loader, error) {
	st := S3Settings{Region: cfg.S3.Region, Endpoint: cfg.S3.Endpoint, UsePathStyle: cfg.S3.UsePathStyle}
	var out []Loader
	for _, src := range cfg.SourcesByPriority() {
		l, err := NewLoader(src, st)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}

func formatFromExt(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return "xlsx"
	case ".db", ".sqlite", ".sqlite3":
		return "sqlite"
	default:
		return "text"
	}
}

func parseDelimiter(s string) (rune, error) {
	switch s {
	case "":
		return 0, nil
	case `\t`, "tab":
		return '\t', nil
	}
	r := []rune(s)
	if len(r) != 1 {
		return 0, fmt.Errorf("delimiter %q must be a single character", s)
	}
	return r[0], nil
}
