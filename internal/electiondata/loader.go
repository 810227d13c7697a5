package electiondata

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/sourcegraph/conc"
)

const maxFileSize = 32 << 20

type FileFormat string

const (
	FormatJSON FileFormat = "json"
	FormatCSV  FileFormat = "csv"
)

// File is one dataset the loader tries to read.
type File struct {
	Path   string
	Format FileFormat
}

// Name is the dataset key: the base name without extension.
func (f File) Name() string {
	base := path.Base(f.Path)
	return strings.TrimSuffix(base, path.Ext(base))
}

// DefaultFiles is the fixed set of documents produced by the offline ETL.
var DefaultFiles = []File{
	{Path: "bihar-election-complete.json", Format: FormatJSON},
	{Path: "bihar-constituencies-master.json", Format: FormatJSON},
	{Path: "bihar-party-performance.json", Format: FormatJSON},
	{Path: "bihar-alliance-performance.json", Format: FormatJSON},
	{Path: "bihar-turnout-analysis.json", Format: FormatJSON},
	{Path: "bihar-winner-analysis.json", Format: FormatJSON},
	{Path: "bihar-seat-analysis.json", Format: FormatJSON},
	{Path: "bihar-elector-details.json", Format: FormatJSON},
	{Path: "bihar-constituencies-summary.csv", Format: FormatCSV},
}

// Source opens dataset files by relative path.
type Source interface {
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	String() string
}

// Loader reads every dataset once and caches the snapshot for the process
// lifetime. A load that yields no dataset is not cached.
type Loader struct {
	source Source
	files  []File
	logger *slog.Logger
	now    func() time.Time

	mu     sync.RWMutex
	cached *Snapshot
}

type LoaderOption func(*Loader)

func WithLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

func WithFiles(files ...File) LoaderOption {
	return func(l *Loader) {
		if len(files) > 0 {
			l.files = files
		}
	}
}

func NewLoader(src Source, opts ...LoaderOption) (*Loader, error) {
	if src == nil {
		return nil, errors.New("electiondata: source must not be nil")
	}
	l := &Loader{
		source: src,
		files:  DefaultFiles,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Snapshot returns the cached snapshot, loading it on first use. When no file
// can be read it returns DefaultSnapshot and tries again next time.
func (l *Loader) Snapshot(ctx context.Context) (*Snapshot, error) {
	l.mu.RLock()
	if l.cached != nil {
		defer l.mu.RUnlock()
		return l.cached, nil
	}
	l.mu.RUnlock()

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cached != nil {
		return l.cached, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	snap := l.load(ctx)
	if snap.Len() == 0 {
		l.logger.WarnContext(ctx, "no election data files found, using default data", "source", l.source.String())
		return DefaultSnapshot(), nil
	}
	l.logger.InfoContext(ctx, "election data loaded",
		"source", l.source.String(),
		"datasets", snap.Len(),
		"data_types", snap.DataTypes,
	)
	l.cached = snap
	return snap, nil
}

type loaded struct {
	raw  json.RawMessage
	rows []map[string]string
}

func (l *Loader) load(ctx context.Context) *Snapshot {
	results := make([]loaded, len(l.files))
	wg := conc.NewWaitGroup()
	for i, f := range l.files {
		wg.Go(func() {
			res, err := l.loadFile(ctx, f)
			if err != nil {
				l.logger.WarnContext(ctx, "failed to load dataset", "path", f.Path, "err", err)
				return
			}
			results[i] = res
		})
	}
	wg.Wait()

	snap := &Snapshot{
		JSON:     make(map[string]json.RawMessage),
		Tables:   make(map[string][]map[string]string),
		LoadedAt: l.now(),
	}
	seen := make(map[string]bool)
	for i, f := range l.files {
		res := results[i]
		var kind string
		switch {
		case res.raw != nil:
			snap.JSON[f.Name()] = res.raw
			kind = "JSON"
		case res.rows != nil:
			snap.Tables[f.Name()] = res.rows
			kind = "CSV"
		default:
			continue
		}
		if !seen[kind] {
			seen[kind] = true
			snap.DataTypes = append(snap.DataTypes, kind)
		}
	}
	return snap
}

func (l *Loader) loadFile(ctx context.Context, f File) (loaded, error) {
	rc, err := l.source.Open(ctx, f.Path)
	if err != nil {
		return loaded{}, err
	}
	defer func() { _ = rc.Close() }()

	buf, err := io.ReadAll(io.LimitReader(rc, maxFileSize))
	if err != nil {
		return loaded{}, fmt.Errorf("electiondata: read %s: %w", f.Path, err)
	}

	switch f.Format {
	case FormatJSON:
		raw, err := parseJSON(buf)
		if err != nil {
			return loaded{}, fmt.Errorf("electiondata: parse %s: %w", f.Path, err)
		}
		return loaded{raw: raw}, nil
	case FormatCSV:
		rows, err := parseCSV(buf)
		if err != nil {
			return loaded{}, fmt.Errorf("electiondata: parse %s: %w", f.Path, err)
		}
		return loaded{rows: rows}, nil
	default:
		return loaded{}, fmt.Errorf("electiondata: unsupported format %q", f.Format)
	}
}

// parseJSON rejects empty documents so they count as not loaded.
func parseJSON(buf []byte) (json.RawMessage, error) {
	var v any
	if err := json.Unmarshal(buf, &v); err != nil {
		return nil, err
	}
	switch t := v.(type) {
	case map[string]any:
		if len(t) == 0 {
			return nil, errors.New("empty document")
		}
	case []any:
		if len(t) == 0 {
			return nil, errors.New("empty document")
		}
	case nil:
		return nil, errors.New("empty document")
	}
	return json.RawMessage(bytes.TrimSpace(buf)), nil
}

// parseCSV reads a header row followed by records into header-keyed maps.
func parseCSV(buf []byte) ([]map[string]string, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(buf, []byte("\ufeff"))))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, errors.New("no data rows")
	}
	header := records[0]
	rows := make([]map[string]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(map[string]string, len(header))
		for i, h := range header {
			if i < len(rec) {
				row[strings.TrimSpace(h)] = rec[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
