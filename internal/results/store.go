package results

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"herpid/internal/logging"
	"herpid/internal/verdict"
)

var header = []string{"reference", "species", "query_image", "is_match", "result_text"}

// Store manages the persisted result table and its in-memory mirror. All
// access is single-goroutine by design; the batch loop is sequential.
type Store struct {
	path    string
	logger  *slog.Logger
	records []Record
	seen    map[Key]struct{}
}

// Open creates a store bound to a results file. No I/O happens until Load,
// Append, or Clear.
func Open(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Store{
		path:   path,
		logger: logging.WithComponent(logger, "results"),
		seen:   make(map[Key]struct{}),
	}
}

// Path returns the location of the persisted table.
func (s *Store) Path() string {
	return s.path
}

// Load hydrates prior results from disk. A missing or unreadable table is
// not fatal: the batch starts from empty state and a warning is logged.
// When retryFailures is set, rows recorded from failed units are dropped so
// their work units run again; the next flush rewrites the table without them.
func (s *Store) Load(retryFailures bool) int {
	s.records = nil
	s.seen = make(map[Key]struct{})

	file, err := os.Open(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("could not read prior results, starting fresh", slog.String("path", s.path), slog.Any("error", err))
		}
		return 0
	}
	defer file.Close()

	records, err := readTable(file)
	if err != nil {
		s.logger.Warn("could not parse prior results, starting fresh", slog.String("path", s.path), slog.Any("error", err))
		return 0
	}

	dropped := 0
	for _, rec := range records {
		if retryFailures && rec.Failed() {
			dropped++
			continue
		}
		if _, dup := s.seen[rec.Key()]; dup {
			s.logger.Warn("duplicate row in prior results, keeping first",
				slog.String("reference", rec.Reference),
				slog.String("species", rec.Species),
				slog.String("query_image", rec.QueryImage),
			)
			continue
		}
		s.records = append(s.records, rec)
		s.seen[rec.Key()] = struct{}{}
	}
	if dropped > 0 {
		s.logger.Info("dropped failed rows for re-attempt", slog.Int("count", dropped))
	}
	return len(s.records)
}

// Contains reports whether a result for the key has already been recorded.
func (s *Store) Contains(key Key) bool {
	_, ok := s.seen[key]
	return ok
}

// Len returns the number of records currently held.
func (s *Store) Len() int {
	return len(s.records)
}

// Records returns the in-memory records in append order.
func (s *Store) Records() []Record {
	return s.records
}

// Append records one outcome and immediately persists the full table. A
// crash mid-flush loses at most this record; previously flushed rows stay
// intact because the rewrite lands via rename.
func (s *Store) Append(rec Record) error {
	key := rec.Key()
	if s.Contains(key) {
		return fmt.Errorf("results append: duplicate key %s/%s/%s", key.Reference, key.Species, key.QueryImage)
	}
	rec.ResultText = NormalizeText(rec.ResultText)

	s.records = append(s.records, rec)
	s.seen[key] = struct{}{}

	if err := s.flush(); err != nil {
		return fmt.Errorf("results append: %w", err)
	}
	return nil
}

// Clear empties the store and removes the persisted table (fresh mode).
func (s *Store) Clear() error {
	s.records = nil
	s.seen = make(map[Key]struct{})
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("results clear: %w", err)
	}
	return nil
}

// Tally counts records per verdict plus failed rows.
type Tally struct {
	Match   int
	NoMatch int
	Unknown int
	Failed  int
}

// Count tallies the current records for summary output.
func (s *Store) Count() Tally {
	var tally Tally
	for _, rec := range s.records {
		if rec.Failed() {
			tally.Failed++
			continue
		}
		switch rec.Verdict {
		case verdict.Match:
			tally.Match++
		case verdict.NoMatch:
			tally.NoMatch++
		default:
			tally.Unknown++
		}
	}
	return tally
}

// flush rewrites the whole table atomically: write a temp file alongside the
// target, then rename over it.
func (s *Store) flush() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensure results directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".results-*.csv")
	if err != nil {
		return fmt.Errorf("create temp table: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if tmpPath != "" {
			_ = os.Remove(tmpPath)
		}
	}()

	writer := csv.NewWriter(tmp)
	if err := writer.Write(header); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write header: %w", err)
	}
	for _, rec := range s.records {
		row := []string{rec.Reference, rec.Species, rec.QueryImage, rec.Verdict.Serialize(), rec.ResultText}
		if err := writer.Write(row); err != nil {
			_ = tmp.Close()
			return fmt.Errorf("write row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("flush rows: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp table: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp table: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("replace table: %w", err)
	}
	tmpPath = ""
	return nil
}

func readTable(r io.Reader) ([]Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(header)

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read table: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	if rows[0][0] != header[0] {
		return nil, fmt.Errorf("read table: unexpected header %v", rows[0])
	}

	records := make([]Record, 0, len(rows)-1)
	for i, row := range rows[1:] {
		v, err := verdict.Deserialize(row[3])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		records = append(records, Record{
			Reference:  row[0],
			Species:    row[1],
			QueryImage: row[2],
			Verdict:    v,
			ResultText: row[4],
		})
	}
	return records, nil
}
