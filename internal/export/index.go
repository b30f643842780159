package export

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"dormcore/pkg/domain"
)

// IndexFileName is the reports index kept beside the entity data files.
const IndexFileName = "reports.txt"

// GeneratedLayout encodes ReportRecord.GeneratedAt in the index.
const GeneratedLayout = "2006-01-02T15:04:05"

const indexFields = 7

// Index is the pipe-delimited list of generated reports:
//
//	id|title|description|type|generatedDate|filePath|format
//
// Ids continue after the largest id found on load.
type Index struct {
	mu      sync.Mutex
	path    string
	logger  domain.Logger
	records []domain.ReportRecord
	nextID  int
}

// OpenIndex loads path. A missing file yields an empty index; malformed
// lines are skipped with a warning.
func OpenIndex(path string, logger domain.Logger) (*Index, error) {
	if logger == nil {
		logger = domain.NopLogger{}
	}
	idx := &Index{path: path, logger: logger, nextID: 1}
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return idx, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read reports index: %w", err)
	}
	scanner := bufio.NewScanner(bytes.NewReader(raw))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		text := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(text) == "" {
			continue
		}
		rec, err := decodeRecord(text)
		if err != nil {
			logger.Warn("skipping malformed reports index line", "file", path, "line", lineNo, "error", err)
			continue
		}
		idx.records = append(idx.records, rec)
		if rec.ID >= idx.nextID {
			idx.nextID = rec.ID + 1
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan reports index: %w", err)
	}
	return idx, nil
}

// Path returns the index file location.
func (x *Index) Path() string { return x.path }

// Records returns every record ordered by id.
func (x *Index) Records() []domain.ReportRecord {
	x.mu.Lock()
	defer x.mu.Unlock()
	out := append([]domain.ReportRecord(nil), x.records...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Append assigns the next id to rec, adds it and rewrites the file. On a
// write failure the record stays in memory and the error is returned.
func (x *Index) Append(rec domain.ReportRecord) (domain.ReportRecord, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	rec.ID = x.nextID
	x.nextID++
	x.records = append(x.records, rec)
	if err := x.saveLocked(); err != nil {
		x.logger.Error("write reports index failed", "file", x.path, "error", err)
		return rec, err
	}
	return rec, nil
}

func (x *Index) saveLocked() error {
	var buf bytes.Buffer
	for _, rec := range x.records {
		buf.WriteString(encodeRecord(rec))
		buf.WriteByte('\n')
	}
	dir := filepath.Dir(x.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".reports-*")
	if err != nil {
		return fmt.Errorf("create temp index: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp index: %w", err)
	}
	if err := os.Rename(tmp.Name(), x.path); err != nil {
		return fmt.Errorf("replace index: %w", err)
	}
	return nil
}

// field substitutes the delimiter and line breaks in free text.
func field(s string) string {
	return strings.NewReplacer("|", "/", "\r", " ", "\n", " ").Replace(s)
}

func encodeRecord(r domain.ReportRecord) string {
	return strings.Join([]string{
		strconv.Itoa(r.ID),
		field(r.Title),
		field(r.Description),
		field(r.Type),
		r.GeneratedAt.Format(GeneratedLayout),
		field(r.Path),
		string(r.Format),
	}, "|")
}

func decodeRecord(line string) (domain.ReportRecord, error) {
	parts := strings.Split(line, "|")
	if len(parts) < indexFields {
		return domain.ReportRecord{}, fmt.Errorf("expected %d fields, got %d", indexFields, len(parts))
	}
	id, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || id <= 0 {
		return domain.ReportRecord{}, fmt.Errorf("bad id %q", parts[0])
	}
	generated, err := time.Parse(GeneratedLayout, parts[4])
	if err != nil {
		return domain.ReportRecord{}, fmt.Errorf("bad generated date %q: %w", parts[4], err)
	}
	format := domain.ReportFormat(strings.ToUpper(parts[6]))
	if format != domain.FormatExcel && format != domain.FormatText {
		return domain.ReportRecord{}, fmt.Errorf("unknown format %q", parts[6])
	}
	return domain.ReportRecord{
		ID:          id,
		Title:       parts[1],
		Description: parts[2],
		Type:        parts[3],
		GeneratedAt: generated,
		Path:        parts[5],
		Format:      format,
		Status:      domain.ReportCompleted,
	}, nil
}
