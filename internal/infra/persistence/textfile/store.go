// Package textfile persists each entity kind as a line-oriented text file
// inside a data directory. Every save rewrites the affected files in full.
package textfile

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"dormcore/pkg/domain"
)

// Compile-time assertion that the text backend satisfies the repository contract.
var _ domain.Backend = (*Store)(nil)

// DefaultDir is the data directory used when none is configured.
const DefaultDir = "data"

var fileNames = map[domain.Kind]string{
	domain.KindStudent:  "students.txt",
	domain.KindRoom:     "rooms.txt",
	domain.KindContract: "contracts.txt",
	domain.KindFee:      "fees.txt",
}

// FileName returns the file used for kind inside the data directory.
func FileName(kind domain.Kind) string { return fileNames[kind] }

// Store is the flat-file backend. Writes go through a temp file and rename so
// a crash mid-write leaves the previous file intact.
type Store struct {
	dir    string
	logger domain.Logger
	mu     sync.Mutex
}

// Option customises a Store.
type Option func(*Store)

// WithLogger routes skipped-record and I/O diagnostics to logger.
func WithLogger(logger domain.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New returns a store rooted at dir, creating the directory if needed.
func New(dir string, opts ...Option) (*Store, error) {
	if dir == "" {
		dir = DefaultDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	s := &Store{dir: dir, logger: domain.NopLogger{}}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Dir returns the data directory.
func (s *Store) Dir() string { return s.dir }

// Path returns the absolute-or-relative file path for kind.
func (s *Store) Path(kind domain.Kind) string {
	return filepath.Join(s.dir, fileNames[kind])
}

// Load reads every collection. Malformed lines are logged and skipped.
func (s *Store) Load(_ context.Context) (domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var snapshot domain.Snapshot
	var err error
	if snapshot.Students, err = loadKind(s, domain.KindStudent, DecodeStudent, func(v domain.Student) int { return v.ID }); err != nil {
		return domain.Snapshot{}, err
	}
	if snapshot.Rooms, err = loadKind(s, domain.KindRoom, DecodeRoom, func(v domain.Room) int { return v.ID }); err != nil {
		return domain.Snapshot{}, err
	}
	if snapshot.Contracts, err = loadKind(s, domain.KindContract, DecodeContract, func(v domain.Contract) int { return v.ID }); err != nil {
		return domain.Snapshot{}, err
	}
	if snapshot.Fees, err = loadKind(s, domain.KindFee, DecodeFee, func(v domain.Fee) int { return v.ID }); err != nil {
		return domain.Snapshot{}, err
	}
	snapshot.Sort()
	return snapshot, nil
}

func loadKind[T any](s *Store, kind domain.Kind, decode func(string) (T, error), idOf func(T) int) ([]T, error) {
	path := s.Path(kind)
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	var out []T
	seen := make(map[int]struct{})
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSuffix(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		v, err := decode(line)
		if err != nil {
			s.logger.Warn("skipping malformed record", "file", path, "line", lineNo, "kind", string(kind), "error", err)
			continue
		}
		id := idOf(v)
		if _, dup := seen[id]; dup {
			s.logger.Warn("skipping duplicate record", "file", path, "line", lineNo, "kind", string(kind), "id", id)
			continue
		}
		seen[id] = struct{}{}
		out = append(out, v)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return out, nil
}

// Save rewrites the files for the requested kinds (all kinds when none given).
func (s *Store) Save(_ context.Context, snapshot domain.Snapshot, kinds ...domain.Kind) error {
	if len(kinds) == 0 {
		kinds = domain.Kinds()
	}
	snapshot.Sort()
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, kind := range kinds {
		lines, err := encodeKind(snapshot, kind)
		if err != nil {
			return err
		}
		if err := s.writeFile(s.Path(kind), lines); err != nil {
			s.logger.Error("write data file failed", "kind", string(kind), "error", err)
			return fmt.Errorf("save %s: %w", kind, err)
		}
	}
	return nil
}

func encodeKind(snapshot domain.Snapshot, kind domain.Kind) ([]string, error) {
	switch kind {
	case domain.KindStudent:
		return encodeAll(snapshot.Students, EncodeStudent), nil
	case domain.KindRoom:
		return encodeAll(snapshot.Rooms, EncodeRoom), nil
	case domain.KindContract:
		return encodeAll(snapshot.Contracts, EncodeContract), nil
	case domain.KindFee:
		return encodeAll(snapshot.Fees, EncodeFee), nil
	default:
		return nil, fmt.Errorf("unknown kind %q", kind)
	}
}

func encodeAll[T any](items []T, encode func(T) string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, encode(item))
	}
	return out
}

func (s *Store) writeFile(path string, lines []string) (retErr error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()
	w := bufio.NewWriter(tmp)
	for _, line := range lines {
		if _, err := w.WriteString(line); err != nil {
			return err
		}
		if err := w.WriteByte('\n'); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
