package export

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"dormcore/internal/infra/artifact"
	"dormcore/internal/report"
	"dormcore/pkg/domain"
)

// FileTimeLayout is the timestamp embedded in exported file names.
const FileTimeLayout = "20060102_150405"

var unsafeTitle = regexp.MustCompile(`[^a-zA-Z0-9]`)

// ParseFormat resolves an export format name.
func ParseFormat(raw string) (domain.ReportFormat, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "excel", "xlsx":
		return domain.FormatExcel, nil
	case "", "text", "txt":
		return domain.FormatText, nil
	}
	return "", fmt.Errorf("%w: unknown export format %q", domain.ErrInvalid, raw)
}

func layout(format domain.ReportFormat) (dir, ext, contentType string) {
	if format == domain.FormatExcel {
		return "excel", "xlsx", ContentTypeExcel
	}
	return "text", "txt", ContentTypeText
}

// Key returns the artifact key for a title exported at the given time, e.g.
// "excel/Summary_Report_20240901_103000.xlsx".
func Key(title string, at time.Time, format domain.ReportFormat) string {
	dir, ext, _ := layout(format)
	return fmt.Sprintf("%s/%s_%s.%s", dir, unsafeTitle.ReplaceAllString(title, "_"), at.Format(FileTimeLayout), ext)
}

// Clock supplies export timestamps.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Exporter encodes reports and listings, writes them to an artifact store
// and appends a record to the reports index.
type Exporter struct {
	store  artifact.Store
	index  *Index
	clock  Clock
	logger domain.Logger
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithClock overrides the wall clock.
func WithClock(c Clock) Option {
	return func(e *Exporter) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithLogger sets the exporter logger.
func WithLogger(l domain.Logger) Option {
	return func(e *Exporter) {
		if l != nil {
			e.logger = l
		}
	}
}

// New builds an exporter writing to store and recording into index.
func New(store artifact.Store, index *Index, opts ...Option) *Exporter {
	e := &Exporter{store: store, index: index, clock: systemClock{}, logger: domain.NopLogger{}}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Records lists the reports index.
func (e *Exporter) Records() []domain.ReportRecord { return e.index.Records() }

// ExportReport writes a computed report.
func (e *Exporter) ExportReport(ctx context.Context, doc report.Document, format domain.ReportFormat) (domain.ReportRecord, error) {
	var buf bytes.Buffer
	var err error
	if format == domain.FormatExcel {
		err = WriteExcel(&buf, DocumentTable(doc))
	} else {
		_, err = buf.WriteString(doc.Text())
	}
	if err != nil {
		return domain.ReportRecord{}, fmt.Errorf("encode %s report: %w", doc.Kind, err)
	}
	rec := domain.ReportRecord{
		Title:       doc.Title,
		Description: fmt.Sprintf("%s report generated %s", doc.Kind, doc.GeneratedAt.Format(GeneratedLayout)),
		Type:        strings.ToUpper(string(doc.Kind)),
	}
	return e.write(ctx, rec, format, &buf)
}

// ExportEntities writes a listing of one entity kind taken from snap.
func (e *Exporter) ExportEntities(ctx context.Context, kind domain.Kind, snap domain.Snapshot, format domain.ReportFormat) (domain.ReportRecord, error) {
	table, ok := EntityTables(kind, snap)
	if !ok {
		return domain.ReportRecord{}, fmt.Errorf("%w: unknown entity kind %q", domain.ErrInvalid, kind)
	}
	var buf bytes.Buffer
	var err error
	if format == domain.FormatExcel {
		err = WriteExcel(&buf, table)
	} else {
		err = WriteTableText(&buf, table)
	}
	if err != nil {
		return domain.ReportRecord{}, fmt.Errorf("encode %s list: %w", kind, err)
	}
	rec := domain.ReportRecord{
		Title:       table.Name + " List",
		Description: fmt.Sprintf("%d %s records", len(table.Rows), kind),
		Type:        strings.ToUpper(string(kind)) + "_LIST",
	}
	return e.write(ctx, rec, format, &buf)
}

func (e *Exporter) write(ctx context.Context, rec domain.ReportRecord, format domain.ReportFormat, body *bytes.Buffer) (domain.ReportRecord, error) {
	now := e.clock.Now().Truncate(time.Second)
	_, _, contentType := layout(format)
	key := Key(rec.Title, now, format)
	info, err := e.store.Put(ctx, key, bytes.NewReader(body.Bytes()), artifact.PutOptions{
		ContentType: contentType,
		Metadata:    map[string]string{"report-type": rec.Type},
	})
	if err != nil {
		e.logger.Error("export write failed", "key", key, "error", err)
		return domain.ReportRecord{}, fmt.Errorf("write %s: %w", key, err)
	}
	rec.GeneratedAt = now
	rec.Path = info.Location
	rec.Format = format
	rec.Status = domain.ReportCompleted
	rec, err = e.index.Append(rec)
	if err != nil {
		return rec, fmt.Errorf("record export: %w", err)
	}
	e.logger.Info("report exported", "id", rec.ID, "path", rec.Path, "format", rec.Format)
	return rec, nil
}
