// Package report computes the dormitory reports from repository snapshots and
// caches the results for a fixed time window.
package report

import (
	"fmt"
	"strings"
	"time"

	"dormcore/pkg/domain"
)

// Kind names one of the fixed report computations.
type Kind string

// Supported reports.
const (
	KindOccupancy Kind = "occupancy"
	KindFinancial Kind = "financial"
	KindStudents  Kind = "students"
	KindContracts Kind = "contracts"
	KindSummary   Kind = "summary"
)

var titles = map[Kind]string{
	KindOccupancy: "ROOM OCCUPANCY REPORT",
	KindFinancial: "FINANCIAL REPORT",
	KindStudents:  "STUDENT STATISTICS REPORT",
	KindContracts: "CONTRACT REPORT",
	KindSummary:   "DORMITORY MANAGEMENT SYSTEM - SUMMARY REPORT",
}

// Kinds returns every report kind in menu order.
func Kinds() []Kind {
	return []Kind{KindOccupancy, KindFinancial, KindStudents, KindContracts, KindSummary}
}

// ParseKind resolves a report kind by name.
func ParseKind(raw string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := titles[k]; !ok {
		return "", fmt.Errorf("%w: unknown report %q", domain.ErrInvalid, raw)
	}
	return k, nil
}

// Title returns the report heading.
func (k Kind) Title() string {
	if t, ok := titles[k]; ok {
		return t
	}
	return strings.ToUpper(string(k))
}

// Line is a labelled value. An empty label renders the value alone.
type Line struct {
	Label string `json:"label,omitempty"`
	Value string `json:"value"`
}

// Group is a named block of bullet lines inside a section.
type Group struct {
	Name  string `json:"name"`
	Lines []Line `json:"lines"`
}

// Section is one headed part of a report.
type Section struct {
	Heading string  `json:"heading,omitempty"`
	Lines   []Line  `json:"lines,omitempty"`
	Groups  []Group `json:"groups,omitempty"`
}

// Document is a computed report, renderable as text or as a table.
type Document struct {
	Kind        Kind      `json:"kind"`
	Title       string    `json:"title"`
	GeneratedAt time.Time `json:"generated_at"`
	Notice      string    `json:"notice,omitempty"`
	Sections    []Section `json:"sections"`
}

// Text renders the document in the plain report layout.
func (d Document) Text() string {
	if d.Notice != "" {
		return d.Notice + "\n"
	}
	var b strings.Builder
	b.WriteString(d.Title)
	b.WriteByte('\n')
	b.WriteString(strings.Repeat("=", len(d.Title)))
	b.WriteString("\n\n")
	for i, s := range d.Sections {
		if i > 0 {
			b.WriteByte('\n')
		}
		if s.Heading != "" {
			b.WriteString(s.Heading)
			b.WriteString(":\n")
			b.WriteString(strings.Repeat("-", len(s.Heading)+1))
			b.WriteByte('\n')
		}
		for _, l := range s.Lines {
			writeLine(&b, "", l)
		}
		for _, g := range s.Groups {
			fmt.Fprintf(&b, "\n%s:\n", g.Name)
			for _, l := range g.Lines {
				writeLine(&b, "- ", l)
			}
		}
	}
	return b.String()
}

func writeLine(b *strings.Builder, prefix string, l Line) {
	b.WriteString(prefix)
	if l.Label != "" {
		b.WriteString(l.Label)
		b.WriteString(": ")
	}
	b.WriteString(l.Value)
	b.WriteByte('\n')
}

// Rows flattens the document into section, group, metric and value columns.
func (d Document) Rows() [][]string {
	var rows [][]string
	if d.Notice != "" {
		return [][]string{{"", "", "", d.Notice}}
	}
	for _, s := range d.Sections {
		for _, l := range s.Lines {
			rows = append(rows, []string{s.Heading, "", l.Label, l.Value})
		}
		for _, g := range s.Groups {
			for _, l := range g.Lines {
				rows = append(rows, []string{s.Heading, g.Name, l.Label, l.Value})
			}
		}
	}
	return rows
}

// RowHeaders names the columns produced by Rows.
var RowHeaders = []string{"Section", "Group", "Metric", "Value"}

func line(label string, format string, args ...any) Line {
	return Line{Label: label, Value: fmt.Sprintf(format, args...)}
}

// Percent renders part/whole as a whole percentage. A zero whole yields "N/A".
func Percent(part, whole int64) string {
	if whole == 0 {
		return "N/A"
	}
	return fmt.Sprintf("%.0f%%", float64(part)*100/float64(whole))
}

// Share renders part/whole with one decimal, zero when whole is zero.
func Share(part, whole int) string {
	if whole == 0 {
		return "0.0%"
	}
	return fmt.Sprintf("%.1f%%", float64(part)*100/float64(whole))
}
