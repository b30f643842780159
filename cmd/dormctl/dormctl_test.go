package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"dormcore/pkg/domain"
)

type cli struct {
	t       *testing.T
	dataDir string
	reports string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("DORMCORE_LOG_LEVEL", "error")
	t.Setenv("DORMCORE_EXPORT_DRIVER", "fs")
	t.Setenv("DORMCORE_EXPORT_ROOT", filepath.Join(dir, "reports"))
	return &cli{t: t, dataDir: filepath.Join(dir, "data"), reports: filepath.Join(dir, "reports")}
}

func (c *cli) run(args ...string) (string, error) {
	c.t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	base := []string{
		"--config", filepath.Join(c.dataDir, "absent.yaml"),
		"--env-file", filepath.Join(c.dataDir, "absent.env"),
		"--data-dir", c.dataDir,
		"--storage", "text",
	}
	root.SetArgs(append(base, args...))
	err := root.Execute()
	return out.String(), err
}

func (c *cli) mustRun(args ...string) string {
	c.t.Helper()
	out, err := c.run(args...)
	if err != nil {
		c.t.Fatalf("dormctl %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

func TestSeededListings(t *testing.T) {
	c := newCLI(t)
	rooms := c.mustRun("rooms", "list")
	for _, want := range []string{"Rooms", "P401", "P802", "OCCUPIED", "AVAILABLE"} {
		if !strings.Contains(rooms, want) {
			t.Fatalf("rooms list missing %q:\n%s", want, rooms)
		}
	}
	students := c.mustRun("students", "search", "thi")
	if !strings.Contains(students, "ST003") || strings.Contains(students, "ST001") {
		t.Fatalf("unexpected search result:\n%s", students)
	}
	if _, err := os.Stat(filepath.Join(c.dataDir)); err != nil {
		t.Fatalf("data dir not created: %v", err)
	}
}

func TestMutationsPersistAcrossInvocations(t *testing.T) {
	c := newCLI(t)
	out := c.mustRun("students", "add", "--code", "ST900", "--name", "Tran Van E", "--birth", "2005-01-02", "--gender", "Male")
	if !strings.Contains(out, "Added student 5 (ST900)") {
		t.Fatalf("unexpected add output %q", out)
	}
	c.mustRun("assign", "5", "2")
	if got := c.mustRun("rooms", "occupancy", "2"); got != "occupied=1 available=3 full=false\n" {
		t.Fatalf("unexpected occupancy %q", got)
	}
	inRoom := c.mustRun("students", "in-room", "2")
	if !strings.Contains(inRoom, "ST900") {
		t.Fatalf("student not listed in room:\n%s", inRoom)
	}
	c.mustRun("unassign", "5")
	if got := c.mustRun("rooms", "occupancy", "2"); got != "occupied=0 available=4 full=false\n" {
		t.Fatalf("unexpected occupancy after unassign %q", got)
	}
	c.mustRun("students", "update", "5", "--hometown", "Da Nang")
	if got := c.mustRun("students", "get", "5"); !strings.Contains(got, "Da Nang") || !strings.Contains(got, "Tran Van E") {
		t.Fatalf("partial update lost fields:\n%s", got)
	}
}

func TestFeeWorkflow(t *testing.T) {
	c := newCLI(t)
	out := c.mustRun("fees", "generate", "--kind", "water", "--amount", "15.50", "--due", "2030-01-31")
	if out != "Generated 4 Water fees\n" {
		t.Fatalf("unexpected generate output %q", out)
	}
	out = c.mustRun("fees", "pay", "3", "--method", "Card")
	if !strings.Contains(out, "Fee F003 paid on") || !strings.HasSuffix(out, "by Card\n") {
		t.Fatalf("unexpected pay output %q", out)
	}
	if _, err := c.run("fees", "pay", "3"); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("paying twice should fail with invalid transition, got %v", err)
	}
	totals := c.mustRun("fees", "totals")
	if !strings.Contains(totals, "Water") || !strings.Contains(totals, "62.00") {
		t.Fatalf("unexpected totals:\n%s", totals)
	}
}

func TestContractCommands(t *testing.T) {
	c := newCLI(t)
	out := c.mustRun("contracts", "terminate", "1")
	if out != "Contract C001 is now TERMINATED\n" {
		t.Fatalf("unexpected terminate output %q", out)
	}
	active := c.mustRun("contracts", "active")
	if strings.Contains(active, "C001") || !strings.Contains(active, "C002") {
		t.Fatalf("unexpected active contracts:\n%s", active)
	}
}

func TestReportAndExport(t *testing.T) {
	c := newCLI(t)
	text := c.mustRun("report", "occupancy")
	if !strings.HasPrefix(text, "ROOM OCCUPANCY REPORT\n") {
		t.Fatalf("unexpected report:\n%s", text)
	}
	out := c.mustRun("export", "report", "summary", "--format", "excel")
	if !strings.HasPrefix(out, "Exported #1 DORMITORY MANAGEMENT SYSTEM - SUMMARY REPORT to ") {
		t.Fatalf("unexpected export output %q", out)
	}
	out = c.mustRun("export", "entities", "rooms")
	if !strings.HasPrefix(out, "Exported #2 Rooms List to ") {
		t.Fatalf("unexpected entity export output %q", out)
	}
	xlsx, _ := filepath.Glob(filepath.Join(c.reports, "excel", "*.xlsx"))
	txt, _ := filepath.Glob(filepath.Join(c.reports, "text", "*.txt"))
	if len(xlsx) != 1 || len(txt) != 1 {
		t.Fatalf("expected one file per format, got %v %v", xlsx, txt)
	}
	listing := c.mustRun("reports")
	for _, want := range []string{"SUMMARY", "ROOM_LIST", "EXCEL", "TEXT", "COMPLETED"} {
		if !strings.Contains(listing, want) {
			t.Fatalf("reports listing missing %q:\n%s", want, listing)
		}
	}
}

func TestErrorsMapToExitCodes(t *testing.T) {
	c := newCLI(t)
	_, err := c.run("students", "get", "99")
	if code := exitCode(err); code != 3 {
		t.Fatalf("missing student: exit %d (%v)", code, err)
	}
	_, err = c.run("rooms", "get", "abc")
	if code := exitCode(err); code != 2 {
		t.Fatalf("bad id: exit %d (%v)", code, err)
	}
	_, err = c.run("report", "weekly")
	if code := exitCode(err); code != 2 {
		t.Fatalf("unknown report: exit %d (%v)", code, err)
	}
	if _, err := c.run("--on-exit", "later", "rooms", "list"); err == nil {
		t.Fatalf("expected bad exit policy to fail")
	}
	if _, err := c.run("--storage", "mongo", "rooms", "list"); err == nil || !strings.Contains(err.Error(), "storage.driver") {
		t.Fatalf("expected storage validation error, got %v", err)
	}
}

func TestParseEntityKind(t *testing.T) {
	for raw, want := range map[string]domain.Kind{"students": domain.KindStudent, "Room": domain.KindRoom, "fees": domain.KindFee} {
		got, err := parseEntityKind(raw)
		if err != nil || got != want {
			t.Fatalf("parseEntityKind(%q) = %q, %v", raw, got, err)
		}
	}
	if _, err := parseEntityKind("wardens"); !errors.Is(err, domain.ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
}

func TestPrintMetrics(t *testing.T) {
	c := newCLI(t)
	t.Setenv("DORMCORE_METRICS", "prometheus")
	out := c.mustRun("--print-metrics", "fees", "mark-overdue")
	for _, want := range []string{"Marked 0 fees overdue", "dormcore_repository_operations_total", `operation="mark_overdue_fees"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
	t.Setenv("DORMCORE_METRICS", "expvar")
	out = c.mustRun("--print-metrics", "fees", "mark-overdue")
	if !strings.Contains(out, `"results_total"`) {
		t.Fatalf("expvar document missing:\n%s", out)
	}
}

func TestTraceWritesOperationLines(t *testing.T) {
	c := newCLI(t)
	out := c.mustRun("--trace", "fees", "mark-overdue")
	if !strings.Contains(out, `"operation":"mark_overdue_fees","outcome":"success"`) {
		t.Fatalf("trace line missing:\n%s", out)
	}
	t.Setenv("DORMCORE_TRACE", "stderr")
	out = c.mustRun("students", "get", "1")
	if !strings.Contains(out, `"operation":"open","outcome":"success"`) {
		t.Fatalf("env-enabled trace missing:\n%s", out)
	}
	t.Setenv("DORMCORE_TRACE", "verbose")
	if _, err := c.run("rooms", "list"); err == nil || !strings.Contains(err.Error(), "trace") {
		t.Fatalf("expected trace validation error, got %v", err)
	}
}
