package logging

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug": zapcore.DebugLevel,
		"warn":  zapcore.WarnLevel,
		"error": zapcore.ErrorLevel,
		"":      zapcore.InfoLevel,
		"loud":  zapcore.InfoLevel,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestNewBuildsBothFormats(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		l, err := New("debug", format, "dormctl")
		if err != nil {
			t.Fatalf("%s: %v", format, err)
		}
		if !l.Core().Enabled(zapcore.DebugLevel) {
			t.Fatalf("%s: debug level not applied", format)
		}
		_ = l.Sync()
	}
}

func TestAdapterForwardsKeyValues(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	a := Adapt(zap.New(core)).Named("textfile")
	a.Debug("loaded", "kind", "student", "count", 4)
	a.Info("saved")
	a.Warn("skipping malformed line", "line", 3)
	a.Error("write data file failed", "error", "disk full")

	entries := logs.All()
	if len(entries) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(entries))
	}
	first := entries[0]
	if first.LoggerName != "textfile" || first.ContextMap()["kind"] != "student" || first.ContextMap()["count"] != int64(4) {
		t.Fatalf("unexpected first entry %+v %v", first.Entry, first.ContextMap())
	}
	if entries[3].Level != zapcore.ErrorLevel {
		t.Fatalf("unexpected level %s", entries[3].Level)
	}
	Adapt(nil).Info("discarded")
}
