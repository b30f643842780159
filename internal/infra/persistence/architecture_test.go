package persistence

import (
	"testing"

	"dormcore/testutil"
)

// Backends are opened by the repository only; everything else works on
// snapshots handed out by core.
func TestOnlyCoreImportsBackends(t *testing.T) {
	testutil.AssertImportBoundary(t, "dormcore/...", "dormcore/internal/infra/persistence", "dormcore/internal/core")
}
