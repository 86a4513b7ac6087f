package domain

import (
	"testing"

	"plicore/testutil"
)

// TestDomainDoesNotImportInternal keeps the domain values importable by
// any consumer without dragging in the implementation packages.
func TestDomainDoesNotImportInternal(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.ModuleInternal, "domain must not import internal packages")
}
