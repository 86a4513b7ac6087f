package tables

import (
	"testing"

	"plicore/testutil"
)

func TestTablesIsALeaf(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.ModuleInternal, "tables are loaded by everyone else")
}
