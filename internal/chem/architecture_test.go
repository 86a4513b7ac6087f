package chem

import (
	"testing"

	"plicore/testutil"
)

func TestChemSitsBelowAnnotation(t *testing.T) {
	upward := testutil.Within("internal/annotate", "internal/contacts", "internal/validation", "internal/mmp", "internal/artifact")
	testutil.AssertNoDirectImports(t, ".", upward, "chem only depends on structure")
}

func TestChemHasNoTransitiveStorageDependency(t *testing.T) {
	if testing.Short() {
		t.Skip("runs go list")
	}
	storage := testutil.Within("internal/blob", "internal/index", "internal/infra", "internal/batch")
	testutil.AssertNoTransitiveDependency(t, ".", storage, "chem is pure computation")
}
