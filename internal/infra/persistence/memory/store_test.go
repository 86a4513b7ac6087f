package memory

import (
	"context"
	"testing"

	"plicore/internal/index/indextest"
	"plicore/pkg/domain"
)

func TestStoreContract(t *testing.T) {
	indextest.Run(t, NewStore())
}

func TestStoreCopiesValues(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	report := domain.EntryReport{EntryID: "1abc", Status: domain.StatusPartial, Failed: []string{"x"}}
	sys := domain.SystemRecord{SystemID: "1abc__1__1.A__1.B", Receptors: []string{"1.A"}}
	if err := s.PutEntry(ctx, report, []domain.SystemRecord{sys}); err != nil {
		t.Fatalf("put: %v", err)
	}
	report.Failed[0] = "mutated"
	sys.Receptors[0] = "mutated"
	got, _ := s.Entry(ctx, "1abc")
	if got.Failed[0] != "x" {
		t.Fatalf("report aliased caller slice")
	}
	list, _ := s.Systems(ctx, domain.SystemFilter{})
	if list[0].Receptors[0] != "1.A" || list[0].EntryID != "1abc" {
		t.Fatalf("system = %+v", list[0])
	}
	list[0].Receptors[0] = "mutated"
	again, _ := s.Systems(ctx, domain.SystemFilter{})
	if again[0].Receptors[0] != "1.A" {
		t.Fatalf("returned system aliases stored value")
	}
}
