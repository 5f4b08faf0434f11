package store

import (
	"errors"
	"path/filepath"
	"testing"

	"kpilens/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "data", "kpilens.db"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSaveAndGetRun(t *testing.T) {
	s := newTestStore(t)

	results := []model.AnalysisResult{
		{RuleID: 0, Success: true, Kind: model.KindInventoryEfficiency,
			Description: "库存效率", Value: model.Float(95), Status: "整体库存水平合理"},
		{RuleID: 1, Success: false, Description: "坏规则", Error: "sheet not found"},
	}

	id, err := s.SaveRun("data.xlsx", "华东事业部", 35, results)
	if err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	if id == "" {
		t.Fatal("empty run id")
	}

	run, got, err := s.GetRun(id)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.SourceFile != "data.xlsx" || run.Entity != "华东事业部" || run.Week != 35 {
		t.Fatalf("run meta = %+v", run)
	}
	if run.Total != 2 || run.Succeeded != 1 {
		t.Fatalf("counts = %d/%d, want 2/1", run.Total, run.Succeeded)
	}
	if len(got) != 2 || got[0].Kind != model.KindInventoryEfficiency || *got[0].Value != 95 {
		t.Fatalf("results round trip: %+v", got)
	}
	if got[1].Success || got[1].Error != "sheet not found" {
		t.Fatalf("failed result lost: %+v", got[1])
	}
}

func TestGetRun_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, _, err := s.GetRun("no-such-id")
	if !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("err = %v, want ErrRunNotFound", err)
	}
}

func TestListRuns(t *testing.T) {
	s := newTestStore(t)

	for i := 0; i < 3; i++ {
		if _, err := s.SaveRun("data.xlsx", "实体", i+1, nil); err != nil {
			t.Fatalf("SaveRun %d: %v", i, err)
		}
	}

	runs, err := s.ListRuns(2)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}

	all, err := s.ListRuns(0)
	if err != nil {
		t.Fatalf("ListRuns(0): %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d runs, want 3", len(all))
	}
}
