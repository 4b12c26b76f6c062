package store

import (
	"path/filepath"
	"testing"

	"github.com/planwright/planwright/internal/engine"
	"github.com/planwright/planwright/internal/plan"
	"github.com/planwright/planwright/internal/scoring"
)

func openTestStore(t *testing.T) *RunStore {
	t.Helper()
	s, err := NewRunStore(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRun() (*plan.Requirements, *engine.RunResult) {
	req := &plan.Requirements{
		LandWidth: 14, LandDepth: 25,
		Bedrooms: 3, Bathrooms: 2, Storeys: 1,
	}

	layout := &plan.Layout{
		ID:       "layout-1",
		Envelope: plan.Envelope{Width: 12.2, Depth: 18},
		Rooms: []plan.Room{
			{ID: "r1", Type: plan.RoomKitchen, Name: "Kitchen", X: 0, Y: 0, Width: 4, Depth: 4, Area: 16, Storey: 1},
		},
	}

	res := &engine.RunResult{
		Passed:     true,
		Iterations: 2,
		Attempts: []engine.Attempt{
			{Iteration: 1, Err: "model unavailable"},
			{
				Iteration: 2,
				Layout:    layout,
				Result:    &scoring.Result{Passed: true, Score: 92, Feedback: "Layout complies with all checked rules."},
			},
		},
	}
	res.Best = &res.Attempts[1]
	return req, res
}

func TestSaveAndGetRun(t *testing.T) {
	s := openTestStore(t)
	req, res := sampleRun()

	id, err := s.SaveRun(req, res)
	if err != nil {
		t.Fatalf("save run: %v", err)
	}
	if id == 0 {
		t.Fatal("expected a run id")
	}

	rec, err := s.GetRun(id)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if rec == nil {
		t.Fatal("run not found")
	}

	if !rec.Passed {
		t.Error("expected passed run")
	}
	if rec.Iterations != 2 {
		t.Errorf("iterations = %d, want 2", rec.Iterations)
	}
	if rec.BestScore == nil || *rec.BestScore != 92 {
		t.Errorf("best score = %v, want 92", rec.BestScore)
	}
	if rec.BestLayout == nil || len(rec.BestLayout.Rooms) != 1 {
		t.Errorf("best layout not round-tripped: %+v", rec.BestLayout)
	}
	if rec.Requirements.Bedrooms != 3 {
		t.Errorf("requirements bedrooms = %d, want 3", rec.Requirements.Bedrooms)
	}
}

func TestNewRunStoreRejectsUnusablePath(t *testing.T) {
	// a directory cannot be opened as a database file; the failed open
	// must not leak a handle
	if _, err := NewRunStore(t.TempDir()); err == nil {
		t.Fatal("expected an error opening a directory as the database")
	}
}

func TestGetRunUnknownID(t *testing.T) {
	s := openTestStore(t)

	rec, err := s.GetRun(12345)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if rec != nil {
		t.Fatalf("expected nil record, got %+v", rec)
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	s := openTestStore(t)
	req, res := sampleRun()

	var ids []int64
	for i := 0; i < 3; i++ {
		id, err := s.SaveRun(req, res)
		if err != nil {
			t.Fatalf("save run %d: %v", i, err)
		}
		ids = append(ids, id)
	}

	recs, err := s.ListRuns(10)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("got %d runs, want 3", len(recs))
	}
	if recs[0].ID != ids[2] {
		t.Errorf("first listed run = %d, want newest %d", recs[0].ID, ids[2])
	}

	limited, err := s.ListRuns(1)
	if err != nil {
		t.Fatalf("list runs limited: %v", err)
	}
	if len(limited) != 1 {
		t.Fatalf("got %d runs, want 1", len(limited))
	}
}

func TestSaveRunWithoutBest(t *testing.T) {
	s := openTestStore(t)
	req, _ := sampleRun()

	res := &engine.RunResult{
		Passed:     false,
		Iterations: 1,
		Attempts:   []engine.Attempt{{Iteration: 1, Err: "no usable layout"}},
	}

	id, err := s.SaveRun(req, res)
	if err != nil {
		t.Fatalf("save run: %v", err)
	}

	rec, err := s.GetRun(id)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if rec.BestScore != nil || rec.BestLayout != nil {
		t.Errorf("expected no best data, got score=%v layout=%v", rec.BestScore, rec.BestLayout)
	}
	if rec.Passed {
		t.Error("expected failed run")
	}
}

func TestStoreReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "runs.db")

	s, err := NewRunStore(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	req, res := sampleRun()
	id, err := s.SaveRun(req, res)
	if err != nil {
		t.Fatalf("save run: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s2, err := NewRunStore(path)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer s2.Close()

	rec, err := s2.GetRun(id)
	if err != nil {
		t.Fatalf("get run after reopen: %v", err)
	}
	if rec == nil || rec.Iterations != 2 {
		t.Fatalf("run not persisted across reopen: %+v", rec)
	}
}
