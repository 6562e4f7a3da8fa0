package models

import (
	"errors"
	"testing"
	"time"
)

func TestCreateGenerationRun(t *testing.T) {
	db := testDB(t)

	run := &GenerationRun{
		UID:        "user-1",
		Kind:       RunKindDaily,
		StartDate:  "2024-03-01",
		Days:       1,
		Status:     RunStatusOK,
		Model:      "deepseek/deepseek-chat:free",
		TokensUsed: 812,
		DurationMS: 2400,
	}
	if err := CreateGenerationRun(db, run); err != nil {
		t.Fatalf("create: %v", err)
	}
	if run.ID == "" {
		t.Fatal("expected ID to be assigned")
	}
	if run.CreatedAt.IsZero() {
		t.Fatal("expected CreatedAt to be assigned")
	}

	got, err := GetGenerationRun(db, run.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.UID != "user-1" || got.Kind != RunKindDaily || got.Status != RunStatusOK {
		t.Errorf("got %+v", got)
	}
	if got.TokensUsed != 812 || got.DurationMS != 2400 {
		t.Errorf("tokens/duration = %d/%d, want 812/2400", got.TokensUsed, got.DurationMS)
	}
	if !got.CreatedAt.Equal(run.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, run.CreatedAt)
	}
}

func TestCreateGenerationRun_RejectsUnknownStatus(t *testing.T) {
	db := testDB(t)

	err := CreateGenerationRun(db, &GenerationRun{UID: "u", Kind: RunKindDaily, StartDate: "2024-03-01", Status: "maybe"})
	if err == nil {
		t.Fatal("expected constraint error for unknown status")
	}
}

func TestGetGenerationRun_NotFound(t *testing.T) {
	db := testDB(t)

	_, err := GetGenerationRun(db, "missing")
	if !errors.Is(err, ErrRunNotFound) {
		t.Errorf("err = %v, want ErrRunNotFound", err)
	}
}

func TestListGenerationRuns(t *testing.T) {
	db := testDB(t)
	base := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

	for i, status := range []string{RunStatusOK, RunStatusFallback, RunStatusFailed} {
		run := &GenerationRun{
			UID: "user-1", Kind: RunKindBatch, Range: "week", StartDate: "2024-03-01", Days: 7,
			Status: status, CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}
		if err := CreateGenerationRun(db, run); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}
	if err := CreateGenerationRun(db, &GenerationRun{
		UID: "user-2", Kind: RunKindDaily, StartDate: "2024-03-01", Days: 1, Status: RunStatusOK,
	}); err != nil {
		t.Fatalf("create other user: %v", err)
	}

	runs, err := ListGenerationRuns(db, "user-1", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(runs))
	}
	if runs[0].Status != RunStatusFailed || runs[2].Status != RunStatusOK {
		t.Errorf("expected newest first, got %s..%s", runs[0].Status, runs[2].Status)
	}

	limited, err := ListGenerationRuns(db, "user-1", 2)
	if err != nil {
		t.Fatalf("list limited: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("expected 2 runs with limit, got %d", len(limited))
	}

	none, err := ListGenerationRuns(db, "nobody", 0)
	if err != nil {
		t.Fatalf("list empty: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("expected no runs, got %d", len(none))
	}
}

func TestDeleteGenerationRunsBefore(t *testing.T) {
	db := testDB(t)
	now := time.Now().UTC()

	old := &GenerationRun{UID: "u", Kind: RunKindDaily, StartDate: "2024-01-01", Days: 1,
		Status: RunStatusOK, CreatedAt: now.AddDate(0, 0, -100)}
	recent := &GenerationRun{UID: "u", Kind: RunKindDaily, StartDate: "2024-01-02", Days: 1,
		Status: RunStatusOK, CreatedAt: now.AddDate(0, 0, -1)}
	for _, r := range []*GenerationRun{old, recent} {
		if err := CreateGenerationRun(db, r); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	n, err := DeleteGenerationRunsBefore(db, now.AddDate(0, 0, -90))
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted %d rows, want 1", n)
	}

	if _, err := GetGenerationRun(db, old.ID); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("old run still present: %v", err)
	}
	if _, err := GetGenerationRun(db, recent.ID); err != nil {
		t.Errorf("recent run missing: %v", err)
	}
}
