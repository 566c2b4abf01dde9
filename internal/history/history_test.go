package history

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/torosent/vuload/internal/check"
	"github.com/torosent/vuload/internal/config"
	"github.com/torosent/vuload/internal/output"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	return s
}

func sampleRecord(started time.Time, iterations int64) Record {
	cfg := config.Default()
	return Record{
		StartedAt: started,
		Config:    SnapshotConfig(cfg),
		Summary: output.Summary{
			Target:     cfg.Target,
			VUs:        cfg.VUs,
			Iterations: iterations,
			Checks: check.Summary{
				Checks: []check.CheckSummary{{Name: "status is 200", Passes: iterations}},
				Passes: iterations,
			},
		},
		ThresholdsPassed: true,
	}
}

func TestSaveAssignsULID(t *testing.T) {
	s := openTestStore(t)
	rec, err := s.Save(context.Background(), sampleRecord(time.Now(), 10))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if len(rec.ID) != 26 {
		t.Fatalf("ID = %q, want 26-character ULID", rec.ID)
	}

	got, err := s.Get(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Summary.Iterations != 10 || got.Config.VUs != 50 {
		t.Errorf("Get() = %+v", got)
	}
	if got.Config.Duration != "20s" {
		t.Errorf("Config.Duration = %q, want 20s", got.Config.Duration)
	}
}

func TestSaveKeepsPresetID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	started := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

	id, err := NewID(started)
	if err != nil {
		t.Fatalf("NewID() error = %v", err)
	}
	rec := sampleRecord(started, 3)
	rec.ID = id
	saved, err := s.Save(ctx, rec)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if saved.ID != id {
		t.Fatalf("Save() ID = %q, want preset %q", saved.ID, id)
	}
	if _, err := s.Get(ctx, id); err != nil {
		t.Errorf("Get(%q) error = %v", id, err)
	}

	later, err := NewID(started.Add(time.Second))
	if err != nil {
		t.Fatalf("NewID() error = %v", err)
	}
	if later <= id {
		t.Errorf("NewID() = %q, want it to sort after %q", later, id)
	}
}

func TestListNewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	// Saved out of order on purpose.
	for _, offset := range []int{2, 0, 1} {
		if _, err := s.Save(ctx, sampleRecord(base.Add(time.Duration(offset)*time.Minute), int64(offset))); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}

	records, err := s.List(ctx, 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("List() returned %d records, want 3", len(records))
	}
	for i, want := range []int64{2, 1, 0} {
		if records[i].Summary.Iterations != want {
			t.Errorf("records[%d].Iterations = %d, want %d", i, records[i].Summary.Iterations, want)
		}
	}

	limited, err := s.List(ctx, 2)
	if err != nil {
		t.Fatalf("List(2) error = %v", err)
	}
	if len(limited) != 2 || limited[0].ID != records[0].ID {
		t.Errorf("List(2) = %d records", len(limited))
	}
}

func TestGetByPrefix(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	first, _ := s.Save(ctx, sampleRecord(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), 1))
	if _, err := s.Save(ctx, sampleRecord(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), 2)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := s.Get(ctx, strings.ToLower(first.ID[:12]))
	if err != nil {
		t.Fatalf("Get(prefix) error = %v", err)
	}
	if got.ID != first.ID {
		t.Errorf("Get(prefix) = %s, want %s", got.ID, first.ID)
	}

	if _, err := s.Get(ctx, "0"); !errors.Is(err, ErrAmbiguous) {
		t.Errorf("Get(\"0\") error = %v, want ErrAmbiguous", err)
	}
}

func TestGetMissing(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.Get(ctx, "01ARZ3NDEKTSV4RRFFQ69G5FAV"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(unknown) error = %v, want ErrNotFound", err)
	}
	if _, err := s.Get(ctx, ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(\"\") error = %v, want ErrNotFound", err)
	}
	if _, err := s.Get(ctx, "UUUUUUUUUUUUUUUUUUUUUUUUUU"); err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("Get(invalid) error = %v, want parse error", err)
	}
}

func TestConcurrentSaves(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := s.Save(ctx, sampleRecord(time.Now(), int64(i))); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("Save() error = %v", err)
	}

	records, err := s.List(ctx, 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(records) != 20 {
		t.Errorf("List() returned %d records, want 20", len(records))
	}
}

func TestReopenKeepsRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	rec, err := s.Save(context.Background(), sampleRecord(time.Now(), 5))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	if _, err := reopened.Get(context.Background(), rec.ID); err != nil {
		t.Errorf("Get() after reopen error = %v", err)
	}
}

func TestWriteYAML(t *testing.T) {
	rec := sampleRecord(time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC), 42)
	rec.ID = "01ARZ3NDEKTSV4RRFFQ69G5FAV"

	var buf bytes.Buffer
	if err := WriteYAML(&buf, rec); err != nil {
		t.Fatalf("WriteYAML() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"id: 01ARZ3NDEKTSV4RRFFQ69G5FAV",
		"thresholds_passed: true",
		"iterations: 42",
		"name: status is 200",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("YAML output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, `"id":`) {
		t.Errorf("YAML output should not keep JSON syntax:\n%s", out)
	}
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteTable(&buf, nil); err != nil {
		t.Fatalf("WriteTable() error = %v", err)
	}
	if !strings.Contains(buf.String(), "No runs recorded") {
		t.Errorf("empty table = %q", buf.String())
	}

	rec := sampleRecord(time.Now(), 7)
	rec.ID = "01ARZ3NDEKTSV4RRFFQ69G5FAV"
	rec.ThresholdsPassed = false
	rec.Summary.Thresholds = []output.ThresholdOutcome{{Expression: "checks:rate > 0.99"}}

	buf.Reset()
	if err := WriteTable(&buf, []Record{rec}); err != nil {
		t.Fatalf("WriteTable() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{"ID", rec.ID, "FAIL", "100.00%", config.DefaultTarget} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}
