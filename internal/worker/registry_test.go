package worker

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultDefinitions(t *testing.T) {
	r := NewRegistry(DefaultDefinitions())

	testCases := []struct {
		id        string
		threshold float64
	}{
		{"search_worker", 7.0},
		{"visit_worker", 7.0},
		{"support_worker", 8.0},
		{"feedback_worker", 6.0},
	}
	for _, tc := range testCases {
		t.Run(tc.id, func(t *testing.T) {
			d, ok := r.Get(tc.id)
			if !ok {
				t.Fatalf("built-in worker %q missing", tc.id)
			}
			if d.ValidationThreshold != tc.threshold {
				t.Errorf("threshold = %v, want %v", d.ValidationThreshold, tc.threshold)
			}
			if d.MaxRetries != 1 {
				t.Errorf("max retries = %d, want 1", d.MaxRetries)
			}
			if !d.Enabled {
				t.Error("built-in worker should be enabled")
			}
		})
	}
}

func TestRegistryAddDefaults(t *testing.T) {
	r := NewRegistry([]Definition{{ID: "custom", Enabled: true}})
	d, _ := r.Get("custom")
	if d.ValidationThreshold != 7.0 {
		t.Errorf("zero threshold should default to 7.0, got %v", d.ValidationThreshold)
	}
	if d.MaxRetries != 1 {
		t.Errorf("zero retries should default to 1, got %d", d.MaxRetries)
	}
}

func TestLoadRegistryMergesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "workers.yaml")
	content := `
workers:
  - id: search_worker
    name: Property Search
    validation_threshold: 9.5
    enabled: true
  - id: concierge_worker
    name: Concierge
    associated_guideline_ids: [greeting]
    enabled: true
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	r, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}

	// Override wins over the built-in entry.
	d, ok := r.Get("search_worker")
	if !ok {
		t.Fatal("search_worker missing after merge")
	}
	if d.ValidationThreshold != 9.5 {
		t.Errorf("file override lost: threshold %v", d.ValidationThreshold)
	}

	if _, ok := r.Get("concierge_worker"); !ok {
		t.Error("file-only worker missing after merge")
	}
	if len(r.Definitions()) != 5 {
		t.Errorf("expected 5 workers (4 built-in, 1 new), got %d", len(r.Definitions()))
	}
}

func TestLoadRegistryMissingFileReturnsDefaults(t *testing.T) {
	r, err := LoadRegistry("does/not/exist.yaml")
	if err != nil {
		t.Fatalf("missing file must not error: %v", err)
	}
	if len(r.Definitions()) != 4 {
		t.Errorf("expected the 4 built-in workers, got %d", len(r.Definitions()))
	}
}

func TestLookupSkipsDisabled(t *testing.T) {
	r := NewRegistry([]Definition{
		{ID: "on", Enabled: true},
		{ID: "off", Enabled: false},
	})

	if _, ok := r.Lookup("on"); !ok {
		t.Error("enabled worker not found by Lookup")
	}
	if _, ok := r.Lookup("off"); ok {
		t.Error("Lookup returned a disabled worker")
	}
	if _, ok := r.Get("off"); !ok {
		t.Error("Get should still see disabled workers")
	}
	if !r.Has("on") || r.Has("off") || r.Has("missing") {
		t.Error("Has must mirror Lookup's enabled-only view")
	}
}
