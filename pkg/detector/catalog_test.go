package detector

import (
	"os"
	"path/filepath"
	"testing"
)

func TestBuiltinCatalogs(t *testing.T) {
	if n := SimulationCatalog().Len(); n != 8 {
		t.Errorf("simulation catalog has %d entries, want 8", n)
	}
	if n := ModelCatalog().Len(); n != 22 {
		t.Errorf("model catalog has %d entries, want 22", n)
	}
	if ModelCatalog().Describe("not a disease") != "" {
		t.Errorf("unknown label should describe as empty string")
	}
}

func TestLoadCatalog(t *testing.T) {
	dir := t.TempDir()

	valid := filepath.Join(dir, "valid.json")
	if err := os.WriteFile(valid, []byte(`[{"label":"Rash","description":"red"}]`), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := LoadCatalog(valid)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Describe("Rash") != "red" {
		t.Errorf("got %q", c.Describe("Rash"))
	}

	empty := filepath.Join(dir, "empty.json")
	if err := os.WriteFile(empty, []byte(`[]`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadCatalog(empty); err == nil {
		t.Errorf("empty catalog should fail")
	}

	if _, err := LoadCatalog(filepath.Join(dir, "missing.json")); err == nil {
		t.Errorf("missing file should fail")
	}
}
