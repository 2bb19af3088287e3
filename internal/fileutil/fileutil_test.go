package fileutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPartialPath(t *testing.T) {
	if got := PartialPath("models/model.bin"); got != "models/model.bin.partial" {
		t.Errorf("PartialPath() = %q, want %q", got, "models/model.bin.partial")
	}
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	present := filepath.Join(dir, "present.bin")
	if err := os.WriteFile(present, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		path string
		want bool
	}{
		{"existing file", present, true},
		{"existing dir", dir, true},
		{"missing file", filepath.Join(dir, "missing.bin"), false},
		{"missing parent", filepath.Join(dir, "nope", "missing.bin"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Exists(tt.path)
			if err != nil {
				t.Fatalf("Exists() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Exists() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPromote(t *testing.T) {
	dir := t.TempDir()
	staged := filepath.Join(dir, "model.bin.partial")
	final := filepath.Join(dir, "sub", "model.bin")

	if err := os.WriteFile(staged, []byte("payload"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := Promote(staged, final); err != nil {
		t.Fatalf("Promote() error = %v", err)
	}

	data, err := os.ReadFile(final)
	if err != nil {
		t.Fatalf("final file missing: %v", err)
	}
	if string(data) != "payload" {
		t.Errorf("final content = %q, want %q", data, "payload")
	}
	if _, err := os.Stat(staged); !os.IsNotExist(err) {
		t.Error("staged file still present after Promote()")
	}
}

func TestPromoteMissingStaged(t *testing.T) {
	dir := t.TempDir()
	err := Promote(filepath.Join(dir, "gone.partial"), filepath.Join(dir, "gone"))
	if err == nil {
		t.Fatal("Promote() expected error for missing staged file")
	}
}

func TestCleanupPartials(t *testing.T) {
	root := t.TempDir()
	files := map[string]bool{
		"model.bin":                   false,
		"model.bin.partial":           true,
		"voices/af_bella.bin":         false,
		"voices/af_bella.bin.partial": true,
		"onnx/model_q8.onnx.partial":  true,
	}
	for name := range files {
		p := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	count, err := CleanupPartials(root)
	if err != nil {
		t.Fatalf("CleanupPartials() error = %v", err)
	}
	if count != 3 {
		t.Errorf("CleanupPartials() = %d, want 3", count)
	}

	for name, removed := range files {
		_, err := os.Stat(filepath.Join(root, name))
		if removed && !os.IsNotExist(err) {
			t.Errorf("%s should have been removed", name)
		}
		if !removed && err != nil {
			t.Errorf("%s should have been kept: %v", name, err)
		}
	}
}

func TestCleanupPartialsMissingRoot(t *testing.T) {
	count, err := CleanupPartials(filepath.Join(t.TempDir(), "missing"))
	if err != nil {
		t.Fatalf("CleanupPartials() error = %v", err)
	}
	if count != 0 {
		t.Errorf("CleanupPartials() = %d, want 0", count)
	}
}

func TestAtomicWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kokoro-fetch.yaml")
	if err := os.WriteFile(path, []byte("old"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := AtomicWriteFile(path, []byte("concurrency: 2\n"), 0644); err != nil {
		t.Fatalf("AtomicWriteFile() error = %v", err)
	}

	data, _ := os.ReadFile(path)
	if string(data) != "concurrency: 2\n" {
		t.Errorf("content = %q", data)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file left behind")
	}
}
