package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

const sampleManifest = `{
  "base_model": {"name": "kokoro-v0_19.pth", "url": "https://example.com/kokoro-v0_19.pth"},
  "model_hash": "3b0c392f87508da38fad3a2f9d94c359f1b657ebd2ef79f9d56d69503e470b0a",
  "voices": {
    "us": {
      "af_sky":   {"name": "af_sky.pt",   "url": "https://example.com/voices/af_sky.pt",   "description": "American Female (Sky)"},
      "af_bella": {"name": "af_bella.pt", "url": "https://example.com/voices/af_bella.pt", "description": "American Female (Bella)"}
    },
    "gb": {
      "bm_lewis": {"name": "bm_lewis.pt", "url": "https://example.com/voices/bm_lewis.pt", "description": "British Male (Lewis)", "gender": "m"}
    }
  },
  "onnx": {
    "base_url": "https://example.com/onnx/",
    "files": {
      "model_q8": {"name": "model_q8.onnx", "url": "https://example.com/onnx/model_q8.onnx"},
      "model":    {"name": "model.onnx",    "url": "https://example.com/onnx/model.onnx"}
    }
  }
}`

func TestParse(t *testing.T) {
	m, err := Parse([]byte(sampleManifest))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if m.BaseModel.Name != "kokoro-v0_19.pth" {
		t.Errorf("BaseModel.Name = %q", m.BaseModel.Name)
	}
	if m.BaseModel.URL != "https://example.com/kokoro-v0_19.pth" {
		t.Errorf("BaseModel.URL = %q", m.BaseModel.URL)
	}
	if !strings.HasPrefix(m.ModelHash, "3b0c392f") {
		t.Errorf("ModelHash = %q", m.ModelHash)
	}

	if got, want := m.Voices.Keys(), []string{"us", "gb"}; !reflect.DeepEqual(got, want) {
		t.Errorf("voice groups = %v, want %v (document order)", got, want)
	}
	us, ok := m.Voices.Get("us")
	if !ok {
		t.Fatal("voice group us missing")
	}
	if got, want := us.Keys(), []string{"af_sky", "af_bella"}; !reflect.DeepEqual(got, want) {
		t.Errorf("us voices = %v, want %v (document order)", got, want)
	}
	bella, _ := us.Get("af_bella")
	if bella.Description != "American Female (Bella)" {
		t.Errorf("af_bella description = %q", bella.Description)
	}

	if got, want := m.Onnx.Keys(), []string{"model_q8", "model"}; !reflect.DeepEqual(got, want) {
		t.Errorf("onnx files = %v, want %v (document order)", got, want)
	}
	if m.VoiceCount() != 3 {
		t.Errorf("VoiceCount() = %d, want 3", m.VoiceCount())
	}
}

func TestParseEmptyGroups(t *testing.T) {
	doc := `{"base_model": {"name": "model.bin", "url": "http://x/model.bin"},
		"model_hash": "abc", "voices": {}, "onnx": {"files": {}}}`

	m, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if m.Voices.Len() != 0 || m.Onnx.Len() != 0 {
		t.Errorf("expected empty groups, got %d voices groups and %d onnx files", m.Voices.Len(), m.Onnx.Len())
	}
	if got := len(m.Assets("models")); got != 1 {
		t.Errorf("Assets() returned %d assets, want 1", got)
	}
}

func TestParseFormatErrors(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantMsg string
	}{
		{"not json", `{"base_model": `, "invalid format"},
		{"array root", `[]`, "document: expected object"},
		{"missing base_model", `{"model_hash": "a", "voices": {}, "onnx": {"files": {}}}`, `"base_model"`},
		{"missing base url", `{"base_model": {"name": "m"}, "model_hash": "a", "voices": {}, "onnx": {"files": {}}}`, `"base_model.url"`},
		{"missing model_hash", `{"base_model": {"name": "m", "url": "u"}, "voices": {}, "onnx": {"files": {}}}`, `"model_hash"`},
		{"hash not string", `{"base_model": {"name": "m", "url": "u"}, "model_hash": 12, "voices": {}, "onnx": {"files": {}}}`, "model_hash: expected string"},
		{"missing voices", `{"base_model": {"name": "m", "url": "u"}, "model_hash": "a", "onnx": {"files": {}}}`, `"voices"`},
		{"voices array", `{"base_model": {"name": "m", "url": "u"}, "model_hash": "a", "voices": [], "onnx": {"files": {}}}`, "voices: expected object"},
		{"voice missing description", `{"base_model": {"name": "m", "url": "u"}, "model_hash": "a",
			"voices": {"en": {"af": {"name": "af.pt", "url": "u"}}}, "onnx": {"files": {}}}`, `"voices.en.af.description"`},
		{"missing onnx", `{"base_model": {"name": "m", "url": "u"}, "model_hash": "a", "voices": {}}`, `"onnx"`},
		{"missing onnx files", `{"base_model": {"name": "m", "url": "u"}, "model_hash": "a", "voices": {}, "onnx": {}}`, `"onnx.files"`},
		{"onnx file missing name", `{"base_model": {"name": "m", "url": "u"}, "model_hash": "a", "voices": {},
			"onnx": {"files": {"q8": {"url": "u"}}}}`, `"onnx.files.q8.name"`},
		{"null model_hash", `{"base_model": {"name": "m", "url": "u"}, "model_hash": null, "voices": {}, "onnx": {"files": {}}}`, "model_hash: expected string, got null"},
		{"null base url", `{"base_model": {"name": "m", "url": null}, "model_hash": "a", "voices": {}, "onnx": {"files": {}}}`, "base_model.url: expected string, got null"},
		{"null voice description", `{"base_model": {"name": "m", "url": "u"}, "model_hash": "a",
			"voices": {"en": {"af": {"name": "af.pt", "url": "u", "description": null}}}, "onnx": {"files": {}}}`, "voices.en.af.description: expected string, got null"},
		{"null onnx name", `{"base_model": {"name": "m", "url": "u"}, "model_hash": "a", "voices": {},
			"onnx": {"files": {"q8": {"name": null, "url": "u"}}}}`, "onnx.files.q8.name: expected string, got null"},
		{"null base_model", `{"base_model": null, "model_hash": "a", "voices": {}, "onnx": {"files": {}}}`, "base_model: expected object"},
		{"absolute name", `{"base_model": {"name": "/etc/passwd", "url": "u"}, "model_hash": "a", "voices": {}, "onnx": {"files": {}}}`, "unsafe file name"},
		{"escaping name", `{"base_model": {"name": "m", "url": "u"}, "model_hash": "a",
			"voices": {"en": {"af": {"name": "../../af.pt", "url": "u", "description": "d"}}}, "onnx": {"files": {}}}`, "unsafe file name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			if err == nil {
				t.Fatal("Parse() expected error")
			}
			if !errors.Is(err, ErrFormat) {
				t.Errorf("Parse() error = %v, want ErrFormat", err)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("Parse() error = %q, want it to mention %q", err, tt.wantMsg)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(dir, "MODEL_MANIFEST.json"))
		if !errors.Is(err, ErrRead) {
			t.Fatalf("Load() error = %v, want ErrRead", err)
		}
		if !errors.Is(err, os.ErrNotExist) {
			t.Errorf("Load() error = %v, want it to wrap os.ErrNotExist", err)
		}
	})

	t.Run("malformed file", func(t *testing.T) {
		path := filepath.Join(dir, "broken.json")
		if err := os.WriteFile(path, []byte("not json"), 0644); err != nil {
			t.Fatal(err)
		}
		_, err := Load(path)
		if !errors.Is(err, ErrFormat) {
			t.Fatalf("Load() error = %v, want ErrFormat", err)
		}
		if errors.Is(err, ErrRead) {
			t.Error("malformed manifest reported as read error")
		}
		if !strings.Contains(err.Error(), path) {
			t.Errorf("Load() error = %q, want it to name the file", err)
		}
	})

	t.Run("valid file", func(t *testing.T) {
		path := filepath.Join(dir, "MODEL_MANIFEST.json")
		if err := os.WriteFile(path, []byte(sampleManifest), 0644); err != nil {
			t.Fatal(err)
		}
		m, err := Load(path)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if m.BaseModel.Name != "kokoro-v0_19.pth" {
			t.Errorf("BaseModel.Name = %q", m.BaseModel.Name)
		}
	})
}

func TestAssets(t *testing.T) {
	m, err := Parse([]byte(sampleManifest))
	if err != nil {
		t.Fatal(err)
	}

	root := filepath.Join("srv", "models")
	assets := m.Assets(root)

	want := []struct {
		kind  Kind
		label string
		path  string
	}{
		{KindBase, "Base Model", filepath.Join(root, "kokoro-v0_19.pth")},
		{KindVoice, "American Female (Sky)", filepath.Join(root, "voices", "af_sky.pt")},
		{KindVoice, "American Female (Bella)", filepath.Join(root, "voices", "af_bella.pt")},
		{KindVoice, "British Male (Lewis)", filepath.Join(root, "voices", "bm_lewis.pt")},
		{KindOnnx, "ONNX model_q8", filepath.Join(root, "onnx", "model_q8.onnx")},
		{KindOnnx, "ONNX model", filepath.Join(root, "onnx", "model.onnx")},
	}

	if len(assets) != len(want) {
		t.Fatalf("Assets() returned %d assets, want %d", len(assets), len(want))
	}
	for i, w := range want {
		a := assets[i]
		if a.Kind != w.kind || a.Label != w.label || a.Path != w.path {
			t.Errorf("asset %d = {%s %q %s}, want {%s %q %s}", i, a.Kind, a.Label, a.Path, w.kind, w.label, w.path)
		}
	}

	if got := assets[2].DisplayName(); got != "us/af_bella" {
		t.Errorf("voice DisplayName() = %q, want us/af_bella", got)
	}
	if got := assets[4].DisplayName(); got != "model_q8" {
		t.Errorf("onnx DisplayName() = %q, want model_q8", got)
	}
	if got := assets[0].DisplayName(); got != "kokoro-v0_19.pth" {
		t.Errorf("base DisplayName() = %q", got)
	}
}

func TestOrderedMapDuplicateKeys(t *testing.T) {
	var m OrderedMap[int]
	m.Set("a", 1)
	m.Set("b", 2)
	m.Set("a", 3)

	if got, want := m.Keys(), []string{"a", "b"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Keys() = %v, want %v", got, want)
	}
	if v, _ := m.Get("a"); v != 3 {
		t.Errorf("Get(a) = %d, want 3", v)
	}

	var seen []string
	for k := range m.All() {
		seen = append(seen, k)
		break
	}
	if len(seen) != 1 {
		t.Errorf("All() did not stop after break, saw %v", seen)
	}
}
