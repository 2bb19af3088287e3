// Package manifest loads MODEL_MANIFEST.json, the document that lists the base
// model, the voice files and the ONNX files to mirror locally.
package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nchapman/kokoro-fetch/internal/config"
)

var (
	// ErrRead means the manifest file is missing or unreadable.
	ErrRead = errors.New("manifest: cannot read")

	// ErrFormat means the manifest is not valid JSON or lacks a required key.
	ErrFormat = errors.New("manifest: invalid format")
)

// File is a downloadable file: the base model or an ONNX file.
type File struct {
	Name string
	URL  string
}

// Voice is a single voice file inside an accent group.
type Voice struct {
	Name        string
	URL         string
	Description string
}

// Manifest is the parsed manifest document. Group and file order follows the
// document.
type Manifest struct {
	BaseModel File
	ModelHash string
	Voices    OrderedMap[OrderedMap[Voice]]
	Onnx      OrderedMap[File]
}

// Load reads and parses the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrRead, path, err)
	}

	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Parse decodes a manifest document. Every key the fetcher relies on must be
// present with the right JSON type; unknown keys are ignored.
func Parse(data []byte) (*Manifest, error) {
	if !json.Valid(data) {
		var v any
		err := json.Unmarshal(data, &v)
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}

	root, err := object(data, "")
	if err != nil {
		return nil, err
	}

	m := &Manifest{}

	base, err := requireObject(root, "", "base_model")
	if err != nil {
		return nil, err
	}
	if m.BaseModel, err = parseFile(base, "base_model"); err != nil {
		return nil, err
	}

	if m.ModelHash, err = requireString(root, "", "model_hash"); err != nil {
		return nil, err
	}

	if err := m.parseVoices(root); err != nil {
		return nil, err
	}
	if err := m.parseOnnx(root); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *Manifest) parseVoices(root map[string]json.RawMessage) error {
	raw, ok := root["voices"]
	if !ok {
		return missing("", "voices")
	}

	groups, err := entries(raw, "voices")
	if err != nil {
		return err
	}

	for _, group := range groups {
		groupPath := join("voices", group.key)
		voices, err := entries(group.value, groupPath)
		if err != nil {
			return err
		}

		var members OrderedMap[Voice]
		for _, v := range voices {
			voicePath := join(groupPath, v.key)
			obj, err := object(v.value, voicePath)
			if err != nil {
				return err
			}

			var voice Voice
			if voice.Name, err = requireName(obj, voicePath); err != nil {
				return err
			}
			if voice.URL, err = requireString(obj, voicePath, "url"); err != nil {
				return err
			}
			if voice.Description, err = requireString(obj, voicePath, "description"); err != nil {
				return err
			}
			members.Set(v.key, voice)
		}
		m.Voices.Set(group.key, members)
	}
	return nil
}

func (m *Manifest) parseOnnx(root map[string]json.RawMessage) error {
	onnx, err := requireObject(root, "", "onnx")
	if err != nil {
		return err
	}

	raw, ok := onnx["files"]
	if !ok {
		return missing("onnx", "files")
	}

	files, err := entries(raw, "onnx.files")
	if err != nil {
		return err
	}

	for _, f := range files {
		filePath := join("onnx.files", f.key)
		obj, err := object(f.value, filePath)
		if err != nil {
			return err
		}
		file, err := parseFile(obj, filePath)
		if err != nil {
			return err
		}
		m.Onnx.Set(f.key, file)
	}
	return nil
}

func parseFile(obj map[string]json.RawMessage, path string) (File, error) {
	var f File
	var err error
	if f.Name, err = requireName(obj, path); err != nil {
		return f, err
	}
	if f.URL, err = requireString(obj, path, "url"); err != nil {
		return f, err
	}
	return f, nil
}

// requireName reads the "name" key and checks that it stays inside the
// directory it will be joined to.
func requireName(obj map[string]json.RawMessage, path string) (string, error) {
	name, err := requireString(obj, path, "name")
	if err != nil {
		return "", err
	}
	if !filepath.IsLocal(filepath.FromSlash(name)) {
		return "", fmt.Errorf("%w: %s: unsafe file name %q", ErrFormat, join(path, "name"), name)
	}
	return name, nil
}

func requireString(obj map[string]json.RawMessage, path, key string) (string, error) {
	raw, ok := obj[key]
	if !ok {
		return "", missing(path, key)
	}
	var s string
	if isNull(raw) {
		return "", fmt.Errorf("%w: %s: expected string, got null", ErrFormat, join(path, key))
	}
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("%w: %s: expected string", ErrFormat, join(path, key))
	}
	return s, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func requireObject(obj map[string]json.RawMessage, path, key string) (map[string]json.RawMessage, error) {
	raw, ok := obj[key]
	if !ok {
		return nil, missing(path, key)
	}
	return object(raw, join(path, key))
}

func object(raw json.RawMessage, path string) (map[string]json.RawMessage, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return nil, fmt.Errorf("%w: %s: expected object", ErrFormat, label(path))
	}
	return obj, nil
}

func entries(raw json.RawMessage, path string) ([]rawEntry, error) {
	list, err := objectEntries(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFormat, label(path), err)
	}
	return list, nil
}

func missing(path, key string) error {
	return fmt.Errorf("%w: missing required key %q", ErrFormat, join(path, key))
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func label(path string) string {
	if path == "" {
		return "document"
	}
	return path
}

// Kind identifies which asset group a file belongs to.
type Kind string

const (
	KindBase  Kind = "base"
	KindVoice Kind = "voice"
	KindOnnx  Kind = "onnx"
)

// Asset is one file of the manifest resolved against a models root.
type Asset struct {
	Kind  Kind
	Group string // accent group, voices only
	ID    string // voice or ONNX identifier; empty for the base model
	Name  string
	URL   string
	Label string // progress label
	Path  string // destination on disk
}

// BaseAsset returns the base model resolved against root.
func (m *Manifest) BaseAsset(root string) Asset {
	return Asset{
		Kind:  KindBase,
		Name:  m.BaseModel.Name,
		URL:   m.BaseModel.URL,
		Label: "Base Model",
		Path:  filepath.Join(root, filepath.FromSlash(m.BaseModel.Name)),
	}
}

// VoiceAssets returns every voice, group by group, in document order.
func (m *Manifest) VoiceAssets(root string) []Asset {
	var assets []Asset
	for group, voices := range m.Voices.All() {
		for id, v := range voices.All() {
			assets = append(assets, Asset{
				Kind:  KindVoice,
				Group: group,
				ID:    id,
				Name:  v.Name,
				URL:   v.URL,
				Label: v.Description,
				Path:  filepath.Join(config.VoicesPath(root), filepath.FromSlash(v.Name)),
			})
		}
	}
	return assets
}

// OnnxAssets returns every ONNX file in document order.
func (m *Manifest) OnnxAssets(root string) []Asset {
	var assets []Asset
	for id, f := range m.Onnx.All() {
		assets = append(assets, Asset{
			Kind:  KindOnnx,
			ID:    id,
			Name:  f.Name,
			URL:   f.URL,
			Label: "ONNX " + id,
			Path:  filepath.Join(config.OnnxPath(root), filepath.FromSlash(f.Name)),
		})
	}
	return assets
}

// Assets returns the base model, the voices and the ONNX files, in the order
// a fetch run visits them.
func (m *Manifest) Assets(root string) []Asset {
	assets := []Asset{m.BaseAsset(root)}
	assets = append(assets, m.VoiceAssets(root)...)
	return append(assets, m.OnnxAssets(root)...)
}

// VoiceCount returns the number of voices across all groups.
func (m *Manifest) VoiceCount() int {
	n := 0
	for _, voices := range m.Voices.All() {
		n += voices.Len()
	}
	return n
}

// DisplayName is a short human identifier for an asset.
func (a Asset) DisplayName() string {
	switch a.Kind {
	case KindVoice:
		return a.Group + "/" + a.ID
	case KindOnnx:
		return a.ID
	}
	return a.Name
}
