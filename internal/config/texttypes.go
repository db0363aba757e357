package config

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// DefaultTextType is assigned when a contributor leaves the category empty.
const DefaultTextType = "other"

// TextType is one selectable document category.
type TextType struct {
	Key   string `yaml:"key" json:"key"`
	Label string `yaml:"label" json:"label"`
}

// TextTypes maps category keys to the labels written into the corpus.
type TextTypes struct {
	items []TextType
	index map[string]string
}

var defaultTextTypes = []TextType{
	{Key: "news", Label: "News"},
	{Key: "research", Label: "Research"},
	{Key: "literature", Label: "Literature"},
	{Key: "poetry", Label: "Poetry"},
	{Key: "history", Label: "History"},
	{Key: "religious", Label: "Religious"},
	{Key: "education", Label: "Education"},
	{Key: DefaultTextType, Label: "Other"},
}

type textTypesFile struct {
	TextTypes []TextType `yaml:"text_types"`
}

// DefaultTextTypes returns the built-in catalog.
func DefaultTextTypes() *TextTypes {
	tt, _ := newTextTypes(defaultTextTypes)
	return tt
}

// LoadTextTypes reads a YAML catalog from path. An empty path yields the built-in catalog.
//
//	text_types:
//	  - key: news
//	    label: Nûçe
func LoadTextTypes(path string) (*TextTypes, error) {
	if path == "" {
		return DefaultTextTypes(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read text types file %s: %w", path, err)
	}
	var f textTypesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse text types YAML: %w", err)
	}
	return newTextTypes(f.TextTypes)
}

func newTextTypes(items []TextType) (*TextTypes, error) {
	tt := &TextTypes{index: make(map[string]string, len(items))}
	for _, it := range items {
		if it.Key == "" || it.Label == "" {
			return nil, fmt.Errorf("text type entries need both key and label")
		}
		if _, dup := tt.index[it.Key]; dup {
			return nil, fmt.Errorf("duplicate text type key: %s", it.Key)
		}
		tt.index[it.Key] = it.Label
		tt.items = append(tt.items, it)
	}
	if _, ok := tt.index[DefaultTextType]; !ok {
		return nil, fmt.Errorf("text type catalog must contain %q", DefaultTextType)
	}
	return tt, nil
}

// Valid reports whether key is a known category.
func (t *TextTypes) Valid(key string) bool {
	_, ok := t.index[key]
	return ok
}

// Label returns the display label for key, falling back to the key itself.
func (t *TextTypes) Label(key string) string {
	if label, ok := t.index[key]; ok {
		return label
	}
	return key
}

// All returns the catalog sorted by key.
func (t *TextTypes) All() []TextType {
	out := make([]TextType, len(t.items))
	copy(out, t.items)
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
