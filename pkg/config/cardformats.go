package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/japaniel/cardsmith/pkg/dictionary"
	"github.com/japaniel/cardsmith/pkg/note"
)

//go:embed card-formats.schema.json
var cardFormatsSchema []byte

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("card-formats.schema.json", bytes.NewReader(cardFormatsSchema)); err != nil {
			schemaErr = fmt.Errorf("failed to load card format schema: %w", err)
			return
		}
		schema, schemaErr = compiler.Compile("card-formats.schema.json")
	})
	return schema, schemaErr
}

// CardFormat is a note.CardFormat bound to an entry type.
type CardFormat struct {
	// Type is term or kanji; empty means term.
	Type            dictionary.EntryType `yaml:"type"`
	note.CardFormat `yaml:",inline"`
}

// EntryType returns the entry type the format applies to.
func (f CardFormat) EntryType() dictionary.EntryType {
	if f.Type == "" {
		return dictionary.EntryTerm
	}
	return f.Type
}

// CardFormats is a card-format profile file.
type CardFormats struct {
	Formats []CardFormat `yaml:"formats"`
}

// Find returns the format named name.
func (c *CardFormats) Find(name string) (CardFormat, bool) {
	for _, f := range c.Formats {
		if f.Name == name {
			return f, true
		}
	}
	return CardFormat{}, false
}

// ForType returns the first format for entry type t.
func (c *CardFormats) ForType(t dictionary.EntryType) (CardFormat, bool) {
	for _, f := range c.Formats {
		if f.EntryType() == t {
			return f, true
		}
	}
	return CardFormat{}, false
}

// LoadCardFormats reads and validates a card-format profile file.
func LoadCardFormats(path string) (*CardFormats, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("card formats: %w", err)
	}
	formats, err := ParseCardFormats(data)
	if err != nil {
		return nil, fmt.Errorf("card formats %s: %w", path, err)
	}
	return formats, nil
}

// ParseCardFormats decodes YAML card formats and checks them against the
// card-format schema. Field names must be unique within a format.
func ParseCardFormats(data []byte) (*CardFormats, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	// the validator works on JSON values
	doc, err := toJSONValue(raw)
	if err != nil {
		return nil, err
	}
	s, err := compiledSchema()
	if err != nil {
		return nil, err
	}
	if err := s.Validate(doc); err != nil {
		return nil, fmt.Errorf("card formats do not match schema: %w", err)
	}

	var formats CardFormats
	if err := yaml.Unmarshal(data, &formats); err != nil {
		return nil, fmt.Errorf("decode card formats: %w", err)
	}
	names := make(map[string]struct{}, len(formats.Formats))
	for _, f := range formats.Formats {
		if _, ok := names[f.Name]; ok {
			return nil, fmt.Errorf("duplicate card format %q", f.Name)
		}
		names[f.Name] = struct{}{}
		fields := make(map[string]struct{}, len(f.Fields))
		for _, fld := range f.Fields {
			if _, ok := fields[fld.Name]; ok {
				return nil, fmt.Errorf("card format %q: duplicate field %q", f.Name, fld.Name)
			}
			fields[fld.Name] = struct{}{}
		}
	}
	return &formats, nil
}

func toJSONValue(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("convert yaml to json: %w", err)
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("convert yaml to json: %w", err)
	}
	return out, nil
}
