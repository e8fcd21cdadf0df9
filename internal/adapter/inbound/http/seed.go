package http

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Sentinel-Gate/restprovider/internal/domain/record"
)

// ParseSeed reads fixture documents keyed by collection name:
//
//	users:
//	  - _id: "1"
//	    name: Eoin
//	  - name: Des   # _id generated on load
func ParseSeed(r io.Reader) (map[string][]record.Document, error) {
	var raw map[string][]map[string]any
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		if err == io.EOF {
			return map[string][]record.Document{}, nil
		}
		return nil, fmt.Errorf("parse seed: %w", err)
	}

	out := make(map[string][]record.Document, len(raw))
	for name, docs := range raw {
		if err := record.ValidateCollection(name); err != nil {
			return nil, fmt.Errorf("parse seed: %w", err)
		}
		for i, d := range docs {
			doc, err := record.Normalize(d)
			if err != nil {
				return nil, fmt.Errorf("parse seed: %s[%d]: %w", name, i, err)
			}
			out[name] = append(out[name], doc)
		}
	}
	return out, nil
}

// LoadSeedFile reads a YAML seed file from disk.
func LoadSeedFile(path string) (map[string][]record.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer func() { _ = f.Close() }()
	return ParseSeed(f)
}
