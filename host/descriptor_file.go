package host

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// descriptorFile is the on-disk form. A wasm unit may reference its module
// by path instead of inlining it as base64.
type descriptorFile struct {
	Descriptor `yaml:",inline"`
	ModulePath string `yaml:"module"`
}

// ParseDescriptor decodes a YAML descriptor. Relative module paths are
// resolved against baseDir.
func ParseDescriptor(data []byte, baseDir string) (*Descriptor, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f descriptorFile
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("%w: decode: %w", ErrInvalidDescriptor, err)
	}

	d := f.Descriptor
	if f.ModulePath != "" {
		path := f.ModulePath
		if !filepath.IsAbs(path) && baseDir != "" {
			path = filepath.Join(baseDir, path)
		}
		mod, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: read module: %w", ErrInvalidDescriptor, err)
		}
		d.Module = mod
	}

	if err := d.Validate(); err != nil {
		return nil, err
	}

	return &d, nil
}

// LoadDescriptorFile reads and validates a YAML descriptor from disk.
func LoadDescriptorFile(path string) (*Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read descriptor: %w", err)
	}

	return ParseDescriptor(data, filepath.Dir(path))
}
