package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// MaxIncludeDepth limits nested includes.
const MaxIncludeDepth = 8

// File is a loaded configuration with its includes merged in.
type File struct {
	Include  []string  `toml:"include" yaml:"include"`
	Schemas  []Schema  `toml:"schema" yaml:"schemas"`
	Services []Service `toml:"service" yaml:"services"`

	fs billy.Filesystem
}

// Schema registers a schema location for a namespace version.
type Schema struct {
	Namespace string `toml:"namespace" yaml:"namespace"`
	Version   string `toml:"version" yaml:"version"`
	Location  string `toml:"location" yaml:"location"`
}

// Service declares a scripted service.
type Service struct {
	ID        string            `toml:"id" yaml:"id"`
	Kind      string            `toml:"kind" yaml:"kind"`
	Contexts  []string          `toml:"contexts" yaml:"contexts"`
	Overrides []string          `toml:"overrides" yaml:"overrides"`
	When      When              `toml:"when" yaml:"when"`
	Params    map[string]string `toml:"params" yaml:"params"`

	// Script is the path of the Lua source. After Load it is resolved
	// against the declaring file.
	Script string `toml:"script" yaml:"script"`

	// Source is inline Lua source, used when Script is empty.
	Source string `toml:"source" yaml:"source"`
}

// When restricts a service to an element type and, for property
// services, a property.
type When struct {
	Type     string `toml:"type" yaml:"type"`
	Property string `toml:"property" yaml:"property"`
}

// Load reads the configuration at path from fs, following includes.
// Services of included files come before those of the including file.
func Load(fs billy.Filesystem, path string) (*File, error) {
	f, err := load(fs, path, MaxIncludeDepth)
	if err != nil {
		return nil, err
	}
	f.fs = fs
	return f, nil
}

func load(fs billy.Filesystem, path string, depth int) (*File, error) {
	if depth <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrIncludeDepthExceeded, path)
	}
	data, err := util.ReadFile(fs, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}
	f, err := Parse(path, data)
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(path)
	for i := range f.Services {
		if s := f.Services[i].Script; s != "" && !filepath.IsAbs(s) {
			f.Services[i].Script = filepath.Join(dir, s)
		}
	}

	merged := &File{}
	for _, inc := range f.Include {
		if !filepath.IsAbs(inc) {
			inc = filepath.Join(dir, inc)
		}
		sub, err := load(fs, inc, depth-1)
		if err != nil {
			return nil, fmt.Errorf("loading include %s: %w", inc, err)
		}
		merged.Schemas = append(merged.Schemas, sub.Schemas...)
		merged.Services = append(merged.Services, sub.Services...)
	}
	merged.Include = f.Include
	merged.Schemas = append(merged.Schemas, f.Schemas...)
	merged.Services = append(merged.Services, f.Services...)
	return merged, nil
}

// Parse decodes a single file. The format follows the extension of path.
// Unknown fields are errors.
func Parse(path string, data []byte) (*File, error) {
	var f File
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields().Decode(&f)
		if err != nil {
			return nil, tomlError(path, err)
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
			return nil, yamlError(path, err)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	return &f, nil
}

func tomlError(path string, err error) error {
	pe := &ParseError{Path: path, Message: err.Error(), Err: err}
	var derr *toml.DecodeError
	if errors.As(err, &derr) {
		pe.Line, pe.Column = derr.Position()
	}
	return pe
}

func yamlError(path string, err error) error {
	pe := &ParseError{Path: path, Message: err.Error(), Err: err}
	var line int
	if _, scanErr := fmt.Sscanf(err.Error(), "yaml: line %d:", &line); scanErr == nil {
		pe.Line = line
	}
	return pe
}
