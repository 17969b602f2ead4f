package native

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"

	"github.com/funvibe/dtypes/internal/config"
)

// Format of an input document.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

func (f Format) String() string {
	if f == FormatYAML {
		return "yaml"
	}
	return "json"
}

// FormatForPath picks YAML for .yaml/.yml files and JSON otherwise.
func FormatForPath(path string) Format {
	ext := strings.ToLower(filepath.Ext(path))
	for _, y := range config.YAMLFileExtensions {
		if ext == y {
			return FormatYAML
		}
	}
	return FormatJSON
}

// JSON numbers are kept as json.Number so that integers survive decoding.
var jsonNumbers = jsoniter.Config{UseNumber: true, EscapeHTML: true, SortMapKeys: true}.Froze()

// Decode reads one document.
func Decode(data []byte, f Format) (any, error) {
	var v any
	switch f {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("parsing yaml: %w", err)
		}
	default:
		dec := jsonNumbers.NewDecoder(bytes.NewReader(data))
		if err := dec.Decode(&v); err != nil {
			return nil, fmt.Errorf("parsing json: %w", err)
		}
	}
	return v, nil
}

// DecodeFile reads one document from path, choosing the format by extension.
func DecodeFile(path string) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	v, err := Decode(data, FormatForPath(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}
