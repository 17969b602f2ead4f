package typesystem

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// MarshalYAML encodes t in its wire form as a YAML document.
func MarshalYAML(t Type, ctx ArtifactContext) ([]byte, error) {
	return yaml.Marshal(t.ToJSON(ctx))
}

// UnmarshalYAML decodes a descriptor from a YAML document holding its wire form.
// YAML integers are read as numbers and mapping keys are rendered as strings.
func UnmarshalYAML(data []byte, ctx ArtifactContext) (Type, error) {
	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decoding descriptor: %w", err)
	}
	if m == nil {
		return nil, &MissingTypeNameError{}
	}
	return TypeFromDict(m, ctx)
}
