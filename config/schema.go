package config

import (
	"github.com/invopop/jsonschema"

	"go.viam.com/obstacles/obstacles"
)

// fileSchema mirrors Config with the detection attributes typed, for schema generation.
type fileSchema struct {
	LogLevel      string           `json:"log_level,omitempty"`
	Detection     obstacles.Config `json:"detection,omitempty"`
	Frames        []FrameConfig    `json:"frames,omitempty"`
	CacheDuration string           `json:"transform_cache_duration,omitempty"`
}

// Schema returns the JSON schema of a configuration file.
func Schema() *jsonschema.Schema {
	return jsonschema.Reflect(&fileSchema{})
}

// DetectionSchema returns the JSON schema of the detection attributes.
func DetectionSchema() *jsonschema.Schema {
	return jsonschema.Reflect(&obstacles.Config{})
}
