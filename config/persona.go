package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Persona controls the tone of the generated narration. Defaults match the
// radio-DJ style the bot shipped with; a YAML file can override any field.
type Persona struct {
	Tone    string `yaml:"tone"`
	Opening string `yaml:"opening"`
	Closing string `yaml:"closing"`
}

// DefaultPersona returns the built-in radio-DJ persona.
func DefaultPersona() Persona {
	return Persona{
		Tone:    "明るく親しみやすい",
		Opening: "おはようございます",
		Closing: "それでは良い一日を！",
	}
}

// LoadPersona reads a persona YAML file. An empty path returns the default persona.
// Fields omitted from the file keep their defaults.
func LoadPersona(path string) (Persona, error) {
	p := DefaultPersona()
	if path == "" {
		return p, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("read persona file: %w", err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("parse persona file %s: %w", path, err)
	}
	if p.Tone == "" {
		p.Tone = DefaultPersona().Tone
	}
	if p.Opening == "" {
		p.Opening = DefaultPersona().Opening
	}
	if p.Closing == "" {
		p.Closing = DefaultPersona().Closing
	}
	return p, nil
}
