package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Persona is the assistant identity: the greeting shown to a new session and
// the system prompt sent as session instructions.
type Persona struct {
	Organization string `mapstructure:"organization" yaml:"organization"`
	Welcome      string `mapstructure:"welcome" yaml:"welcome"`
	Prompt       string `mapstructure:"prompt" yaml:"prompt"`
}

// ReadPersona loads a persona yaml file.
func ReadPersona(path string) (Persona, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Persona{}, err
	}
	var persona Persona
	if err := yaml.Unmarshal(data, &persona); err != nil {
		return Persona{}, fmt.Errorf("parse persona %s: %w", path, err)
	}
	return persona, nil
}

// merge overlays the non-empty fields of other onto p.
func (p Persona) merge(other Persona) Persona {
	if s := strings.TrimSpace(other.Organization); s != "" {
		p.Organization = s
	}
	if s := strings.TrimSpace(other.Welcome); s != "" {
		p.Welcome = s
	}
	if s := strings.TrimSpace(other.Prompt); s != "" {
		p.Prompt = other.Prompt
	}
	return p
}

func applyPersonaFile(cfg *Config) error {
	if cfg.PersonaPath == "" {
		return nil
	}
	persona, err := ReadPersona(cfg.PersonaPath)
	if err != nil {
		return err
	}
	cfg.Persona = cfg.Persona.merge(persona)
	return nil
}
