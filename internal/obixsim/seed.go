package obixsim

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/gaspardpetit/obix/sdk/contract"
)

// Seed describes an initial point. Either XML or Kind and Value must be set.
type Seed struct {
	Path     string `yaml:"path"`
	Name     string `yaml:"name"`
	Writable bool   `yaml:"writable"`
	Kind     string `yaml:"kind"`
	Value    string `yaml:"value"`
	XML      string `yaml:"xml"`
}

// SeedFile is the layout of a simulator seed document.
type SeedFile struct {
	Points []Seed `yaml:"points"`
}

// LoadSeedFile reads seeds from a YAML file.
func LoadSeedFile(path string) ([]Seed, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f SeedFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	return f.Points, nil
}

// Contract builds the contract a seed describes.
func (s Seed) Contract() (*contract.Contract, error) {
	if s.XML != "" {
		return contract.Parse([]byte(s.XML))
	}
	c, err := contract.ParseValue(s.Kind, s.Value)
	if err != nil {
		return nil, fmt.Errorf("seed %s: %w", s.Path, err)
	}
	return c.Named(s.Name, ""), nil
}

// Seed stores every seed in the simulator's store.
func (s *Server) Seed(ctx context.Context, seeds []Seed) error {
	for _, sd := range seeds {
		c, err := sd.Contract()
		if err != nil {
			return fmt.Errorf("seed %s: %w", sd.Path, err)
		}
		if err := s.store.Put(ctx, Record{Path: sd.Path, Writable: sd.Writable, XML: c.String()}); err != nil {
			return fmt.Errorf("seed %s: %w", sd.Path, err)
		}
	}
	return nil
}
