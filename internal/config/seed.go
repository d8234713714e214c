package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Seed lists the exchanges and currency pairs to create at startup.
type Seed struct {
	Exchanges []SeedExchange `yaml:"exchanges"`
}

// SeedExchange is one exchange in a seed file. An empty ID lets the
// service generate one.
type SeedExchange struct {
	ID    string     `yaml:"id"`
	Pairs []SeedPair `yaml:"pairs"`
}

// SeedPair is a currency pair to register. An empty Symbol defaults to
// "BASE/COUNTER".
type SeedPair struct {
	Symbol  string `yaml:"symbol"`
	Base    string `yaml:"base"`
	Counter string `yaml:"counter"`
}

// LoadSeed reads a YAML seed file. ${VAR} references are expanded from the
// environment before parsing.
func LoadSeed(path string) (*Seed, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	raw = []byte(os.ExpandEnv(string(raw)))

	seed := &Seed{}
	if err := yaml.Unmarshal(raw, seed); err != nil {
		return nil, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	for i, ex := range seed.Exchanges {
		for j, p := range ex.Pairs {
			if p.Base == "" || p.Counter == "" {
				return nil, fmt.Errorf("seed exchange %d pair %d: base and counter are required", i, j)
			}
		}
	}
	return seed, nil
}
