package main

import (
	"fmt"
	"os"

	"github.com/govm-net/guestenv/compiler"
	"github.com/govm-net/guestenv/hostsim"
	"github.com/govm-net/guestenv/store"
	"github.com/govm-net/guestenv/vm"
	"gopkg.in/yaml.v3"
)

type storeConfig struct {
	Type   store.Type     `yaml:"type"`
	Params map[string]any `yaml:"params"`
}

// fileConfig is the layout of the --config file. Missing fields keep
// their defaults.
type fileConfig struct {
	Host     hostsim.Config  `yaml:"host"`
	VM       vm.Config       `yaml:"vm"`
	Compiler compiler.Config `yaml:"compiler"`
	Store    storeConfig     `yaml:"store"`
	CodeDir  string          `yaml:"code_dir"`
	// Origin signs every deploy and call. It is funded with Funds.
	Origin string `yaml:"origin"`
	Funds  uint64 `yaml:"funds"`
}

func defaultConfig() fileConfig {
	return fileConfig{
		Host:     hostsim.DefaultConfig(),
		VM:       vm.DefaultConfig(),
		Compiler: compiler.DefaultConfig(),
		Store:    storeConfig{Type: store.MemoryType},
		CodeDir:  ".code",
		Origin:   "0x0101010101010101010101010101010101010101010101010101010101010101",
		Funds:    1_000_000_000_000,
	}
}

func loadConfig(path string) (fileConfig, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}
