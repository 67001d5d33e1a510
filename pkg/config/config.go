// Package config holds the tunables of the scheduling core. The fields here
// are all in PascalCase but in your actual kernel.yml they'll be in
// camelCase. You can view the default config with `cfsproc --config`.
package config

import (
	"os"
	"path/filepath"

	"github.com/OpenPeeDeeP/xdg"
	yaml "github.com/jesseduffield/yaml"
)

// KernelConfig holds every tunable named in the scheduling core's external
// interface: pool sizes, fairness constants, and niceness bounds.
type KernelConfig struct {
	// NProc is the fixed size of the process descriptor pool. Every
	// runqueue slot maps 1:1 to a descriptor slot, so the runqueue can
	// never overflow by construction.
	NProc int `yaml:"nproc,omitempty"`

	// NOFile is the number of open-file slots carried per descriptor.
	NOFile int `yaml:"nofile,omitempty"`

	// MinGran floors slice length in abstract time units, suppressing
	// preemption thrash.
	MinGran int `yaml:"minGran,omitempty"`

	// NiceClamp is the maximum niceness value; higher requests are
	// clamped down to it.
	NiceClamp int `yaml:"niceClamp,omitempty"`

	// WeightBase is the weight assigned to nice 0.
	WeightBase int `yaml:"weightBase,omitempty"`

	// WeightRatio is the per-nice-step geometric falloff applied to
	// WeightBase.
	WeightRatio float64 `yaml:"weightRatio,omitempty"`

	// Debug turns on file-backed development logging.
	Debug bool `yaml:"debug,omitempty"`

	// ConfigDir is where logs and the resolved config are written.
	ConfigDir string `yaml:"-"`
}

// Latency returns the scheduling latency period: half the pool size, as
// specified. It floors at 1 so a pool of size 1 still has a sane period.
func (c *KernelConfig) Latency() int {
	if c.NProc <= 1 {
		return 1
	}
	return c.NProc / 2
}

// Default returns the reference tunables from the scheduling core's
// end-to-end scenarios: NPROC=8, latency=4 (derived), min_gran=2.
func Default() *KernelConfig {
	return &KernelConfig{
		NProc:       8,
		NOFile:      16,
		MinGran:     2,
		NiceClamp:   30,
		WeightBase:  1024,
		WeightRatio: 1.25,
	}
}

// New builds a KernelConfig, resolving ConfigDir the way the teacher
// resolves its application config directory, and overlaying any
// kernel.yml found there onto the defaults.
func New(appName string, debug bool) (*KernelConfig, error) {
	configDir := xdg.ConfigHome()
	configDir = filepath.Join(configDir, appName)
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, err
	}

	cfg := Default()
	cfg.Debug = debug
	cfg.ConfigDir = configDir

	userConfigPath := filepath.Join(configDir, "kernel.yml")
	if content, err := os.ReadFile(userConfigPath); err == nil {
		if err := yaml.Unmarshal(content, cfg); err != nil {
			return nil, err
		}
		cfg.ConfigDir = configDir
		cfg.Debug = cfg.Debug || debug
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	return cfg, nil
}

// Dump renders the config as YAML, the same shape printed by `--config`.
func Dump(cfg *KernelConfig) (string, error) {
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
