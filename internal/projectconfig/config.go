// Package projectconfig provides the ProjectConfig struct and loader for
// .agentkvm.yaml project-level configuration files.
package projectconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ConfigFile is the project configuration filename.
const ConfigFile = ".agentkvm.yaml"

// Default values for project configuration. These are the single source of
// truth: New() references them and no other code should duplicate them.
const (
	DefaultBackend       = "ollama"
	DefaultMaxIterations = 50
	DefaultWorkdir       = ".agentkvm"
)

// BackendConfig selects and configures the reasoning backend.
type BackendConfig struct {
	Name  string `yaml:"name,omitempty"`
	Host  string `yaml:"host,omitempty"`
	Port  int    `yaml:"port,omitempty"`
	Model string `yaml:"model,omitempty"`
}

// AgentConfig holds loop parameters.
type AgentConfig struct {
	MaxIterations int    `yaml:"max_iterations,omitempty"`
	Workdir       string `yaml:"workdir,omitempty"`
}

// LoggingConfig holds output settings.
type LoggingConfig struct {
	Verbose    *bool `yaml:"verbose,omitempty"`
	SessionLog *bool `yaml:"session_log,omitempty"`
}

// ProjectConfig is the top-level configuration loaded from .agentkvm.yaml.
type ProjectConfig struct {
	Backend BackendConfig `yaml:"backend,omitempty"`
	Agent   AgentConfig   `yaml:"agent,omitempty"`
	Logging LoggingConfig `yaml:"logging,omitempty"`
}

// New returns a ProjectConfig with all hard-coded defaults populated.
func New() *ProjectConfig {
	return &ProjectConfig{
		Backend: BackendConfig{
			Name: DefaultBackend,
		},
		Agent: AgentConfig{
			MaxIterations: DefaultMaxIterations,
			Workdir:       DefaultWorkdir,
		},
		Logging: LoggingConfig{
			Verbose:    boolPtr(false),
			SessionLog: boolPtr(true),
		},
	}
}

// Load finds .agentkvm.yaml by walking up from startDir (max 10 levels),
// unmarshals it, and fills in missing fields with defaults.
// If no config file is found, returns defaults with a nil error.
// Real I/O errors (e.g. permission denied) are returned to the caller.
func Load(startDir string) (*ProjectConfig, error) {
	cfg := New()

	data, err := findConfigFile(startDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil // no file found → return defaults
		}
		return nil, fmt.Errorf("loading %s: %w", ConfigFile, err)
	}

	var fileCfg ProjectConfig
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", ConfigFile, err)
	}

	mergeConfig(cfg, &fileCfg)
	return cfg, nil
}

// findConfigFile walks up from dir looking for .agentkvm.yaml (max 10
// levels). Returns os.ErrNotExist if no config file is found. Propagates
// real I/O errors (e.g. permission denied) instead of silently swallowing
// them.
func findConfigFile(dir string) ([]byte, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving path %q: %w", dir, err)
	}
	dir = absDir

	for i := 0; i < 10; i++ {
		p := filepath.Join(dir, ConfigFile)
		data, err := os.ReadFile(p)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading %q: %w", p, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break // reached filesystem root
		}
		dir = parent
	}
	return nil, os.ErrNotExist
}

// mergeConfig overlays non-zero values from src onto dst.
func mergeConfig(dst, src *ProjectConfig) {
	if src.Backend.Name != "" {
		dst.Backend.Name = src.Backend.Name
	}
	if src.Backend.Host != "" {
		dst.Backend.Host = src.Backend.Host
	}
	if src.Backend.Port != 0 {
		dst.Backend.Port = src.Backend.Port
	}
	if src.Backend.Model != "" {
		dst.Backend.Model = src.Backend.Model
	}

	if src.Agent.MaxIterations != 0 {
		dst.Agent.MaxIterations = src.Agent.MaxIterations
	}
	if src.Agent.Workdir != "" {
		dst.Agent.Workdir = src.Agent.Workdir
	}

	if src.Logging.Verbose != nil {
		dst.Logging.Verbose = src.Logging.Verbose
	}
	if src.Logging.SessionLog != nil {
		dst.Logging.SessionLog = src.Logging.SessionLog
	}
}

func boolPtr(b bool) *bool {
	return &b
}
