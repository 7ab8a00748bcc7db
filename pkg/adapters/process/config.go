package process

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ProcessConfig is one allow-listed tool entry of a tools file.
type ProcessConfig struct {
	Name        string            `yaml:"name"`
	Command     string            `yaml:"command"`
	Args        []string          `yaml:"args"`
	Environment map[string]string `yaml:"env"`
	Description string            `yaml:"description"`
	// Timeout bounds a single invocation, e.g. "30s". Empty means the runner default.
	Timeout string `yaml:"timeout"`
}

// ConfigFile is the document layout of tools.yaml (or tools.json).
type ConfigFile struct {
	Tools []ProcessConfig `yaml:"tools"`
}

// timeout returns the parsed Timeout, zero when unset.
func (c ProcessConfig) timeout() (time.Duration, error) {
	if c.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %s", c.Timeout)
	}
	return d, nil
}

func (c ProcessConfig) check() error {
	if c.Command == "" {
		return fmt.Errorf("tool %q has no command", c.Name)
	}
	if _, err := c.timeout(); err != nil {
		return fmt.Errorf("tool %q has an invalid timeout: %w", c.Name, err)
	}
	return nil
}

// LoadTools reads the tool allow-list at path, keyed by tool name.
// JSON files are read with the YAML decoder since JSON is valid YAML.
// A missing file yields an empty allow-list and entries without a name are
// skipped. Unknown keys, duplicate names and bad entries are all reported.
func LoadTools(path string) (map[string]ProcessConfig, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]ProcessConfig{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read tools config: %w", err)
	}

	var cfg ConfigFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse tools config %s: %w", path, err)
	}

	tools := make(map[string]ProcessConfig, len(cfg.Tools))
	var errs []error
	for _, tool := range cfg.Tools {
		if tool.Name == "" {
			continue
		}
		if _, dup := tools[tool.Name]; dup {
			errs = append(errs, fmt.Errorf("tool %q is declared twice", tool.Name))
			continue
		}
		if err := tool.check(); err != nil {
			errs = append(errs, err)
			continue
		}
		tools[tool.Name] = tool
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return tools, nil
}
