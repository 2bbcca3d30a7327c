package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"ninetofiver/config"
)

const defaultConfigName = ".ninetofiver.yaml"

// configFilePath picks --configFile, then the file viper loaded, then
// $HOME/.ninetofiver.yaml.
func configFilePath(flagValue, loaded string) (string, error) {
	for _, candidate := range []string{flagValue, loaded} {
		if strings.TrimSpace(candidate) != "" {
			return candidate, nil
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, defaultConfigName), nil
}

// writeConfigTemplate writes the example config with overrides applied unless
// path already exists. It reports whether a file was written.
func writeConfigTemplate(path string, overrides map[string]string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("stat config file %s: %w", path, err)
	}

	content, err := fillConfigTemplate(config.ExampleYAML(), overrides)
	if err != nil {
		return false, err
	}
	if _, err := config.ValidateYAMLContent([]byte(content)); err != nil {
		return false, fmt.Errorf("generated config is invalid: %w", err)
	}

	if err := ensureParentDir(path, 0o755); err != nil {
		return false, err
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return false, fmt.Errorf("write config file %s: %w", path, err)
	}
	return true, nil
}

// fillConfigTemplate sets dotted keys such as "redmine.url" in template. The
// comment header and key order of the template are preserved.
func fillConfigTemplate(template string, overrides map[string]string) (string, error) {
	values := make(map[string]string, len(overrides))
	for key, value := range overrides {
		if strings.TrimSpace(value) != "" {
			values[key] = strings.TrimSpace(value)
		}
	}
	if len(values) == 0 {
		return template, nil
	}

	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(template), &doc); err != nil {
		return "", fmt.Errorf("parse config template: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return "", errors.New("config template is empty")
	}

	for key, value := range values {
		node := lookupYAMLKey(doc.Content[0], strings.Split(key, "."))
		if node == nil {
			return "", fmt.Errorf("unknown config key %q", key)
		}
		node.Value = value
		node.Tag = "!!str"
		node.Style = yaml.DoubleQuotedStyle
	}

	var out strings.Builder
	encoder := yaml.NewEncoder(&out)
	encoder.SetIndent(2)
	if err := encoder.Encode(&doc); err != nil {
		return "", fmt.Errorf("render config template: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return "", fmt.Errorf("render config template: %w", err)
	}
	return out.String(), nil
}

func lookupYAMLKey(node *yaml.Node, path []string) *yaml.Node {
	if node == nil || node.Kind != yaml.MappingNode || len(path) == 0 {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value != path[0] {
			continue
		}
		if len(path) == 1 {
			return node.Content[i+1]
		}
		return lookupYAMLKey(node.Content[i+1], path[1:])
	}
	return nil
}
