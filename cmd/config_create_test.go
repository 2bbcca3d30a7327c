package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"

	"ninetofiver/config"
)

func useConfigFile(t *testing.T, path string) {
	t.Helper()
	t.Cleanup(func() {
		cfgFile = ""
		viper.Reset()
	})
	cfgFile = path
	viper.Reset()
}

func TestCreateConfigFileWritesTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "create-template.yaml")
	useConfigFile(t, path)

	var out bytes.Buffer
	if err := createConfigFile(&out, nil); err != nil {
		t.Fatalf("unexpected error creating config: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected config file to exist: %v", err)
	}
	text := string(content)
	if !strings.Contains(text, "redmine:") || !strings.Contains(text, "issue_contract_field: \"Contract\"") {
		t.Fatalf("expected redmine example in config file, got:\n%s", text)
	}
	if !strings.Contains(out.String(), "Redmine is not configured yet") {
		t.Fatalf("expected redmine hint, got %q", out.String())
	}
}

func TestCreateConfigFileWithRedmine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "redmine.yaml")
	useConfigFile(t, path)

	var out bytes.Buffer
	err := createConfigFile(&out, map[string]string{
		config.KeyRedmineURL:    "https://redmine.example.com",
		config.KeyRedmineAPIKey: "0123abcd",
	})
	if err != nil {
		t.Fatalf("unexpected error creating config: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	cfg, err := config.ValidateYAMLContent(content)
	if err != nil {
		t.Fatalf("created config is invalid: %v", err)
	}
	if !cfg.Redmine.Configured() {
		t.Fatalf("expected redmine to be configured")
	}
	if strings.Contains(out.String(), "not configured") {
		t.Fatalf("did not expect redmine hint, got %q", out.String())
	}
}

func TestCreateConfigFileKeepsExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "existing.yaml")
	original := "database:\n  path: \"./custom.db\"\nredmine:\n  url: \"https://redmine.example.com\"\n  api_key: \"secret\"\n"
	if err := os.WriteFile(path, []byte(original), 0o644); err != nil {
		t.Fatalf("write initial config: %v", err)
	}
	useConfigFile(t, path)

	var out bytes.Buffer
	if err := createConfigFile(&out, map[string]string{config.KeyDatabasePath: "./other.db"}); err != nil {
		t.Fatalf("unexpected error creating config: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read existing config: %v", err)
	}
	if string(content) != original {
		t.Fatalf("expected existing config to remain unchanged")
	}
	if !strings.Contains(out.String(), "already exists") {
		t.Fatalf("expected already-exists message, got %q", out.String())
	}
}
