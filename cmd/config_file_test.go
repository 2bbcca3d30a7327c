package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ninetofiver/config"
)

func TestConfigFilePath(t *testing.T) {
	t.Run("flag wins over loaded file", func(t *testing.T) {
		got, err := configFilePath("./custom.yaml", "/tmp/active.yaml")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "./custom.yaml" {
			t.Fatalf("expected flag path, got %q", got)
		}
	})

	t.Run("loaded file without flag", func(t *testing.T) {
		got, err := configFilePath("  ", "/tmp/active.yaml")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "/tmp/active.yaml" {
			t.Fatalf("expected loaded path, got %q", got)
		}
	})

	t.Run("home directory fallback", func(t *testing.T) {
		home := t.TempDir()
		t.Setenv("HOME", home)

		got, err := configFilePath("", "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if want := filepath.Join(home, ".ninetofiver.yaml"); got != want {
			t.Fatalf("expected %q, got %q", want, got)
		}
	})
}

func TestFillConfigTemplate(t *testing.T) {
	t.Run("no overrides keeps template", func(t *testing.T) {
		got, err := fillConfigTemplate(config.ExampleYAML(), map[string]string{config.KeyRedmineURL: ""})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != config.ExampleYAML() {
			t.Fatalf("expected template unchanged, got:\n%s", got)
		}
	})

	t.Run("sets nested keys", func(t *testing.T) {
		got, err := fillConfigTemplate(config.ExampleYAML(), map[string]string{
			config.KeyDatabasePath:  "./team.db",
			config.KeyRedmineURL:    "https://redmine.example.com",
			config.KeyRedmineAPIKey: "0123abcd",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		cfg, err := config.ValidateYAMLContent([]byte(got))
		if err != nil {
			t.Fatalf("filled template is invalid: %v\n%s", err, got)
		}
		if cfg.Database.Path != "./team.db" {
			t.Fatalf("expected database path ./team.db, got %q", cfg.Database.Path)
		}
		if !cfg.Redmine.Configured() || cfg.Redmine.URL != "https://redmine.example.com" {
			t.Fatalf("expected redmine to be configured, got %+v", cfg.Redmine)
		}
		if cfg.Redmine.IssueContractField != "Contract" {
			t.Fatalf("expected untouched keys to keep template values, got %q", cfg.Redmine.IssueContractField)
		}
	})

	t.Run("unknown key", func(t *testing.T) {
		if _, err := fillConfigTemplate(config.ExampleYAML(), map[string]string{"redmine.nope": "x"}); err == nil {
			t.Fatalf("expected error for unknown key")
		}
	})
}

func TestWriteConfigTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "myconfig.yaml")

	created, err := writeConfigTemplate(path, nil)
	if err != nil {
		t.Fatalf("unexpected error creating template config: %v", err)
	}
	if !created {
		t.Fatalf("expected file to be created")
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read config file: %v", err)
	}
	if !strings.Contains(string(content), "# ninetofiver configuration") {
		t.Fatalf("expected example config content, got:\n%s", string(content))
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat config file: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("expected config file mode 0600, got %o", info.Mode().Perm())
	}

	created, err = writeConfigTemplate(path, map[string]string{config.KeyDatabasePath: "./other.db"})
	if err != nil {
		t.Fatalf("unexpected error on existing config file: %v", err)
	}
	if created {
		t.Fatalf("did not expect existing file to be rewritten")
	}
}

func TestWriteConfigTemplateRejectsURLWithoutKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	if _, err := writeConfigTemplate(path, map[string]string{config.KeyRedmineURL: "https://redmine.example.com"}); err == nil {
		t.Fatalf("expected validation error for url without api key")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected no file to be written")
	}
}

func TestEditorCommand(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want []string
	}{
		{name: "visual wins", env: map[string]string{"VISUAL": "code --wait", "EDITOR": "nano"}, want: []string{"code", "--wait", "/tmp/cfg.yaml"}},
		{name: "editor fallback", env: map[string]string{"VISUAL": "  ", "EDITOR": "nano"}, want: []string{"nano", "/tmp/cfg.yaml"}},
		{name: "default vi", env: map[string]string{}, want: []string{"vi", "/tmp/cfg.yaml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			getenv := func(key string) string { return tt.env[key] }
			cmd, err := editorCommand(getenv, "/tmp/cfg.yaml")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if strings.Join(cmd.Args, " ") != strings.Join(tt.want, " ") {
				t.Fatalf("expected args %v, got %v", tt.want, cmd.Args)
			}
		})
	}
}
