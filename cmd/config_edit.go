package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"ninetofiver/config"
)

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open the active config in an editor.",
	Long: `Open the active ninetofiver config file in $VISUAL, $EDITOR or vi.

A missing file is created from the example template first. After the editor
exits the content is validated, and a warning is logged when Redmine is left
unconfigured.`,
	Example: `
  # Edit active config
  ninetofiver config edit

  # Edit with a specific editor
  EDITOR="code --wait" ninetofiver config edit
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := configFilePath(cfgFile, viper.ConfigFileUsed())
		if err != nil {
			return err
		}

		created, err := writeConfigTemplate(path, nil)
		if err != nil {
			return err
		}
		if created {
			fmt.Printf("No config file found. Created example config at: %s\n", path)
		}

		editor, err := editorCommand(os.Getenv, path)
		if err != nil {
			return err
		}
		editor.Stdin = os.Stdin
		editor.Stdout = os.Stdout
		editor.Stderr = os.Stderr
		if err := editor.Run(); err != nil {
			return fmt.Errorf("run editor: %w", err)
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read edited config: %w", err)
		}
		cfg, err := config.ValidateYAMLContent(content)
		if err != nil {
			return fmt.Errorf("config validation failed in %s: %w", path, err)
		}
		if !cfg.Redmine.Configured() {
			log.Warn().Str("path", path).Msg("redmine is not configured, sync commands will fail")
		}

		fmt.Printf("Configuration saved and validated: %s\n", path)
		return nil
	},
}

// editorCommand builds the editor invocation from $VISUAL or $EDITOR, which may
// carry arguments, falling back to vi.
func editorCommand(getenv func(string) string, path string) (*exec.Cmd, error) {
	value := "vi"
	for _, name := range []string{"VISUAL", "EDITOR"} {
		if candidate := strings.TrimSpace(getenv(name)); candidate != "" {
			value = candidate
			break
		}
	}

	fields := strings.Fields(value)
	if len(fields) == 0 {
		return nil, fmt.Errorf("editor command is empty")
	}
	return exec.Command(fields[0], append(fields[1:], path)...), nil
}

func init() {
	configCmd.AddCommand(configEditCmd)
}
