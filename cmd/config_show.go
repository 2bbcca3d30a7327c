package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"ninetofiver/config"
)

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show active configuration values.",
	Long: `Display the currently loaded configuration and the resolved config file path.

This command validates the configuration before printing values. The Redmine API key is masked.`,
	Example: `
  # Show active configuration
  ninetofiver config show
`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.LoadAndValidate()
		if err != nil {
			fmt.Println("Invalid config:", err)
			return
		}

		if configPath := viper.ConfigFileUsed(); configPath != "" {
			fmt.Println("Config file loaded from:", configPath)
		}
		printConfig(os.Stdout, cfg)
	},
}

func printConfig(w io.Writer, cfg *config.Config) {
	fmt.Fprintln(w, "Configuration:")
	fmt.Fprintf(w, "%s: %s\n", config.KeyDatabasePath, cfg.Database.Path)
	fmt.Fprintf(w, "%s: %s\n", config.KeyRedmineURL, cfg.Redmine.URL)
	fmt.Fprintf(w, "%s: %s\n", config.KeyRedmineAPIKey, maskSecret(cfg.Redmine.APIKey))
	fmt.Fprintf(w, "%s: %s\n", config.KeyRedmineIssueContractField, cfg.Redmine.IssueContractField)
	fmt.Fprintf(w, "%s: %t\n", config.KeyRedmineScanAllFields, cfg.Redmine.ScanAllCustomFields)
	fmt.Fprintf(w, "%s: %s\n", config.KeyRedmineTimeout, cfg.Redmine.Timeout)
	fmt.Fprintf(w, "%s: %d\n", config.KeyRedminePageSize, cfg.Redmine.PageSize)
	fmt.Fprintf(w, "%s: %s\n", config.KeyLogLevel, cfg.Log.Level)
	fmt.Fprintf(w, "%s: %s\n", config.KeyLogFormat, cfg.Log.Format)
	fmt.Fprintf(w, "%s: %d\n", config.KeyServerPort, cfg.Server.Port)
	fmt.Fprintf(w, "%s: %s\n", config.KeyFeedsLeaveLink, cfg.Feeds.LeaveLink)
	fmt.Fprintf(w, "%s: %t\n", config.KeyDebug, cfg.Debug)
}

func maskSecret(value string) string {
	if len(value) <= 4 {
		if value == "" {
			return ""
		}
		return "****"
	}
	return "****" + value[len(value)-4:]
}

func init() {
	configCmd.AddCommand(configShowCmd)
}
