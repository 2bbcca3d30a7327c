package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"ninetofiver/config"
)

var (
	deleteDBPath string
	deleteYes    bool
)

var (
	promptInput  io.Reader = os.Stdin
	promptOutput io.Writer = os.Stdout
)

// sqliteSidecars are the files SQLite keeps next to a database.
var sqliteSidecars = []string{"-wal", "-shm", "-journal"}

var deleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete the local SQLite database",
	Long: `Destructive database cleanup command.

Deletes the SQLite database together with its -wal, -shm and -journal files.
All imported performances, contracts and leave are lost; Redmine is not touched.
Without --db the path is taken from database.path in the configuration.
Unless --yes is given, an interactive prompt requires typing exactly "Y".`,
	Example: `
  # Delete the database configured in database.path
  ninetofiver delete

  # Delete a specific database without prompting
  ninetofiver delete --db ./ninetofiver.db --yes
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var cfg *config.Config
		if deleteDBPath == "" {
			loaded, err := config.LoadAndValidate()
			if err != nil {
				return err
			}
			cfg = loaded
		}
		path := resolveDBPath(deleteDBPath, cfg)

		if !deleteYes {
			confirmed, err := confirmPrompt(promptInput, promptOutput, fmt.Sprintf("Delete database %q and all imported data?", path))
			if err != nil {
				return err
			}
			if !confirmed {
				return errors.New("delete aborted: confirmation was not 'Y'")
			}
		}

		removed, err := removeDatabase(path)
		if err != nil {
			return err
		}
		for _, file := range removed {
			fmt.Printf("Deleted: %s\n", file)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)

	deleteCmd.Flags().StringVar(&deleteDBPath, "db", "", "Path to local SQLite database (default: database.path)")
	deleteCmd.Flags().BoolVar(&deleteYes, "yes", false, "Skip the confirmation prompt")
}

// confirmPrompt asks question and accepts only an exact "Y".
func confirmPrompt(input io.Reader, output io.Writer, question string) (bool, error) {
	if input == nil {
		return false, errors.New("confirmation input is not available")
	}
	if output == nil {
		output = io.Discard
	}

	if _, err := fmt.Fprintf(output, "%s Type Y to confirm: ", question); err != nil {
		return false, fmt.Errorf("write confirmation prompt: %w", err)
	}

	line, err := bufio.NewReader(input).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("read confirmation: %w", err)
	}
	return strings.TrimSpace(line) == "Y", nil
}

// removeDatabase deletes path and any SQLite sidecar files, returning what
// was removed. The database file itself must exist.
func removeDatabase(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("database file not found: %s", path)
		}
		return nil, fmt.Errorf("stat database file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("database path is a directory: %s", path)
	}

	if err := os.Remove(path); err != nil {
		return nil, fmt.Errorf("delete database file: %w", err)
	}
	removed := []string{path}

	for _, suffix := range sqliteSidecars {
		sidecar := path + suffix
		err := os.Remove(sidecar)
		switch {
		case err == nil:
			removed = append(removed, sidecar)
		case errors.Is(err, os.ErrNotExist):
		default:
			return removed, fmt.Errorf("delete %s: %w", sidecar, err)
		}
	}
	return removed, nil
}
