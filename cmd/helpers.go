package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"ninetofiver/config"
	"ninetofiver/internal/timeutil"
	"ninetofiver/model"
	"ninetofiver/output"
	"ninetofiver/reconcile"
	"ninetofiver/redmine"
	"ninetofiver/storage"
)

// resolveDBPath prefers an explicit --db flag over database.path.
func resolveDBPath(explicitPath string, cfg *config.Config) string {
	if strings.TrimSpace(explicitPath) != "" {
		return explicitPath
	}
	if cfg != nil && strings.TrimSpace(cfg.Database.Path) != "" {
		return cfg.Database.Path
	}
	return "./ninetofiver.db"
}

func openStore(explicitPath string, cfg *config.Config) (*storage.SQLiteStore, error) {
	path := resolveDBPath(explicitPath, cfg)
	if err := ensureParentDir(path, 0o755); err != nil {
		return nil, err
	}
	return storage.OpenSQLite(path)
}

func ensureParentDir(path string, mode os.FileMode) error {
	parent := filepath.Dir(path)
	if err := os.MkdirAll(parent, mode); err != nil {
		return fmt.Errorf("create directory %q: %w", parent, err)
	}
	return nil
}

// newRedmineClient returns a nil interface when Redmine is not configured, so
// callers can hand the result straight to the reconciliation service.
func newRedmineClient(cfg *config.Config, log zerolog.Logger) (redmine.Client, error) {
	if !cfg.Redmine.Configured() {
		return nil, nil
	}
	client, err := redmine.NewClient(redmine.ClientConfig{
		BaseURL:  cfg.Redmine.URL,
		APIKey:   cfg.Redmine.APIKey,
		Timeout:  cfg.Redmine.Timeout,
		PageSize: cfg.Redmine.PageSize,
		Logger:   log,
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}

func requireRedmineClient(cfg *config.Config, log zerolog.Logger) (redmine.Client, error) {
	client, err := newRedmineClient(cfg, log)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, fmt.Errorf("%w: set %s and %s", redmine.ErrNotConfigured, config.KeyRedmineURL, config.KeyRedmineAPIKey)
	}
	return client, nil
}

func resolverOptions(cfg *config.Config) reconcile.ResolverOptions {
	return reconcile.ResolverOptions{
		ContractField: cfg.Redmine.IssueContractField,
		ScanAllFields: cfg.Redmine.ScanAllCustomFields,
	}
}

// parseDayFlag accepts YYYY-MM-DD or a relative day. Empty stays zero.
func parseDayFlag(name, value string, now time.Time) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return time.Time{}, nil
	}
	parsed, err := timeutil.ParseDate(value, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s value: %w", name, err)
	}
	return time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, time.UTC), nil
}

type userLookup interface {
	GetUser(id int64) (model.User, error)
	GetUserByUsername(username string) (model.User, error)
}

// findUser resolves a numeric id or a username.
func findUser(store userLookup, value string) (model.User, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return model.User{}, errors.New("user is empty")
	}
	if id, err := strconv.ParseInt(value, 10, 64); err == nil {
		user, err := store.GetUser(id)
		if err == nil || !errors.Is(err, storage.ErrUserNotFound) {
			return user, err
		}
	}
	return store.GetUserByUsername(value)
}

func detectExportFormat(path string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	switch ext {
	case "csv":
		return "csv"
	case "xlsx", "xlsm", "xls":
		return "excel"
	default:
		return "csv"
	}
}

func writeTable(path, format string, table output.Table) error {
	if strings.TrimSpace(format) == "" {
		format = detectExportFormat(path)
	}
	writer, err := output.WriterForFormat(format)
	if err != nil {
		return err
	}
	if err := ensureParentDir(path, 0o755); err != nil {
		return err
	}
	return writer.Write(path, table)
}
