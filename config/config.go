package config

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const (
	KeyDatabasePath              = "database.path"
	KeyRedmineURL                = "redmine.url"
	KeyRedmineAPIKey             = "redmine.api_key"
	KeyRedmineIssueContractField = "redmine.issue_contract_field"
	KeyRedmineScanAllFields      = "redmine.scan_all_custom_fields"
	KeyRedmineTimeout            = "redmine.timeout"
	KeyRedminePageSize           = "redmine.page_size"
	KeyLogLevel                  = "log.level"
	KeyLogFormat                 = "log.format"
	KeyServerPort                = "server.port"
	KeyFeedsLeaveLink            = "feeds.leave_link"
	KeyDebug                     = "debug"

	EnvPrefix = "NINETOFIVER"
)

type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Redmine  RedmineConfig  `mapstructure:"redmine"`
	Log      LogConfig      `mapstructure:"log"`
	Server   ServerConfig   `mapstructure:"server"`
	Feeds    FeedsConfig    `mapstructure:"feeds"`
	Debug    bool           `mapstructure:"debug"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

type RedmineConfig struct {
	URL                 string        `mapstructure:"url" validate:"omitempty,url"`
	APIKey              string        `mapstructure:"api_key"`
	IssueContractField  string        `mapstructure:"issue_contract_field" validate:"required"`
	ScanAllCustomFields bool          `mapstructure:"scan_all_custom_fields"`
	Timeout             time.Duration `mapstructure:"timeout" validate:"gte=0"`
	PageSize            int           `mapstructure:"page_size" validate:"gte=1,lte=100"`
}

// Configured reports whether both URL and API key are present.
func (r RedmineConfig) Configured() bool {
	return strings.TrimSpace(r.URL) != "" && strings.TrimSpace(r.APIKey) != ""
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"omitempty,oneof=console json"`
}

type ServerConfig struct {
	Port int `mapstructure:"port" validate:"gte=1,lte=65535"`
}

type FeedsConfig struct {
	LeaveLink string `mapstructure:"leave_link" validate:"omitempty,url"`
}

// SetDefaults sets default values if not provided
func SetDefaults() {
	setDefaults(viper.GetViper())
}

// LoadAndValidate loads config from Viper and validates it
func LoadAndValidate() (*Config, error) {
	return loadAndValidateFromViper(viper.GetViper())
}

// ValidateYAMLContent validates configuration from raw YAML content.
func ValidateYAMLContent(content []byte) (*Config, error) {
	local := viper.New()
	setDefaults(local)
	local.SetConfigType("yaml")
	if err := local.ReadConfig(bytes.NewReader(content)); err != nil {
		return nil, fmt.Errorf("read config content: %w", err)
	}
	return loadAndValidateFromViper(local)
}

// ExampleYAML returns the default configuration template.
func ExampleYAML() string {
	return `# ninetofiver configuration
database:
  path: "./ninetofiver.db"

redmine:
  url: ""
  api_key: ""
  issue_contract_field: "Contract"
  scan_all_custom_fields: false
  timeout: 30s
  page_size: 100

log:
  level: "info"
  format: "console"

server:
  port: 8080

feeds:
  leave_link: ""

debug: false
`
}

func loadAndValidateFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	if strings.TrimSpace(cfg.Redmine.URL) != "" && strings.TrimSpace(cfg.Redmine.APIKey) == "" {
		return nil, fmt.Errorf("validation failed: redmine.api_key is required when redmine.url is set")
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyDatabasePath, "./ninetofiver.db")
	v.SetDefault(KeyRedmineURL, "")
	v.SetDefault(KeyRedmineAPIKey, "")
	v.SetDefault(KeyRedmineIssueContractField, "Contract")
	v.SetDefault(KeyRedmineScanAllFields, false)
	v.SetDefault(KeyRedmineTimeout, 30*time.Second)
	v.SetDefault(KeyRedminePageSize, 100)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "console")
	v.SetDefault(KeyServerPort, 8080)
	v.SetDefault(KeyFeedsLeaveLink, "")
	v.SetDefault(KeyDebug, false)
}
