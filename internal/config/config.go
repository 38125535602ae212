package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/jakechorley/category-allocator/pkg/core/allocator"
	"github.com/jakechorley/category-allocator/pkg/core/model"
)

// Backend selects the record store holding the category, product and target tables
type Backend string

const (
	BackendBitable Backend = "bitable"
	BackendSheets  Backend = "sheets"
)

const (
	DefaultBitableEndpoint = "https://open.larksuite.com"
	DefaultBatchSize       = 100

	// BitableAppSecretEnv holds the Bitable app secret; it is never read from the yaml file
	BitableAppSecretEnv = "BITABLE_APP_SECRET"
)

// BitableConfig configures the Lark/Feishu Bitable backend
type BitableConfig struct {
	APIEndpoint string `yaml:"apiEndpoint" validate:"omitempty,url"`
	AppID       string `yaml:"appID"`
}

// SheetsConfig configures the Google Sheets backend
type SheetsConfig struct {
	// OAuthClientFile is the installed-app client JSON from the Cloud console.
	// Relative paths are resolved against the config file's directory. When
	// unset, oauthClient[.<env>].json is looked up beside the config file, in
	// the current directory, then in the home directory.
	OAuthClientFile string `yaml:"oauthClientFile" validate:"omitempty,file"`
}

// GoogleClient holds the parts of a Google OAuth client file the Sheets
// backend needs to run the consent flow
type GoogleClient struct {
	ClientID     string `json:"client_id" validate:"required"`
	ClientSecret string `json:"client_secret" validate:"required"`
	AuthURI      string `json:"auth_uri" validate:"omitempty,url"`
	TokenURI     string `json:"token_uri" validate:"omitempty,url"`
}

// FieldNames maps the roles the allocator needs to column names in the tables
type FieldNames struct {
	CategoryLabel     string `yaml:"categoryLabel" validate:"required"`
	RequiredQuantity  string `yaml:"requiredQuantity" validate:"required"`
	TotalStock        string `yaml:"totalStock" validate:"required"`
	SalesRate         string `yaml:"salesRate" validate:"required"`
	AllocatedQuantity string `yaml:"allocatedQuantity" validate:"required"`
	EvenSplitQuantity string `yaml:"evenSplitQuantity" validate:"required"`
	ProductName       string `yaml:"productName" validate:"required"`
}

// Config represents the application configuration
type Config struct {
	Backend            Backend            `yaml:"backend" validate:"required,oneof=bitable sheets"`
	Bitable            BitableConfig      `yaml:"bitable"`
	Sheets             SheetsConfig       `yaml:"sheets"`
	CategoryTable      model.TableRef     `yaml:"categoryTable"`
	ProductTable       model.TableRef     `yaml:"productTable"`
	TargetTable        model.TableRef     `yaml:"targetTable"`
	Fields             FieldNames         `yaml:"fields"`
	Policy             allocator.Policy   `yaml:"policy" validate:"oneof=moh even"`
	TotalRounding      allocator.Rounding `yaml:"totalRounding" validate:"oneof=truncate round"`
	BatchSize          int                `yaml:"batchSize" validate:"min=1,max=500"`
	HistoryDatabaseURL string             `yaml:"historyDatabaseURL,omitempty"`
}

// Secrets holds credentials loaded from the environment
type Secrets struct {
	BitableAppSecret string
}

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// DefaultFieldNames returns the column names used by the stock planning base
func DefaultFieldNames() FieldNames {
	return FieldNames{
		CategoryLabel:     "Mã danh mục",
		RequiredQuantity:  "Số lượng cần",
		TotalStock:        "Tổng lượng hàng",
		SalesRate:         "SL bán",
		AllocatedQuantity: "SL phân bổ",
		EvenSplitQuantity: "SL bán dự kiến 6/2025",
		ProductName:       "Tên sản phẩm",
	}
}

// Load loads and validates the configuration from allocator_config.yaml
func Load() (*Config, error) {
	return LoadWithEnv("")
}

// LoadWithEnv loads and validates the configuration with an environment suffix
// For example, env="test" will look for "allocator_config.test.yaml"
// It looks for the config file in the current directory first, then in the user's home directory
func LoadWithEnv(env string) (*Config, error) {
	configPath, err := findConfigFile(env)
	if err != nil {
		return nil, fmt.Errorf("failed to find config file: %w", err)
	}

	return loadFile(configPath, env)
}

// LoadFromPath loads and validates the configuration from a specific path
func LoadFromPath(path string) (*Config, error) {
	return loadFile(path, "")
}

func loadFile(path, env string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)
	resolveOAuthClientFile(&cfg, env, filepath.Dir(path))

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Bitable.APIEndpoint == "" {
		cfg.Bitable.APIEndpoint = DefaultBitableEndpoint
	}
	if cfg.Policy == "" {
		cfg.Policy = allocator.PolicyMOH
	}
	if cfg.TotalRounding == "" {
		cfg.TotalRounding = allocator.RoundingTruncate
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = DefaultBatchSize
	}

	defaults := DefaultFieldNames()
	fillDefault(&cfg.Fields.CategoryLabel, defaults.CategoryLabel)
	fillDefault(&cfg.Fields.RequiredQuantity, defaults.RequiredQuantity)
	fillDefault(&cfg.Fields.TotalStock, defaults.TotalStock)
	fillDefault(&cfg.Fields.SalesRate, defaults.SalesRate)
	fillDefault(&cfg.Fields.AllocatedQuantity, defaults.AllocatedQuantity)
	fillDefault(&cfg.Fields.EvenSplitQuantity, defaults.EvenSplitQuantity)
	fillDefault(&cfg.Fields.ProductName, defaults.ProductName)
}

func fillDefault(value *string, fallback string) {
	if *value == "" {
		*value = fallback
	}
}

// Validate validates the configuration struct and checks backend-specific settings
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	if cfg.Backend == BackendBitable && cfg.Bitable.AppID == "" {
		return errors.New("config validation failed: bitable.appID is required when backend is bitable")
	}

	if cfg.Backend == BackendSheets && cfg.Sheets.OAuthClientFile == "" {
		return errors.New("config validation failed: sheets.oauthClientFile is required when backend is sheets and no oauthClient file was found")
	}

	if cfg.TargetTable == cfg.CategoryTable {
		return errors.New("config validation failed: targetTable must differ from categoryTable")
	}

	return nil
}

// AllocatorOptions returns the allocator settings derived from the configuration
func (c *Config) AllocatorOptions() allocator.Options {
	return allocator.Options{
		Fields: allocator.Fields{
			RequiredQuantity:  c.Fields.RequiredQuantity,
			EvenSplitQuantity: c.Fields.EvenSplitQuantity,
			TotalStock:        c.Fields.TotalStock,
			SalesRate:         c.Fields.SalesRate,
			AllocatedQuantity: c.Fields.AllocatedQuantity,
		},
		Rounding: c.TotalRounding,
	}
}

// LoadSecrets loads .env.<env> and .env (if present) into the process environment
// and reads the secrets the backends need. Variables already set take precedence.
func LoadSecrets(env string) (*Secrets, error) {
	var files []string
	if env != "" {
		files = append(files, ".env."+env)
	}
	files = append(files, ".env")

	for _, file := range files {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", file, err)
		}
	}

	return &Secrets{
		BitableAppSecret: os.Getenv(BitableAppSecretEnv),
	}, nil
}

// GoogleClient reads the OAuth client file named by sheets.oauthClientFile.
// Both "installed" and "web" client files are accepted.
func (c *Config) GoogleClient() (*GoogleClient, error) {
	if c.Sheets.OAuthClientFile == "" {
		return nil, errors.New("sheets.oauthClientFile is not set")
	}

	data, err := os.ReadFile(c.Sheets.OAuthClientFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read oauth client file: %w", err)
	}

	var file struct {
		Installed *GoogleClient `json:"installed"`
		Web       *GoogleClient `json:"web"`
	}
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse oauth client file: %w", err)
	}

	client := file.Installed
	if client == nil {
		client = file.Web
	}
	if client == nil {
		return nil, fmt.Errorf("%s has no installed or web client", c.Sheets.OAuthClientFile)
	}

	if err := validate.Struct(client); err != nil {
		return nil, fmt.Errorf("oauth client validation failed: %w", err)
	}

	return client, nil
}

// resolveOAuthClientFile makes a configured relative path absolute against
// configDir, or looks for oauthClient[.<env>].json when the Sheets backend has
// none configured. A missing file is left for Validate to report.
func resolveOAuthClientFile(cfg *Config, env, configDir string) {
	if cfg.Sheets.OAuthClientFile != "" {
		if !filepath.IsAbs(cfg.Sheets.OAuthClientFile) {
			cfg.Sheets.OAuthClientFile = filepath.Join(configDir, cfg.Sheets.OAuthClientFile)
		}
		return
	}
	if cfg.Backend != BackendSheets {
		return
	}

	fileName := "oauthClient.json"
	if env != "" {
		fileName = "oauthClient." + env + ".json"
	}

	candidates := []string{filepath.Join(configDir, fileName), fileName}
	if homeDir, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(homeDir, fileName))
	}

	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			cfg.Sheets.OAuthClientFile = candidate
			return
		}
	}
}

// findConfigFile searches for allocator_config.yaml in current directory and home directory
// If env is provided, it adds it as an extension (e.g., "allocator_config.test.yaml")
func findConfigFile(env string) (string, error) {
	configFileName := "allocator_config.yaml"
	if env != "" {
		configFileName = "allocator_config." + env + ".yaml"
	}

	// Check current directory
	if _, err := os.Stat(configFileName); err == nil {
		return configFileName, nil
	}

	// Check home directory
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	homeConfigPath := filepath.Join(homeDir, configFileName)
	if _, err := os.Stat(homeConfigPath); err == nil {
		return homeConfigPath, nil
	}

	return "", fmt.Errorf("%s not found in current directory or home directory", configFileName)
}
