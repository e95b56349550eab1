package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	structValidator "github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gopkg.in/yaml.v3"
)

const (
	CONFIG_PATH        = "./res/config.yaml"
	CLIENT_CONFIG_PATH = "./res/client.yaml"

	// ENV_PREFIX marks environment overrides, e.g. EDUQUEST_PORT or EDUQUEST_DATABASE__TYPE.
	ENV_PREFIX = "EDUQUEST_"
	// ENV_NESTING separates nested keys in an override name.
	ENV_NESTING = "__"

	DatabaseFile     = "file"
	DatabaseMongo    = "mongo"
	DatabasePostgres = "postgres"
	DatabaseDynamoDB = "dynamodb"
)

// ServiceConfig holds the configuration for the server.
type ServiceConfig struct {
	ServiceName string          `yaml:"service_name" mapstructure:"service_name" validate:"required"`
	LogLevel    string          `yaml:"loglevel" mapstructure:"loglevel" validate:"required"`
	Host        string          `yaml:"host" mapstructure:"host" validate:"required"`
	Port        string          `yaml:"port" mapstructure:"port" validate:"required,numeric"`
	RateLimit   RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
	Database    Database        `yaml:"database" mapstructure:"database" validate:"required"`
}

// RateLimitConfig configures the limiter in front of /login and /register.
// A zero RequestsPerSecond disables limiting.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second" validate:"gte=0"`
	Burst             int     `yaml:"burst" mapstructure:"burst" validate:"gte=0"`
}

// Database selects and configures the persistence backend of the credential store.
type Database struct {
	Type     string         `yaml:"type" mapstructure:"type" validate:"required,oneof=file mongo postgres dynamodb"`
	File     FileConfig     `yaml:"file_config" mapstructure:"file_config"`
	MongoDB  MongoDBConfig  `yaml:"mongodb_config" mapstructure:"mongodb_config"`
	Postgres PostgresConfig `yaml:"postgres_config" mapstructure:"postgres_config"`
	DynamoDB DynamoDBConfig `yaml:"dynamodb_config" mapstructure:"dynamodb_config"`
}

type FileConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

type MongoDBConfig struct {
	DSN        string             `yaml:"dsn" mapstructure:"dsn"`
	Collection string             `yaml:"collection" mapstructure:"collection"`
	Timeout    time.Duration      `yaml:"timeout" mapstructure:"timeout"`
	Options    MongoServerOptions `yaml:"mongo_server_options" mapstructure:"mongo_server_options"`
}

type PostgresConfig struct {
	DSN     string                `yaml:"dsn" mapstructure:"dsn"`
	Options PostgresServerOptions `yaml:"postgres_server_options" mapstructure:"postgres_server_options"`
}

type DynamoDBConfig struct {
	Region    string `yaml:"region" mapstructure:"region"`
	TableName string `yaml:"table_name" mapstructure:"table_name"`
	// Endpoint overrides the AWS endpoint, e.g. for DynamoDB Local.
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint"`
}

type MongoServerOptions struct {
	APIVersion           string `yaml:"api_version" mapstructure:"api_version"`
	SetStrict            bool   `yaml:"set_strict" mapstructure:"set_strict"`
	SetDeprecationErrors bool   `yaml:"set_deprecation_errors" mapstructure:"set_deprecation_errors"`
}

type PostgresServerOptions struct {
	MaxOpenConns    int           `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
}

// ClientConfig holds the configuration for the CLI client.
type ClientConfig struct {
	ServiceName    string        `yaml:"service_name" mapstructure:"service_name" validate:"required"`
	LogLevel       string        `yaml:"loglevel" mapstructure:"loglevel" validate:"required"`
	BaseURL        string        `yaml:"base_url" mapstructure:"base_url" validate:"required,url"`
	RequestTimeout time.Duration `yaml:"request_timeout" mapstructure:"request_timeout" validate:"gt=0"`
	CacheDir       string        `yaml:"cache_dir" mapstructure:"cache_dir" validate:"required"`
}

// ReadLocalConfig reads the service configuration from a YAML file at the specified path.
// It unmarshals the YAML content into a ServiceConfig struct and returns it.
// If there is an error reading the file or unmarshaling the content, it returns an error.
func ReadLocalConfig(configPath string) (*ServiceConfig, error) {
	config := &ServiceConfig{}
	if err := readYAML(configPath, config); err != nil {
		return nil, err
	}
	return config, nil
}

// ReadClientConfig reads the client configuration from a YAML file at the specified path.
func ReadClientConfig(configPath string) (*ClientConfig, error) {
	config := &ClientConfig{}
	if err := readYAML(configPath, config); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadServiceConfig reads the YAML file, applies EDUQUEST_* overrides from the
// environment and validates the result.
func LoadServiceConfig(configPath string, validator *structValidator.Validate) (*ServiceConfig, error) {
	cfg, err := ReadLocalConfig(configPath)
	if err != nil {
		return nil, err
	}
	if err := ApplyEnvOverrides(cfg, os.Environ()); err != nil {
		return nil, err
	}
	if err := Validate(validator, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadClientConfig is the client counterpart of LoadServiceConfig.
func LoadClientConfig(configPath string, validator *structValidator.Validate) (*ClientConfig, error) {
	cfg, err := ReadClientConfig(configPath)
	if err != nil {
		return nil, err
	}
	if err := ApplyEnvOverrides(cfg, os.Environ()); err != nil {
		return nil, err
	}
	if err := Validate(validator, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readYAML(configPath string, out interface{}) error {
	yamlFile, err := os.ReadFile(configPath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(yamlFile, out)
}

// ApplyEnvOverrides decodes EDUQUEST_* variables from environ onto target.
// Nested keys are separated by a double underscore: EDUQUEST_DATABASE__FILE_CONFIG__PATH.
// Fields without a matching variable keep their current value.
func ApplyEnvOverrides(target interface{}, environ []string) error {
	overrides := make(map[string]interface{})
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, ENV_PREFIX) {
			continue
		}
		path := strings.Split(strings.ToLower(strings.TrimPrefix(key, ENV_PREFIX)), ENV_NESTING)
		setNested(overrides, path, value)
	}
	if len(overrides) == 0 {
		return nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return fmt.Errorf("failed to build env decoder: %w", err)
	}
	if err := decoder.Decode(overrides); err != nil {
		return fmt.Errorf("failed to apply env overrides: %w", err)
	}
	return nil
}

func setNested(m map[string]interface{}, path []string, value string) {
	for i, key := range path {
		if i == len(path)-1 {
			m[key] = value
			return
		}
		next, ok := m[key].(map[string]interface{})
		if !ok {
			next = make(map[string]interface{})
			m[key] = next
		}
		m = next
	}
}

// NewValidator returns a validator that also knows the per-backend database rules.
func NewValidator() *structValidator.Validate {
	validator := structValidator.New()
	validator.RegisterStructValidation(databaseStructLevel, Database{})
	return validator
}

// Validate runs struct validation and flattens the validation errors into one error.
func Validate(validator *structValidator.Validate, cfg interface{}) error {
	if err := validator.Struct(cfg); err != nil {
		return fmt.Errorf("validation error: %s", err)
	}
	return nil
}

// databaseStructLevel requires the settings of the selected backend only.
func databaseStructLevel(sl structValidator.StructLevel) {
	db := sl.Current().Interface().(Database)
	switch db.Type {
	case DatabaseFile:
		if db.File.Path == "" {
			sl.ReportError(db.File.Path, "File.Path", "Path", "required", "")
		}
	case DatabaseMongo:
		if db.MongoDB.DSN == "" {
			sl.ReportError(db.MongoDB.DSN, "MongoDB.DSN", "DSN", "required", "")
		}
	case DatabasePostgres:
		if db.Postgres.DSN == "" {
			sl.ReportError(db.Postgres.DSN, "Postgres.DSN", "DSN", "required", "")
		}
	case DatabaseDynamoDB:
		if db.DynamoDB.Region == "" {
			sl.ReportError(db.DynamoDB.Region, "DynamoDB.Region", "Region", "required", "")
		}
		if db.DynamoDB.TableName == "" {
			sl.ReportError(db.DynamoDB.TableName, "DynamoDB.TableName", "TableName", "required", "")
		}
	}
}

func BuildServerAPIOptions(cfg MongoServerOptions) *options.ServerAPIOptions {
	opts := options.ServerAPI(options.ServerAPIVersion(cfg.APIVersion))
	opts.SetStrict(cfg.SetStrict)
	opts.SetDeprecationErrors(cfg.SetDeprecationErrors)

	return opts
}
