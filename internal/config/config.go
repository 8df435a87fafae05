package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// this is a pointer so that if someone attempts to use it before loading it will
// panic and force them to load it first.
// it is also private so that it cannot be modified after loading.
var _loaded *Config

// Config is the main configuration structure
type Config struct {
	Common Common `yaml:"common"`
}

// Load loads the configuration following proper precedence: defaults → config file → environment variables
func Load() {
	// Start with defaults
	_loaded = &defaultConfig

	// Try to load from config file and merge over defaults
	configFile := os.Getenv("IDEAFORGE_CONFIG_FILE")
	if configFile == "" {
		configFile = "ideaforge.yaml"
	}

	if err := LoadFromFile(configFile); err != nil {
		log.Printf("Failed to load config file: %v, using defaults", err)
	} else {
		log.Printf("Loaded config from file: %s", configFile)
	}

	// Apply environment variable overrides (highest priority)
	ApplyEnvOverrides()
}

func LoadDefault() {
	config := defaultConfig
	_loaded = &config
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	// Start with defaults
	cfg := defaultConfig

	// Merge YAML values over defaults
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	_loaded = &cfg
	return nil
}

// Validate checks that the loaded configuration is usable. The Anthropic
// credential is mandatory: no pipeline operation can run without it, so
// startup must fail fast when it is missing.
func Validate() error {
	if _loaded == nil {
		panic("config not loaded - call Load() first")
	}

	if _loaded.Common.Anthropic.APIKey == "" {
		return fmt.Errorf("anthropic API key is required: set ANTHROPIC_API_KEY or anthropic.api_key in the config file")
	}

	if _loaded.Common.Assets.BaseDir == "" {
		return fmt.Errorf("assets base directory is required")
	}

	return nil
}

// set sane defaults for all of the config options. when loading the config from
// the file, any options that are not set will be set to these defaults.
var defaultConfig = Config{
	Common: Common{
		Log: logConfig{
			Level:  "info",
			Format: "json",
		},
		Http: httpConfig{
			Host:           "0.0.0.0",
			Port:           8080,
			MaxRequestSize: 10485760,
		},
		Auth: authConfig{
			APIKey: "",
		},
		Postgres: postgresConfig{
			postgresConfigCommon: postgresConfigCommon{
				User:               "postgres",
				Password:           "postgres",
				Host:               "localhost",
				Port:               5432,
				Database:           "ideaforge",
				SchemaName:         "public",
				ReadTimeout:        30,
				WriteTimeout:       30,
				MaxOpenConnections: 10,
			},
		},
		Anthropic: anthropicConfig{
			APIKey:      "",
			BaseURL:     "https://api.anthropic.com",
			Model:       "claude-3-7-sonnet-20250219",
			MaxTokens:   1024,
			Temperature: 0.7,
			Timeout:     60,
		},
		Assets: assetsConfig{
			BaseDir: "assets",
		},
		Blender: blenderConfig{
			Enabled:    true,
			Executable: "",
			Timeout:    120,
		},
		Graph: graphConfig{
			Enabled: false,
			Neo4j:   neo4jConfig{},
		},
	},
}

type Common struct {
	Log       logConfig       `yaml:"log"`
	Http      httpConfig      `yaml:"http"`
	Auth      authConfig      `yaml:"auth"`
	Postgres  postgresConfig  `yaml:"postgres"`
	Anthropic anthropicConfig `yaml:"anthropic"`
	Assets    assetsConfig    `yaml:"assets"`
	Blender   blenderConfig   `yaml:"blender"`
	Graph     graphConfig     `yaml:"graph"`
}

type logConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type httpConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	MaxRequestSize int64  `yaml:"max_request_size"`
}

type authConfig struct {
	// Optional API key for the JSON API. Empty disables authentication
	// (single-user local deployments).
	APIKey string `yaml:"api_key"`
}

type postgresConfigCommon struct {
	User               string `yaml:"user"`
	Password           string `yaml:"password"`
	Host               string `yaml:"host"`
	Port               int    `yaml:"port"`
	Database           string `yaml:"database"`
	SchemaName         string `yaml:"schema_name"`
	ReadTimeout        int    `yaml:"read_timeout"`
	WriteTimeout       int    `yaml:"write_timeout"`
	MaxOpenConnections int    `yaml:"max_open_connections"`
}

func (c postgresConfigCommon) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		url.QueryEscape(c.User),
		url.QueryEscape(c.Password),
		c.Host,
		c.Port,
		url.QueryEscape(c.Database),
	)
}

type postgresConfig struct {
	postgresConfigCommon `yaml:",inline"`
}

type anthropicConfig struct {
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float32 `yaml:"temperature"`
	// Timeout is the request timeout in seconds.
	Timeout int `yaml:"timeout"`
}

func (c anthropicConfig) GetAPIKey() string       { return c.APIKey }
func (c anthropicConfig) GetBaseURL() string      { return c.BaseURL }
func (c anthropicConfig) GetModel() string        { return c.Model }
func (c anthropicConfig) GetMaxTokens() int       { return c.MaxTokens }
func (c anthropicConfig) GetTemperature() float32 { return c.Temperature }
func (c anthropicConfig) GetTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

type assetsConfig struct {
	// BaseDir is the root for sketch/image/model blobs. Subdirectories
	// are created on startup.
	BaseDir string `yaml:"base_dir"`
}

type blenderConfig struct {
	Enabled bool `yaml:"enabled"`
	// Executable overrides discovery of the Blender binary.
	Executable string `yaml:"executable"`
	// Timeout is the headless export timeout in seconds.
	Timeout int `yaml:"timeout"`
}

func (c blenderConfig) GetTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

type graphConfig struct {
	Enabled bool        `yaml:"enabled"`
	Neo4j   neo4jConfig `yaml:"neo4j"`
}

type neo4jConfig struct {
	URI      string `yaml:"uri"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

func (c neo4jConfig) GetURI() string      { return c.URI }
func (c neo4jConfig) GetUsername() string { return c.Username }
func (c neo4jConfig) GetPassword() string { return c.Password }
func (c neo4jConfig) GetDatabase() string { return c.Database }

// there should be a getter for each top level field in the config struct.
// these getters will panic if the config has not been loaded.

func Logger() logConfig {
	if _loaded == nil {
		panic("config not loaded - call Load() first")
	}
	return _loaded.Common.Log
}

func Http() httpConfig {
	if _loaded == nil {
		panic("config not loaded - call Load() first")
	}
	return _loaded.Common.Http
}

func Auth() authConfig {
	if _loaded == nil {
		panic("config not loaded - call Load() first")
	}
	return _loaded.Common.Auth
}

func Postgres() postgresConfig {
	if _loaded == nil {
		panic("config not loaded - call Load() first")
	}
	return _loaded.Common.Postgres
}

func Anthropic() anthropicConfig {
	if _loaded == nil {
		panic("config not loaded - call Load() first")
	}
	return _loaded.Common.Anthropic
}

func Assets() assetsConfig {
	if _loaded == nil {
		panic("config not loaded - call Load() first")
	}
	return _loaded.Common.Assets
}

func Blender() blenderConfig {
	if _loaded == nil {
		panic("config not loaded - call Load() first")
	}
	return _loaded.Common.Blender
}

func Graph() graphConfig {
	if _loaded == nil {
		panic("config not loaded - call Load() first")
	}
	return _loaded.Common.Graph
}

func Get() *Config {
	if _loaded == nil {
		panic("config not loaded - call Load() first")
	}
	return _loaded
}

func ApplyEnvOverrides() {
	if _loaded == nil {
		return
	}

	// Override with environment variables if present
	if dbHost := os.Getenv("IDEAFORGE_DB_HOST"); dbHost != "" {
		_loaded.Common.Postgres.Host = dbHost
	}
	if dbPort := os.Getenv("IDEAFORGE_DB_PORT"); dbPort != "" {
		if port, err := strconv.Atoi(dbPort); err == nil {
			_loaded.Common.Postgres.Port = port
		}
	}
	if dbUser := os.Getenv("IDEAFORGE_DB_USER"); dbUser != "" {
		_loaded.Common.Postgres.User = dbUser
	}
	if dbPassword := os.Getenv("IDEAFORGE_DB_PASSWORD"); dbPassword != "" {
		_loaded.Common.Postgres.Password = dbPassword
	}
	if dbName := os.Getenv("IDEAFORGE_DB_NAME"); dbName != "" {
		_loaded.Common.Postgres.Database = dbName
	}

	if httpHost := os.Getenv("IDEAFORGE_HTTP_HOST"); httpHost != "" {
		_loaded.Common.Http.Host = httpHost
	}
	if httpPort := os.Getenv("IDEAFORGE_HTTP_PORT"); httpPort != "" {
		if port, err := strconv.Atoi(httpPort); err == nil {
			_loaded.Common.Http.Port = port
		}
	}

	if apiKey := os.Getenv("IDEAFORGE_API_KEY"); apiKey != "" {
		_loaded.Common.Auth.APIKey = apiKey
	}

	// Anthropic configuration. ANTHROPIC_API_KEY is the conventional
	// variable for the provider credential, so no IDEAFORGE_ prefix.
	if anthropicKey := os.Getenv("ANTHROPIC_API_KEY"); anthropicKey != "" {
		_loaded.Common.Anthropic.APIKey = anthropicKey
	}
	if anthropicModel := os.Getenv("IDEAFORGE_ANTHROPIC_MODEL"); anthropicModel != "" {
		_loaded.Common.Anthropic.Model = anthropicModel
	}
	if anthropicBaseURL := os.Getenv("IDEAFORGE_ANTHROPIC_BASE_URL"); anthropicBaseURL != "" {
		_loaded.Common.Anthropic.BaseURL = anthropicBaseURL
	}

	if assetsDir := os.Getenv("IDEAFORGE_ASSETS_DIR"); assetsDir != "" {
		_loaded.Common.Assets.BaseDir = assetsDir
	}

	if blenderExec := os.Getenv("IDEAFORGE_BLENDER_EXECUTABLE"); blenderExec != "" {
		_loaded.Common.Blender.Executable = blenderExec
	}
	if blenderEnabled := os.Getenv("IDEAFORGE_BLENDER_ENABLED"); blenderEnabled != "" {
		if enabled, err := strconv.ParseBool(blenderEnabled); err == nil {
			_loaded.Common.Blender.Enabled = enabled
		}
	}

	// Graph configuration from environment variables
	if graphEnabled := os.Getenv("IDEAFORGE_GRAPH_ENABLED"); graphEnabled != "" {
		if enabled, err := strconv.ParseBool(graphEnabled); err == nil {
			_loaded.Common.Graph.Enabled = enabled
		}
	}
	if neo4jURI := os.Getenv("IDEAFORGE_NEO4J_URI"); neo4jURI != "" {
		_loaded.Common.Graph.Neo4j.URI = neo4jURI
	}
	if neo4jUsername := os.Getenv("IDEAFORGE_NEO4J_USERNAME"); neo4jUsername != "" {
		_loaded.Common.Graph.Neo4j.Username = neo4jUsername
	}
	if neo4jPassword := os.Getenv("IDEAFORGE_NEO4J_PASSWORD"); neo4jPassword != "" {
		_loaded.Common.Graph.Neo4j.Password = neo4jPassword
	}
	if neo4jDatabase := os.Getenv("IDEAFORGE_NEO4J_DATABASE"); neo4jDatabase != "" {
		_loaded.Common.Graph.Neo4j.Database = neo4jDatabase
	}
}
