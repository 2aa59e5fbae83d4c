package core

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config contains all of the configuration options available to the server
// and the command line tools.
type Config struct {
	// Hostname or IP address on which the Bancho endpoint will listen.
	Hostname string `mapstructure:"hostname"`
	// Port of the Bancho HTTP endpoint.
	Port int `mapstructure:"port"`
	// Name reported in logs and in the welcome notification.
	ServerName string `mapstructure:"server_name"`

	Logging struct {
		// Minimum level of a log required to be written. Options: debug, info, warn, error
		LogLevel string `mapstructure:"log_level"`
		// Full path to file to which logs will be written. Blank will write to stdout.
		LogFilePath string `mapstructure:"log_file_path"`
	} `mapstructure:"logging"`

	Bancho struct {
		// Protocol version sent to clients during login.
		ProtocolVersion int32 `mapstructure:"protocol_version"`
		// Sessions that have not polled for this long are logged out.
		SessionTimeout time.Duration `mapstructure:"session_timeout"`
		// Upper bound on the byte length of strings decoded from clients.
		MaxStringLength int `mapstructure:"max_string_length"`
		// Allow tournament clients to attach to an account that is already online.
		AllowTournamentClients bool `mapstructure:"allow_tournament_clients"`
		// Notification shown to every user after logging in.
		WelcomeMessage string `mapstructure:"welcome_message"`
	} `mapstructure:"bancho"`

	Auth struct {
		// Secret used to sign session tokens for the JWT based client variants.
		JWTSecret string `mapstructure:"jwt_secret"`
		// Lifetime of issued JWT session tokens.
		JWTExpiry time.Duration `mapstructure:"jwt_expiry"`
		// bcrypt cost used when hashing new passwords.
		BcryptCost int `mapstructure:"bcrypt_cost"`
		// Number of password verifications allowed to run concurrently.
		VerifyWorkers int64 `mapstructure:"verify_workers"`
	} `mapstructure:"auth"`

	Database struct {
		// Either postgres or sqlite.
		Engine string `mapstructure:"engine"`
		// SQLite database file, relative to the config directory if not absolute.
		Filename string `mapstructure:"filename"`
		// Hostname of the Postgres database instance.
		Host string `mapstructure:"host"`
		// Port on db_host on which the Postgres instance is accepting connections.
		Port int `mapstructure:"port"`
		// Name of the database in Postgres.
		Name string `mapstructure:"name"`
		// Username and password of a user with full RW privileges to ${db_name}.
		Username string `mapstructure:"username"`
		Password string `mapstructure:"password"`
		// Set to verify-full if the Postgres instance supports SSL.
		SSLMode string `mapstructure:"sslmode"`
	} `mapstructure:"database"`

	Geolocation struct {
		// Path to a MaxMind GeoLite2 City database. Blank disables lookups.
		DatabasePath string `mapstructure:"database_path"`
		// Number of resolved addresses to keep in memory.
		CacheSize int `mapstructure:"cache_size"`
	} `mapstructure:"geolocation"`

	Cache struct {
		// How long offline accounts stay cached after being loaded.
		AccountTTL time.Duration `mapstructure:"account_ttl"`
	} `mapstructure:"cache"`

	MQTT struct {
		// Publish presence events to an MQTT broker.
		Enabled  bool   `mapstructure:"enabled"`
		Broker   string `mapstructure:"broker"`
		ClientID string `mapstructure:"client_id"`
		Topic    string `mapstructure:"topic"`
	} `mapstructure:"mqtt"`

	Metrics struct {
		// Expose Prometheus metrics on /metrics.
		Enabled bool `mapstructure:"enabled"`
	} `mapstructure:"metrics"`

	Debugging struct {
		// Enable extra info-providing mechanisms for the server.
		PprofEnabled bool `mapstructure:"pprof_enabled"`
		// Port on which a pprof server will be started if debug mode is enabled.
		PprofPort int `mapstructure:"pprof_port"`
		// Log packets to stdout.
		PacketLoggingEnabled bool `mapstructure:"packet_logging_enabled"`
		// Enable database-level query logging.
		DatabaseLoggingEnabled bool `mapstructure:"database_logging_enabled"`
	} `mapstructure:"debugging"`

	configDir string
}

const envVarPrefix = "KISUMI"

var defaults = map[string]interface{}{
	"hostname":                           "0.0.0.0",
	"port":                               5001,
	"server_name":                        "Kisumi",
	"logging.log_level":                  "info",
	"logging.log_file_path":              "",
	"bancho.protocol_version":            19,
	"bancho.session_timeout":             "5m",
	"bancho.max_string_length":           1 << 16,
	"bancho.allow_tournament_clients":    true,
	"bancho.welcome_message":             "Welcome to Kisumi!",
	"auth.jwt_secret":                    "",
	"auth.jwt_expiry":                    "24h",
	"auth.bcrypt_cost":                   10,
	"auth.verify_workers":                4,
	"database.engine":                    "sqlite",
	"database.filename":                  "kisumi.db",
	"database.host":                      "localhost",
	"database.port":                      5432,
	"database.name":                      "kisumi",
	"database.username":                  "kisumi",
	"database.password":                  "",
	"database.sslmode":                   "disable",
	"geolocation.database_path":          "",
	"geolocation.cache_size":             200,
	"cache.account_ttl":                  "10m",
	"mqtt.enabled":                       false,
	"mqtt.broker":                        "tcp://localhost:1883",
	"mqtt.client_id":                     "kisumi",
	"mqtt.topic":                         "kisumi/presence",
	"metrics.enabled":                    true,
	"debugging.pprof_enabled":            false,
	"debugging.pprof_port":               6060,
	"debugging.packet_logging_enabled":   false,
	"debugging.database_logging_enabled": false,
}

// LoadConfig reads config.yaml from configPath, applying defaults for any
// missing keys and KISUMI_ prefixed environment variable overrides.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(configPath)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix(envVarPrefix)
	v.AutomaticEnv()

	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// This allows us to set nested yaml config options through environment
	// variables. For example, database.host can be set using: KISUMI_DATABASE_HOST
	for _, k := range v.AllKeys() {
		envVar := envVarPrefix + "_" + strings.ReplaceAll(strings.ToUpper(k), ".", "_")
		if err := v.BindEnv(k, envVar); err != nil {
			return nil, fmt.Errorf("error binding %s to %s: %w", k, envVar, err)
		}
	}

	config := &Config{configDir: configPath}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config object: %w", err)
	}
	return config, nil
}

const databaseURITemplate = "host=%s port=%d dbname=%s user=%s password=%s sslmode=%s"

// DatabaseURL returns a database URL generated from the provided config values.
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf(
		databaseURITemplate,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.Username,
		c.Database.Password,
		c.Database.SSLMode,
	)
}

// Address returns the host:port the Bancho endpoint listens on.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Hostname, c.Port)
}

// QualifiedPath resolves a path from the config file relative to the
// directory the config was loaded from.
func (c *Config) QualifiedPath(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.configDir, path)
}
