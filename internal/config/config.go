package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Env        string           `yaml:"env"        env-default:"local"` // Env is the current environment: local, development, production.
	Postgres   PostgresConfig   `yaml:"postgres"   env-required:"true"` // Postgres holds the database configuration
	Roster     RosterConfig     `yaml:"roster"`                         // Roster holds the roster importer configuration
	Monitoring MonitoringConfig `yaml:"monitoring"`                     // Monitoring holds the metrics/health server configuration
}

// PostgresConfig struct holds the configuration details for connecting to a PostgreSQL database.
type PostgresConfig struct {
	Host     string `yaml:"host"`                        // Host is the database server address.
	Port     string `yaml:"port"     env-default:"5432"` // Port is the database server port.
	User     string `yaml:"user"`                        // User is the database user.
	Password string `yaml:"password"`                    // Password is the database user's password.
	Dbname   string `yaml:"db_name"`                     // Dbname is the name of the database.
}

// RosterConfig struct holds the configuration of the roster importer.
type RosterConfig struct {
	Path     string        `yaml:"path"`                       // Path is the YAML roster file; empty disables the importer.
	Interval time.Duration `yaml:"interval" env-default:"12h"` // Interval is the time after that the roster is imported again.
}

// MonitoringConfig struct holds the configuration of the monitoring server.
type MonitoringConfig struct {
	Port int `yaml:"port" env-default:"8080"` // Port is the port serving /metrics and /healthz.
}

const (
	defaultInterval       = 12 * time.Hour
	defaultMonitoringPort = 8080
)

// envBindings maps configuration keys to the environment variables overriding them.
var envBindings = map[string]string{
	"env":               "MNEMOSYNE_ENV",
	"postgres.host":     "DB_HOST",
	"postgres.port":     "DB_PORT",
	"postgres.user":     "DB_USERNAME",
	"postgres.password": "DB_PASSWORD",
	"postgres.db_name":  "DB_NAME",
	"roster.path":       "MNEMOSYNE_ROSTER",
	"roster.interval":   "MNEMOSYNE_INTERVAL",
	"monitoring.port":   "MNEMOSYNE_MONITORING_PORT",
}

// MustLoad loads the configuration and returns a Config struct. Values are taken, from lowest
// to highest priority, from built-in defaults, the dotenv file (ENV_FILE, `.env` by default),
// the YAML file named by CONFIG_PATH and the environment. It panics on invalid input.
func MustLoad() *Config {
	vpr := viper.New()

	vpr.SetDefault("env", "local")
	vpr.SetDefault("postgres.port", "5432")
	vpr.SetDefault("roster.interval", defaultInterval.String())
	vpr.SetDefault("monitoring.port", defaultMonitoringPort)

	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if dotenv, err := godotenv.Read(envFile); err == nil {
		for key, name := range envBindings {
			if value, ok := dotenv[name]; ok {
				vpr.SetDefault(key, value)
			}
		}
	}

	if configPath := os.Getenv("CONFIG_PATH"); configPath != "" {
		// check if file exists
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			panic("config file does not exist: " + configPath)
		}

		vpr.SetConfigFile(configPath)
		vpr.SetConfigType("yaml")
		if err := vpr.ReadInConfig(); err != nil {
			panic("config error: " + err.Error())
		}
	}

	for key, name := range envBindings {
		if err := vpr.BindEnv(key, name); err != nil {
			panic("config error: " + err.Error())
		}
	}

	interval, err := time.ParseDuration(vpr.GetString("roster.interval"))
	if err != nil || interval <= 0 {
		panic("failed to parse interval from configuration")
	}

	port := vpr.GetInt("monitoring.port")
	if port <= 0 || port > 65535 {
		panic("failed to parse monitoring port from configuration")
	}

	return &Config{
		Env: vpr.GetString("env"),
		Postgres: PostgresConfig{
			Host:     vpr.GetString("postgres.host"),
			Port:     vpr.GetString("postgres.port"),
			User:     vpr.GetString("postgres.user"),
			Password: vpr.GetString("postgres.password"),
			Dbname:   vpr.GetString("postgres.db_name"),
		},
		Roster: RosterConfig{
			Path:     vpr.GetString("roster.path"),
			Interval: interval,
		},
		Monitoring: MonitoringConfig{
			Port: port,
		},
	}
}
