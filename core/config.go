package core

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Env          string
		Debug        bool
		TestMode     bool
		AppName      string
		RollbarToken string
		Database     DatabaseConfig
		Storage      StorageConfig
		Migration    MigrationConfig
		Server       ServerConfig
	}

	DatabaseConfig struct {
		Engine       string // postgres (lib/pq) | pgx
		Host         string
		Port         int
		Name         string
		User         string
		Password     string
		DisableTLS   bool
		PingAttempts int
	}

	StorageConfig struct {
		DataDir string
	}

	MigrationConfig struct {
		SourceDir string
		BatchSize int
	}

	ServerConfig struct {
		Address string
		Host    string
	}
)

// Address returns the database "host:port".
func (db DatabaseConfig) Address() string {
	return net.JoinHostPort(db.Host, strconv.Itoa(db.Port))
}

// HasCredentials reports whether a remote store was configured.
func (db DatabaseConfig) HasCredentials() bool {
	return db.Host != "" && db.User != ""
}

// NewConfig loads the configuration from defaults, the optional config/.env.<env> file and the environment.
// ENV selects the environment: DEV (local; default), TEST, QA, PROD.
func NewConfig() (*Config, error) {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("appName", "Cohort Manager")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "postgres")
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.disableTLS", false)
	v.SetDefault("database.pingAttempts", 5)
	v.SetDefault("storage.dataDir", "data")
	v.SetDefault("migration.sourceDir", filepath.Join("data", "legacy"))
	v.SetDefault("migration.batchSize", DefaultBatchSize)
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.host", "localhost")

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}

	// load .env if it exists (ignore if it does not)
	wd, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrap(err, "config: getwd")
	}
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			return nil, errors.Wrapf(err, "config: godotenv(%s)", dotEnvPath)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "config: stat(%s)", dotEnvPath)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	conf := &Config{
		Env:          env,
		Debug:        v.GetBool("debug"),
		TestMode:     v.GetBool("testMode"),
		AppName:      v.GetString("appName"),
		RollbarToken: v.GetString("rollbarToken"),
		Database: DatabaseConfig{
			Engine:       v.GetString("database.engine"),
			Host:         v.GetString("database.host"),
			Port:         v.GetInt("database.port"),
			Name:         v.GetString("database.name"),
			User:         v.GetString("database.user"),
			Password:     v.GetString("database.password"),
			DisableTLS:   v.GetBool("database.disableTLS"),
			PingAttempts: v.GetInt("database.pingAttempts"),
		},
		Storage:   StorageConfig{DataDir: v.GetString("storage.dataDir")},
		Migration: MigrationConfig{SourceDir: v.GetString("migration.sourceDir"), BatchSize: v.GetInt("migration.batchSize")},
		Server:    ServerConfig{Address: v.GetString("server.address"), Host: v.GetString("server.host")},
	}
	if err := conf.validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

func (conf *Config) validate() error {
	switch conf.Database.Engine {
	case "postgres", "pgx":
	default:
		return fmt.Errorf("config: unsupported database engine %q", conf.Database.Engine)
	}
	if conf.Migration.BatchSize <= 0 {
		return fmt.Errorf("config: migration batch size must be positive (got %d)", conf.Migration.BatchSize)
	}
	if conf.Database.PingAttempts <= 0 {
		conf.Database.PingAttempts = 1
	}
	return nil
}
