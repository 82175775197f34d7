package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

var ErrConfigPath = errors.New("config path is not set")

type Config struct {
	Env        string `yaml:"env" env:"ENV" env-default:"local"`
	HTTPServer `yaml:"http_server"`
	Backend    Backend    `yaml:"backend"`
	Admin      Admin      `yaml:"admin"`
	Redis      Redis      `yaml:"redis"`
	Database   Database   `yaml:"database"`
	LocalStore LocalStore `yaml:"local_store"`
	DBProxy    DBProxy    `yaml:"db_proxy"`
}

type HTTPServer struct {
	Address     string        `yaml:"address" env:"HTTP_ADDRESS" env-default:"localhost:8080"`
	Timeout     time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
	Cors        []string      `yaml:"cors" env:"CORS_ORIGINS" env-separator:"," env-default:"http://localhost:3000"`
}

// Backend is where the site pulls the authoritative document from.
type Backend struct {
	URL     string        `yaml:"url" env:"BACKEND_URL"`
	Timeout time.Duration `yaml:"timeout" env:"BACKEND_TIMEOUT" env-default:"5s"`
}

type Admin struct {
	Emails []string `yaml:"emails" env:"ADMIN_EMAILS" env-separator:","`
}

type Redis struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
	Key      string `yaml:"key" env:"REDIS_KEY" env-default:"studio_db"`
}

// Database configures the optional write journal of the /db endpoint.
type Database struct {
	Enabled    bool   `yaml:"enabled" env:"JOURNAL_ENABLED" env-default:"false"`
	Host       string `yaml:"host" env:"DB_HOST" env-default:"localhost"`
	Port       int    `yaml:"port" env:"DB_PORT" env-default:"3306"`
	UsernameDB string `yaml:"username-db" env:"DB_USER"`
	Password   string `yaml:"password" env:"DB_PASSWORD"`
	DBName     string `yaml:"dbname" env:"DB_NAME" env-default:"studio"`
}

// DBProxy is the listener of the /db endpoint.
type DBProxy struct {
	Address string `yaml:"address" env:"DB_PROXY_ADDRESS" env-default:"localhost:8081"`
}

type LocalStore struct {
	Path string `yaml:"path" env:"LOCAL_STORE_PATH" env-default:"./data/local"`
}

func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("cannot read config: %s - %s", configPath, err)
	}

	return cfg
}

func Load(configPath string) (*Config, error) {
	const op = "config.Load"

	if configPath == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrConfigPath)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s: config file does not exist: %s", op, configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	cfg.Backend.URL = strings.TrimRight(cfg.Backend.URL, "/")

	return &cfg, nil
}

func (cfg *Database) GetDSN() string {
	return fmt.Sprintf(
		"%s:%s@tcp(%s:%d)/%s?parseTime=true",
		cfg.UsernameDB,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.DBName,
	)
}

// String hides secrets so the config can be logged at startup.
func (cfg *Config) String() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "env=%s address=%s backend=%q admins=%d redis=%s/%d key=%s journal=%v local=%s",
		cfg.Env,
		cfg.Address,
		cfg.Backend.URL,
		len(cfg.Admin.Emails),
		cfg.Redis.Addr,
		cfg.Redis.DB,
		cfg.Redis.Key,
		cfg.Database.Enabled,
		cfg.LocalStore.Path,
	)

	return sb.String()
}
