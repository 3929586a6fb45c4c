package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Env      string `yaml:"env"`
	LogLevel string `yaml:"log_level"`
	Addr     string `yaml:"http_addr"`

	DBType       string `yaml:"storage_backend"`
	DBDSN        string `yaml:"postgres_dsn"`
	MongoURI     string `yaml:"mongodb_uri"`
	MongoDB      string `yaml:"mongodb_database"`
	FileUsers    string `yaml:"users_file"`
	FileSleep    string `yaml:"sleep_file"`
	FileProducts string `yaml:"productivity_file"`

	AuthProvider   string        `yaml:"auth_provider"`
	JWTSecret      string        `yaml:"jwt_secret"`
	JWTTTL         time.Duration `yaml:"jwt_ttl"`
	DevToken       string        `yaml:"dev_token"`
	AuthServiceURL string        `yaml:"auth_service_url"`

	MaxUploadMB  int64  `yaml:"max_upload_mb"`
	ScratchDir   string `yaml:"scratch_dir"`
	SentryDSN    string `yaml:"sentry_dsn"`
	ExportBucket string `yaml:"export_bucket"`
}

var (
	cfg  *Config
	once sync.Once
)

// Load reads the process configuration once. It panics on an invalid config,
// which is only ever called from main.
func Load() *Config {
	once.Do(func() {
		_ = loadDotEnv(".env")
		c, err := LoadFrom(os.Getenv("CONFIG_FILE"))
		if err != nil {
			panic("Invalid config: " + err.Error())
		}
		cfg = c
	})
	return cfg
}

// LoadFrom builds a Config from defaults, the optional YAML file at path and
// the environment, in that order of precedence (environment wins).
func LoadFrom(path string) (*Config, error) {
	c := Defaults()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, c); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	c.applyEnv()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func Defaults() *Config {
	return &Config{
		Env:          "development",
		LogLevel:     "info",
		Addr:         ":8088",
		DBType:       "file",
		MongoDB:      "activetime",
		FileUsers:    "data/users.json",
		FileSleep:    "data/sleep_logs.json",
		FileProducts: "data/productivity.json",
		AuthProvider: "jwt",
		JWTTTL:       30 * 24 * time.Hour,
		DevToken:     "MOCK-TOKEN",
		MaxUploadMB:  512,
		ScratchDir:   os.TempDir(),
	}
}

func (c *Config) applyEnv() {
	c.Env = getEnv("APP_ENV", c.Env)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.Addr = getEnv("HTTP_ADDR", c.Addr)
	c.DBType = getEnv("STORAGE_BACKEND", c.DBType)
	c.DBDSN = getEnv("POSTGRES_DSN", c.DBDSN)
	c.MongoURI = getEnv("MONGODB_URI", c.MongoURI)
	c.MongoDB = getEnv("MONGODB_DATABASE", c.MongoDB)
	c.FileUsers = getEnv("USERS_FILE", c.FileUsers)
	c.FileSleep = getEnv("SLEEP_FILE", c.FileSleep)
	c.FileProducts = getEnv("PRODUCTIVITY_FILE", c.FileProducts)
	c.AuthProvider = getEnv("AUTH_PROVIDER", c.AuthProvider)
	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.DevToken = getEnv("DEV_TOKEN", c.DevToken)
	c.AuthServiceURL = getEnv("AUTH_SERVICE_URL", c.AuthServiceURL)
	c.ScratchDir = getEnv("SCRATCH_DIR", c.ScratchDir)
	c.SentryDSN = getEnv("SENTRY_DSN", c.SentryDSN)
	c.ExportBucket = getEnv("EXPORT_BUCKET", c.ExportBucket)
	if v := os.Getenv("JWT_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.JWTTTL = d
		}
	}
	if v := os.Getenv("MAX_UPLOAD_MB"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.MaxUploadMB = n
		}
	}
}

func (c *Config) Validate() error {
	switch c.DBType {
	case "file":
		if c.FileUsers == "" || c.FileSleep == "" || c.FileProducts == "" {
			return errors.New("File storage requires USERS_FILE, SLEEP_FILE and PRODUCTIVITY_FILE to be set")
		}
	case "postgres":
		if c.DBDSN == "" {
			return errors.New("POSTGRES_DSN is required when STORAGE_BACKEND=postgres")
		}
	case "mongo":
		if c.MongoURI == "" {
			return errors.New("MONGODB_URI is required when STORAGE_BACKEND=mongo")
		}
	default:
		return errors.New("STORAGE_BACKEND must be one of: file, postgres, mongo")
	}
	switch c.AuthProvider {
	case "jwt":
		if c.JWTSecret == "" && c.Env != "development" {
			return errors.New("JWT_SECRET is required outside development")
		}
	case "local":
		if c.Env != "development" {
			return errors.New("AUTH_PROVIDER=local is only allowed in development")
		}
	case "remote":
		if c.AuthServiceURL == "" {
			return errors.New("AUTH_SERVICE_URL is required when AUTH_PROVIDER=remote")
		}
	default:
		return errors.New("AUTH_PROVIDER must be one of: jwt, local, remote")
	}
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return errors.New("APP_ENV must be one of: development, staging, production")
	}
	if c.MaxUploadMB <= 0 {
		return errors.New("MAX_UPLOAD_MB must be positive")
	}
	return nil
}

// Secret returns the JWT signing key. Development falls back to a fixed key
// so a fresh checkout can sign in without extra setup.
func (c *Config) Secret() []byte {
	if c.JWTSecret == "" {
		return []byte("activetime-development-secret")
	}
	return []byte(c.JWTSecret)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// loadDotEnv exports KEY=VALUE lines from path without overriding variables
// that are already set.
func loadDotEnv(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		k = strings.TrimSpace(k)
		if _, set := os.LookupEnv(k); set {
			continue
		}
		os.Setenv(k, strings.Trim(strings.TrimSpace(v), `"`))
	}
	return sc.Err()
}
