// Package config loads settings for the API server and the importer from
// defaults, an optional .env file, an optional YAML file, the environment
// and command-line flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Environment string
	Port        int

	DBDriver string
	DSN      string

	BlobBackend      string
	Bucket           string
	AccountID        string
	S3Endpoint       string
	S3Region         string
	S3PathStyle      bool
	S3ConditionalPut bool
	AccessKeyID      string
	AccessKeySecret  string
	PublicURL        string
	PublicACL        bool

	Analyzer string

	LogLevel  string
	LogFormat string

	RateLimitRequests int
	RateLimitWindow   time.Duration

	UsersFile string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "production")
	v.SetDefault("port", 3000)
	v.SetDefault("db_driver", "postgres")
	v.SetDefault("dsn", "")
	v.SetDefault("blob_backend", "s3")
	v.SetDefault("bucket_name", "vitalarbor-17297.appspot.com")
	v.SetDefault("account_id", "")
	v.SetDefault("s3_endpoint", "")
	v.SetDefault("s3_region", "auto")
	v.SetDefault("s3_path_style", true)
	v.SetDefault("s3_conditional_put", true)
	v.SetDefault("access_key_id", "")
	v.SetDefault("access_key_secret", "")
	v.SetDefault("public_url", "")
	v.SetDefault("public_acl", true)
	v.SetDefault("analyzer", "stub")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("rate_limit_requests", 100)
	v.SetDefault("rate_limit_window", 15*time.Minute)
	v.SetDefault("users_file", "users.txt")
}

// Load reads the configuration. args are the command-line arguments
// without the program name.
func Load(args []string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	flags := pflag.NewFlagSet("vitalarbor", pflag.ContinueOnError)
	configFile := flags.String("config", "", "path to a YAML config file")
	flags.Int("port", v.GetInt("port"), "port to listen on")
	flags.String("file", v.GetString("users_file"), "users file for the importer")
	if err := flags.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}
	if err := v.BindPFlag("port", flags.Lookup("port")); err != nil {
		return nil, err
	}
	if err := v.BindPFlag("users_file", flags.Lookup("file")); err != nil {
		return nil, err
	}

	if *configFile != "" {
		v.SetConfigFile(*configFile)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{
		Environment:       v.GetString("environment"),
		Port:              v.GetInt("port"),
		DBDriver:          v.GetString("db_driver"),
		DSN:               v.GetString("dsn"),
		BlobBackend:       v.GetString("blob_backend"),
		Bucket:            v.GetString("bucket_name"),
		AccountID:         v.GetString("account_id"),
		S3Endpoint:        v.GetString("s3_endpoint"),
		S3Region:          v.GetString("s3_region"),
		S3PathStyle:       v.GetBool("s3_path_style"),
		S3ConditionalPut:  v.GetBool("s3_conditional_put"),
		AccessKeyID:       v.GetString("access_key_id"),
		AccessKeySecret:   v.GetString("access_key_secret"),
		PublicURL:         v.GetString("public_url"),
		PublicACL:         v.GetBool("public_acl"),
		Analyzer:          v.GetString("analyzer"),
		LogLevel:          v.GetString("log_level"),
		LogFormat:         v.GetString("log_format"),
		RateLimitRequests: v.GetInt("rate_limit_requests"),
		RateLimitWindow:   v.GetDuration("rate_limit_window"),
		UsersFile:         v.GetString("users_file"),
	}

	// Cloudflare R2 endpoints are derived from the account, otherwise the
	// bucket lives behind the GCS XML API.
	if cfg.S3Endpoint == "" {
		cfg.S3Endpoint = "https://storage.googleapis.com"
		if cfg.AccountID != "" {
			cfg.S3Endpoint = fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID)
		}
	}
	if cfg.PublicURL == "" {
		cfg.PublicURL = strings.TrimRight(cfg.S3Endpoint, "/") + "/" + cfg.Bucket + "/%s"
	}
	return cfg, nil
}

func (c *Config) Development() bool {
	return c.Environment == "development"
}
