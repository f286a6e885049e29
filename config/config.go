package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
)

type Config struct {
	AppEnv   string
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	S3       S3Config
	LogLevel string
}

type ServerConfig struct {
	Port           string
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int32
}

type AuthConfig struct {
	JWTSecret  string
	BcryptCost int
}

type S3Config struct {
	Bucket string
	Region string
}

// Load reads configuration from the environment, with a .env file as an
// optional local override. Missing .env is fine in production.
func Load() (*Config, error) {
	_ = godotenv.Load()

	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("DB_HOST", "127.0.0.1")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SSL_MODE", "disable")
	viper.SetDefault("DB_MAX_CONNS", 10)
	viper.SetDefault("BCRYPT_COST", bcrypt.DefaultCost)
	viper.SetDefault("LOG_LEVEL", "info")

	var cfg Config

	cfg.AppEnv = viper.GetString("APP_ENV")
	cfg.Server.Port = viper.GetString("SERVER_PORT")
	cfg.Server.AllowedOrigins = viper.GetStringSlice("ALLOWED_ORIGINS")

	cfg.Database.Host = viper.GetString("DB_HOST")
	cfg.Database.Port = viper.GetString("DB_PORT")
	cfg.Database.User = viper.GetString("DB_USER")
	cfg.Database.Password = viper.GetString("DB_PASSWORD")
	cfg.Database.Name = viper.GetString("DB_NAME")
	cfg.Database.SSLMode = viper.GetString("DB_SSL_MODE")
	cfg.Database.MaxConns = viper.GetInt32("DB_MAX_CONNS")

	cfg.Auth.JWTSecret = viper.GetString("JWT_SECRET")
	cfg.Auth.BcryptCost = viper.GetInt("BCRYPT_COST")

	cfg.S3.Bucket = viper.GetString("S3_BUCKET")
	cfg.S3.Region = viper.GetString("AWS_REGION")

	cfg.LogLevel = viper.GetString("LOG_LEVEL")

	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET must be set")
	}

	return &cfg, nil
}

// DSN builds the postgres connection string for pgx.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}
