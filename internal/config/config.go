package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config interface {
	EnvConfig
	CorsConfig
	SecurityConfig
	ProviderConfig
	ProfileAPIConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetDataFolder() string
	GetLogLevel() string
	GetEnv() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Cors
	Security
	Provider
	ProfileAPI
}

// New loads an optional .env file and then reads the configuration from the
// environment. Variables already set in the environment win over the file.
func New() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("[config.New] load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv reads the configuration from the process environment only.
func FromEnv() (Config, error) {
	var c mainConfig
	if err := env.Parse(&c); err != nil {
		return nil, fmt.Errorf("[config.FromEnv] parse env: %w", err)
	}
	// The in-memory provider forgets every account on restart.
	if c.GetProviderKind() == ProviderFake && c.GetEnv() != "DEV" && c.GetEnv() != "TEST" {
		return nil, fmt.Errorf("[config.FromEnv] PROVIDER=%s is only allowed with ENV=DEV or ENV=TEST, got %s", ProviderFake, c.GetEnv())
	}
	return c, nil
}
