// Package config resolves octopilot-mcp settings from the environment.
//
// Settings come from process environment variables, optionally seeded from
// a .env file. Values already present in the environment always win over
// the file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Environment variables understood by the server.
const (
	EnvOpBinary     = "OP_BINARY"
	EnvOpImage      = "OP_IMAGE"
	EnvUseContainer = "OP_USE_CONTAINER"
	EnvDataDir      = "OCTOPILOT_DATA_DIR"
	EnvLogLevel     = "OCTOPILOT_LOG_LEVEL"
	EnvEnvFile      = "OCTOPILOT_ENV_FILE"
)

const (
	// DefaultOpImage is the op container image used in container mode.
	DefaultOpImage = "ghcr.io/octopilot/op:latest"
	// DefaultEnvFile is loaded when present and no file was named.
	DefaultEnvFile = ".env"
	// DataDirName is the directory under $HOME holding local state.
	DataDirName = ".octopilot"
)

// Config holds resolved settings. Empty OpBinary means "look up op on PATH".
type Config struct {
	OpBinary     string
	OpImage      string
	UseContainer bool
	DataDir      string
	LogLevel     logrus.Level
}

// Load seeds the environment from envFile (or ./.env when envFile is empty
// and the file exists) and resolves a Config. A named envFile that cannot
// be read is an error; a missing default .env is not.
func Load(envFile string) (Config, error) {
	if envFile == "" {
		envFile = os.Getenv(EnvEnvFile)
	}
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return Config{}, fmt.Errorf("loading env file %s: %w", envFile, err)
		}
	} else if err := godotenv.Load(DefaultEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("loading %s: %w", DefaultEnvFile, err)
	}

	return FromEnv(os.Getenv)
}

// FromEnv resolves a Config through getenv without touching any file.
func FromEnv(getenv func(string) string) (Config, error) {
	cfg := Config{
		OpBinary:     getenv(EnvOpBinary),
		OpImage:      getenv(EnvOpImage),
		UseContainer: Truthy(getenv(EnvUseContainer)),
		DataDir:      getenv(EnvDataDir),
		LogLevel:     logrus.InfoLevel,
	}
	if cfg.OpImage == "" {
		cfg.OpImage = DefaultOpImage
	}
	if cfg.DataDir == "" {
		cfg.DataDir = DefaultDataDir()
	}
	if lvl := getenv(EnvLogLevel); lvl != "" {
		parsed, err := logrus.ParseLevel(lvl)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", EnvLogLevel, err)
		}
		cfg.LogLevel = parsed
	}
	return cfg, nil
}

// DefaultDataDir returns ~/.octopilot, or .octopilot in the working
// directory when the home directory is unknown.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DataDirName
	}
	return filepath.Join(home, DataDirName)
}

// Truthy interprets an environment flag. "true", "1" and "yes" are true in
// any letter case; everything else, including "", is false.
func Truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "yes":
		return true
	}
	return false
}
