// Package config loads runtime settings from optional .env files and
// REMOTEFS_* environment variables.
package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/jackfish212/remotefs"
	"github.com/jackfish212/remotefs/types"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config holds every setting the CLI needs.
type Config struct {
	URL      string
	User     string
	Password string
	Protocol types.Protocol
	Project  string
	// Scope overrides the URL segment derived from Protocol.
	Scope string

	StateDir string
	// Secret is the passphrase for the secure credential store. Empty
	// means a generated key file under StateDir.
	Secret          string
	VirtualPrefixes []string

	LogLevel    string
	LogFormat   string
	MetricsAddr string

	DevAddr string
	DevRoot string
}

// Load reads files (missing ones are skipped) and then the environment.
// Variables already set in the environment win over .env values.
func Load(files ...string) (*Config, error) {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			logrus.WithFields(logrus.Fields{"file": f, "error": err}).Warn("config: could not load env file")
		}
	}

	proto, err := types.ParseProtocol(os.Getenv("REMOTEFS_PROTOCOL"))
	if err != nil {
		return nil, err
	}

	return &Config{
		URL:             os.Getenv("REMOTEFS_URL"),
		User:            os.Getenv("REMOTEFS_USER"),
		Password:        os.Getenv("REMOTEFS_PASSWORD"),
		Protocol:        proto,
		Project:         os.Getenv("REMOTEFS_PROJECT"),
		Scope:           os.Getenv("REMOTEFS_SCOPE"),
		StateDir:        envOr("REMOTEFS_STATE_DIR", defaultStateDir()),
		Secret:          os.Getenv("REMOTEFS_SECRET"),
		VirtualPrefixes: splitList(envOr("REMOTEFS_VIRTUAL_PREFIXES", remotefs.DefaultVirtualPrefix)),
		LogLevel:        envOr("REMOTEFS_LOG_LEVEL", "info"),
		LogFormat:       envOr("REMOTEFS_LOG_FORMAT", "text"),
		MetricsAddr:     os.Getenv("REMOTEFS_METRICS_ADDR"),
		DevAddr:         envOr("REMOTEFS_DEV_ADDR", "127.0.0.1:8089"),
		DevRoot:         envOr("REMOTEFS_DEV_ROOT", "."),
	}, nil
}

// Credentials returns the configured server credentials, if any.
func (c *Config) Credentials() types.Credentials {
	return types.Credentials{
		BaseURL:  c.URL,
		Username: c.User,
		Password: c.Password,
		Protocol: c.Protocol,
		Project:  c.Project,
	}
}

func (c *Config) SecureStorePath() string { return filepath.Join(c.StateDir, "credentials.db") }
func (c *Config) StateFilePath() string   { return filepath.Join(c.StateDir, "state.json") }
func (c *Config) KeyFilePath() string     { return filepath.Join(c.StateDir, "secret.key") }

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func defaultStateDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "remotefs")
	}
	return ".remotefs"
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
