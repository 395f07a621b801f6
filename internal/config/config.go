package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds the full server configuration.
type Config struct {
	Server struct {
		Port           string   `koanf:"port"`
		AllowedOrigins []string `koanf:"allowed_origins"`
	} `koanf:"server"`

	Database struct {
		URL string `koanf:"url"`
	} `koanf:"database"`

	Redis struct {
		// Addr is optional; when empty the change feed stays in-process.
		Addr     string `koanf:"addr"`
		Password string `koanf:"password"`
		Channel  string `koanf:"channel"`
	} `koanf:"redis"`

	Auth struct {
		JWTSecret string `koanf:"jwt_secret"`
	} `koanf:"auth"`
}

// Load reads configuration from defaults, an optional TOML file and
// CAMPUSSHARE_-prefixed environment variables, in that order of
// precedence (later wins).
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	k.Load(confmap.Provider(map[string]interface{}{
		"server.port":            "8080",
		"server.allowed_origins": []string{"http://localhost:5173"},
		"redis.channel":          "campusshare:changes",
	}, "."), nil)

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	} else {
		for _, path := range []string{"./campusshare.toml", "$HOME/.campusshare.toml"} {
			path = os.ExpandEnv(path)
			if _, err := os.Stat(path); err == nil {
				if err := k.Load(file.Provider(path), toml.Parser()); err == nil {
					break
				}
			}
		}
	}

	k.Load(env.Provider("CAMPUSSHARE_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "CAMPUSSHARE_")), "_", ".", -1)
	}), nil)

	// Bare DATABASE_URL and JWT_SECRET are also honored for parity with
	// common deployment environments.
	if v := os.Getenv("DATABASE_URL"); v != "" {
		k.Set("database.url", v)
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		k.Set("auth.jwt_secret", v)
	}
	if v := os.Getenv("PORT"); v != "" {
		k.Set("server.port", v)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return &cfg, nil
}

// Validate checks that required settings are present.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("database url is required (set DATABASE_URL or database.url)")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("jwt secret is required (set JWT_SECRET or auth.jwt_secret)")
	}
	return nil
}
