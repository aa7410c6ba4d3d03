package config

import (
	"errors"
	"os"
)

// Config carries process-level settings read from the environment.
type Config struct {
	DatabaseURL string
	JWTSecret   string
	Port        string
	GroqAPIKeys []string
	GroqModel   string
}

func getenv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

// Load reads configuration from environment variables. A missing JWT secret
// or an empty AI key pool is an error: the dispatcher is inoperable without
// at least one credential, so this is caught at startup rather than on the
// first request.
func Load() (Config, error) {
	cfg := Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		Port:        getenv("PORT", "8080"),
		GroqModel:   getenv("GROQ_MODEL", "llama3-8b-8192"),
	}

	if cfg.JWTSecret == "" {
		return cfg, errors.New("JWT_SECRET is required")
	}

	for _, key := range []string{"GROQ_API_KEY_1", "GROQ_API_KEY_2", "GROQ_API_KEY_3"} {
		if v := os.Getenv(key); v != "" {
			cfg.GroqAPIKeys = append(cfg.GroqAPIKeys, v)
		}
	}
	if len(cfg.GroqAPIKeys) == 0 {
		return cfg, errors.New("no GROQ_API_KEY_n environment variables found")
	}

	return cfg, nil
}
