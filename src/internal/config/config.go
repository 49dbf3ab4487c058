package config

import (
	"errors"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Port           string   `env:"PORT" env-default:"8080"`
	DatabaseURL    string   `env:"DATABASE_URL" env-default:"postgres://pguser:pgpass@db:5432/interviewdb?sslmode=disable"`
	MigrationsDir  string   `env:"MIGRATIONS_DIR" env-default:"./migrations"`
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" env-separator:"," env-default:"*"`
}

func New() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadConfig(".env", &cfg); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if err := cleanenv.ReadEnv(&cfg); err != nil {
				return nil, err
			}
			return &cfg, nil
		}
		return nil, err
	}
	return &cfg, nil
}
