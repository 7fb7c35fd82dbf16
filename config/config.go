// Package config loads the session configuration from environment
// variables, with an optional .env bootstrap for local development.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is everything the program reads from the environment.
type Config struct {
	LLMBaseURL     string        `env:"TALEWEAVER_LLM_BASE_URL" envDefault:"https://api.openai.com"`
	LLMAPIKey      string        `env:"TALEWEAVER_LLM_API_KEY"`
	LLMModel       string        `env:"TALEWEAVER_LLM_MODEL" envDefault:"gpt-4o-mini"`
	Temperature    float64       `env:"TALEWEAVER_TEMPERATURE" envDefault:"0.7"`
	NarratorTokens int           `env:"TALEWEAVER_NARRATOR_MAX_TOKENS" envDefault:"500"`
	DialogueTokens int           `env:"TALEWEAVER_DIALOGUE_MAX_TOKENS" envDefault:"200"`
	Retries        int           `env:"TALEWEAVER_LLM_RETRIES" envDefault:"3"`
	RetryDelay     time.Duration `env:"TALEWEAVER_LLM_RETRY_DELAY" envDefault:"2s"`
	Stream         bool          `env:"TALEWEAVER_LLM_STREAM" envDefault:"false"`
	DBPath         string        `env:"TALEWEAVER_DB_PATH" envDefault:"story.db"`
	ProfilesDir    string        `env:"TALEWEAVER_PROFILES_DIR" envDefault:"profiles"`
	PackDir        string        `env:"TALEWEAVER_PACK_DIR" envDefault:"stories"`
	Language       string        `env:"TALEWEAVER_LANGUAGE" envDefault:"pt-BR"`
	Seed           int64         `env:"TALEWEAVER_SEED" envDefault:"0"`
}

// Load reads an optional .env file, then parses the environment. A missing
// .env is not an error; a malformed environment value is.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
