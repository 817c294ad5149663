// Package config loads environment variables and provides a typed Config used across the bot.
// It applies sensible defaults so the binary can run locally with minimal setup.
// For required credentials (Slack bot token + channel), use ValidatePublishReady.
package config

import (
	"fmt"
	"os"
	"time"
)

type Config struct {
	// Slack
	SlackBotToken string
	ChannelID     string
	// SlackAPIURL overrides the Slack API base URL; empty uses the public endpoint.
	SlackAPIURL string

	// OpenAI (optional; summarization degrades to a fixed fallback without it)
	OpenAIAPIKey string
	OpenAIModel  string

	// Text-to-speech
	TTSLanguage string

	// Storage
	DataDir   string
	KeepAudio bool

	// Persona prompt styling (optional YAML file)
	PersonaFile string

	// External call timeout applied to every HTTP client.
	HTTPTimeout time.Duration

	// Force bypasses the per-day run marker (re-publish the same day).
	Force bool
}

// Load reads environment variables and applies defaults. It doesn't fail if the Slack creds
// are missing; use ValidatePublishReady() before starting the pipeline. A missing
// OPENAI_API_KEY is a valid configuration: summarization falls back to a fixed message.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.SlackBotToken = os.Getenv("SLACK_BOT_TOKEN")
	cfg.ChannelID = os.Getenv("CHANNEL_ID")
	cfg.SlackAPIURL = os.Getenv("SLACK_API_URL")

	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	cfg.OpenAIModel = os.Getenv("OPENAI_MODEL")
	if cfg.OpenAIModel == "" {
		cfg.OpenAIModel = "gpt-3.5-turbo"
	}

	cfg.TTSLanguage = os.Getenv("TTS_LANG")
	if cfg.TTSLanguage == "" {
		cfg.TTSLanguage = "ja"
	}

	cfg.DataDir = os.Getenv("DATA_DIR")
	if cfg.DataDir == "" {
		cfg.DataDir = "data"
	}
	cfg.KeepAudio = os.Getenv("KEEP_AUDIO") == "1"

	cfg.PersonaFile = os.Getenv("PERSONA_FILE")

	cfg.HTTPTimeout = 30 * time.Second
	if v := os.Getenv("HTTP_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid HTTP_TIMEOUT (duration): %q", v)
		}
		cfg.HTTPTimeout = d
	}

	cfg.Force = os.Getenv("DIGEST_FORCE") == "1"

	return cfg, nil
}

// ValidatePublishReady checks the hard preconditions: without a bot token and a target
// channel the pipeline must not start.
func (c *Config) ValidatePublishReady() error {
	if c.SlackBotToken == "" || c.ChannelID == "" {
		return fmt.Errorf("missing slack env: require SLACK_BOT_TOKEN, CHANNEL_ID")
	}
	return nil
}
