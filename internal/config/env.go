package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Secrets holds credentials that must never live in the config file.
// They are read from the environment with the STREAKWATCH_ prefix.
type Secrets struct {
	GitHubToken   string `envconfig:"GITHUB_TOKEN"`
	ResendAPIKey  string `envconfig:"RESEND_API_KEY"`
	TelegramToken string `envconfig:"TELEGRAM_TOKEN"`
}

// LoadSecrets reads secrets from the environment. Presence requirements are
// enforced by Validate(), not here, so that all config failures report the
// same way.
func LoadSecrets() (Secrets, error) {
	var s Secrets
	if err := envconfig.Process("streakwatch", &s); err != nil {
		return s, fmt.Errorf("secrets from env: %w", err)
	}
	return s, nil
}

// ApplySecrets threads environment credentials into the config snapshot.
func (c *Config) ApplySecrets(s Secrets) {
	c.GitHub.Token = s.GitHubToken
	c.Email.APIKey = s.ResendAPIKey
	if c.Telegram != nil {
		c.Telegram.Token = s.TelegramToken
	}
}
