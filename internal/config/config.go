package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/rs/zerolog/log"

	"workflow-dispatcher/internal/secrets"
)

const (
	defaultPort       = "8080"
	defaultAPIBaseURL = "https://api.github.com"
	defaultRegion     = "us-east-1"
	defaultRateLimit  = 10

	githubVaultPath = "dispatcher/github"
)

// Config holds service configuration loaded from Vault or environment
// variables. The App credential fields are optional defaults used by the
// workflow-listing endpoint; dispatch events carry their own.
type Config struct {
	ServerPort     string `json:"port"`
	APIBaseURL     string `json:"api_base_url"`
	RateLimit      int    `json:"rate_limit"`
	SecretBackend  string `json:"secret_backend"`
	AppID          string `json:"app_id"`
	InstallationID string `json:"installation_id"`
	SecretName     string `json:"secret_name"`
	Region         string `json:"region_name"`
}

func (c *Config) setStringValue(key string, value interface{}) {
	str, ok := value.(string)
	if !ok {
		return
	}
	switch key {
	case "port":
		c.ServerPort = str
	case "api_base_url":
		c.APIBaseURL = str
	case "secret_backend":
		c.SecretBackend = str
	case "app_id":
		c.AppID = str
	case "installation_id":
		c.InstallationID = str
	case "secret_name":
		c.SecretName = str
	case "region_name":
		c.Region = str
	case "rate_limit":
		if intVal, err := strconv.Atoi(str); err == nil {
			c.RateLimit = intVal
		}
	}
}

// Load builds the configuration with precedence Vault, then environment,
// then defaults. A missing or unreachable Vault is not fatal.
func Load() *Config {
	config := &Config{}

	loadFromVault(config)
	loadFromEnv(config)
	setDefaults(config)

	return config
}

func loadFromVault(config *Config) {
	vaultSource, err := secrets.NewVaultSource()
	if err != nil {
		log.Info().Msg("Vault not available, will use environment variables")
		return
	}

	path := os.Getenv("GITHUB_VAULT_PATH")
	if path == "" {
		path = githubVaultPath
	}

	if data, err := vaultSource.GetSecret(path); err == nil {
		for key, value := range data {
			config.setStringValue(key, value)
		}
	} else {
		log.Info().Msg("GitHub configuration not found in Vault, will use environment variables")
	}
}

func loadFromEnv(config *Config) {
	if config.ServerPort == "" {
		config.ServerPort = os.Getenv("PORT")
	}
	if config.APIBaseURL == "" {
		config.APIBaseURL = os.Getenv("GITHUB_API_BASE_URL")
	}
	if config.SecretBackend == "" {
		config.SecretBackend = os.Getenv("SECRET_BACKEND")
	}
	if config.AppID == "" {
		config.AppID = os.Getenv("GITHUB_APP_ID")
	}
	if config.InstallationID == "" {
		config.InstallationID = os.Getenv("GITHUB_INSTALLATION_ID")
	}
	if config.SecretName == "" {
		config.SecretName = os.Getenv("GITHUB_SECRET_NAME")
	}
	if config.Region == "" {
		config.Region = os.Getenv("AWS_REGION")
	}
	if config.RateLimit == 0 {
		if v := os.Getenv("RATE_LIMIT_REQUESTS_PER_SECOND"); v != "" {
			if intVal, err := strconv.Atoi(v); err == nil {
				config.RateLimit = intVal
			} else {
				log.Warn().Str("value", v).Msg("Ignoring invalid rate limit")
			}
		}
	}
}

func setDefaults(config *Config) {
	if config.ServerPort == "" {
		config.ServerPort = defaultPort
	}
	if config.APIBaseURL == "" {
		config.APIBaseURL = defaultAPIBaseURL
	}
	if config.Region == "" {
		config.Region = defaultRegion
	}
	if config.RateLimit == 0 {
		config.RateLimit = defaultRateLimit
	}
	if config.SecretBackend == "" {
		config.SecretBackend = "secretsmanager"
	}
}

// Validate checks the loaded configuration.
func (c *Config) Validate() error {
	port, err := strconv.Atoi(c.ServerPort)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid port number: %s", c.ServerPort)
	}
	if c.SecretBackend != "secretsmanager" && c.SecretBackend != "vault" {
		return fmt.Errorf("unknown secret backend: %s", c.SecretBackend)
	}
	return nil
}
