package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
)

// Config carries everything the processes read from the environment.
type Config struct {
	// Discord
	DiscordToken string

	// Google service account fields, assembled into a credentials blob.
	GoogleProjectID    string
	GooglePrivateKeyID string
	GooglePrivateKey   string // newline-escaped in the environment
	GoogleClientEmail  string

	// User registry
	ConfigFilePath string

	// Summary
	SummaryRecentLimit int

	// Expense event stream (optional, empty URL disables it)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Audit worker
	JournalDBPath string
}

func Load() *Config {
	return &Config{
		DiscordToken: os.Getenv("DISCORD_TOKEN"),

		GoogleProjectID:    os.Getenv("GOOGLE_SHEET_PROJECT_ID"),
		GooglePrivateKeyID: os.Getenv("GOOGLE_SHEET_PRIVATE_KEY_ID"),
		GooglePrivateKey:   os.Getenv("GOOGLE_SHEET_PRIVATE_KEY"),
		GoogleClientEmail:  os.Getenv("GOOGLE_SHEET_CLIENT_EMAIL"),

		ConfigFilePath: getEnv("CONFIG_FILE_PATH", "expense_config.json"),

		SummaryRecentLimit: getEnvInt("SUMMARY_RECENT_LIMIT", 5),

		AMQPURL:      os.Getenv("AMQP_URL"),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "expensebot"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "expense_events"),

		JournalDBPath: getEnv("JOURNAL_DB_PATH", "./data/journal.db"),
	}
}

// Validate checks everything the bot process needs before it connects
// anywhere. Missing credentials are fatal by design: nothing useful can run
// without them.
func (c *Config) Validate() error {
	var errs []string

	if c.DiscordToken == "" {
		errs = append(errs, "DISCORD_TOKEN is required")
	}
	for name, v := range map[string]string{
		"GOOGLE_SHEET_PROJECT_ID":     c.GoogleProjectID,
		"GOOGLE_SHEET_PRIVATE_KEY_ID": c.GooglePrivateKeyID,
		"GOOGLE_SHEET_PRIVATE_KEY":    c.GooglePrivateKey,
		"GOOGLE_SHEET_CLIENT_EMAIL":   c.GoogleClientEmail,
	} {
		if strings.TrimSpace(v) == "" {
			errs = append(errs, name+" is required")
		}
	}
	if c.GoogleClientEmail != "" && !strings.Contains(c.GoogleClientEmail, "@") {
		errs = append(errs, fmt.Sprintf("GOOGLE_SHEET_CLIENT_EMAIL %q is not an email address", c.GoogleClientEmail))
	}

	if c.ConfigFilePath == "" {
		errs = append(errs, "config file path cannot be empty")
	}
	if c.SummaryRecentLimit < 1 {
		errs = append(errs, fmt.Sprintf("invalid summary recent limit %d: must be at least 1", c.SummaryRecentLimit))
	}

	if c.AMQPURL != "" {
		if parsed, err := url.Parse(c.AMQPURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL %q: %v", c.AMQPURL, err))
		} else if parsed.Scheme != "amqp" && parsed.Scheme != "amqps" {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme %q: must be 'amqp' or 'amqps'", parsed.Scheme))
		}
		if c.AMQPExchange == "" {
			errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errs = append(errs, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

// ValidateWorker checks only what the audit worker needs.
func (c *Config) ValidateWorker() error {
	var errs []string

	if c.AMQPURL == "" {
		errs = append(errs, "AMQP_URL is required for the audit worker")
	}
	if c.AMQPExchange == "" {
		errs = append(errs, "AMQP exchange name cannot be empty")
	}
	if c.AMQPQueue == "" {
		errs = append(errs, "AMQP queue name cannot be empty")
	}
	if c.JournalDBPath == "" {
		errs = append(errs, "journal database path cannot be empty")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

// CredentialsJSON assembles a service-account key document from the separate
// environment fields, restoring the escaped newlines in the private key.
func (c *Config) CredentialsJSON() ([]byte, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	key := struct {
		Type                    string `json:"type"`
		ProjectID               string `json:"project_id"`
		PrivateKeyID            string `json:"private_key_id"`
		PrivateKey              string `json:"private_key"`
		ClientEmail             string `json:"client_email"`
		ClientID                string `json:"client_id"`
		AuthURI                 string `json:"auth_uri"`
		TokenURI                string `json:"token_uri"`
		AuthProviderX509CertURL string `json:"auth_provider_x509_cert_url"`
		ClientX509CertURL       string `json:"client_x509_cert_url"`
		UniverseDomain          string `json:"universe_domain"`
	}{
		Type:                    "service_account",
		ProjectID:               c.GoogleProjectID,
		PrivateKeyID:            c.GooglePrivateKeyID,
		PrivateKey:              strings.ReplaceAll(c.GooglePrivateKey, `\n`, "\n"),
		ClientEmail:             c.GoogleClientEmail,
		AuthURI:                 "https://accounts.google.com/o/oauth2/auth",
		TokenURI:                "https://oauth2.googleapis.com/token",
		AuthProviderX509CertURL: "https://www.googleapis.com/oauth2/v1/certs",
		ClientX509CertURL:       "https://www.googleapis.com/robot/v1/metadata/x509/" + url.QueryEscape(c.GoogleClientEmail),
		UniverseDomain:          "googleapis.com",
	}
	blob, err := json.Marshal(key)
	if err != nil {
		return nil, fmt.Errorf("marshal credentials: %w", err)
	}
	return blob, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}
