package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

const (
	DefaultRegistryURL       = "https://status.nic.ch/availability/service/json"
	DefaultStatusPageBaseURL = "https://api.statuspage.io/v1"
	DefaultMonitoredSystem   = "epp.nic.ch"
	DefaultEnvironment       = "production"
	DefaultSecretsFile       = "secrets/statuspage.json"

	DefaultIncidentName = "SWITCH Maintenance"
	DefaultIncidentBody = "The registry for .ch and .li domains will be undergoing maintenance. " +
		"Expect an inability to manage, register, or transfer domains with these extensions."
)

// Config carries everything a run needs. It is built once in main and passed
// by parameter; nothing mutates it afterwards.
type Config struct {
	RegistryURL       string // Registry availability feed endpoint
	StatusPageBaseURL string // Statuspage API base URL
	APIKey            string // Statuspage API key
	PageID            string // Statuspage page to reconcile against
	ComponentID       string // Component attached to every incident
	MonitoredSystem   string // Registry system identifier to mirror
	Environment       string // Registry environment to mirror
	IncidentName      string // Name set on created/updated incidents
	IncidentBody      string // Body set on created/updated incidents
}

// secretsFile is the on-disk shape of the Statuspage credentials.
type secretsFile struct {
	Key         string `json:"key"`
	PageID      string `json:"page_id"`
	ComponentID string `json:"component_id"`
}

// Load builds the configuration from environment variables, filling Statuspage
// credentials from the secrets file for anything not set in the environment.
// A missing secrets file is not an error; ValidateStatusPage catches incomplete
// credentials before any status-page call is made.
func Load(secretsPath string) (Config, error) {
	cfg := Config{
		RegistryURL:       getEnv("REGISTRY_STATUS_URL", DefaultRegistryURL),
		StatusPageBaseURL: getEnv("STATUSPAGE_BASE_URL", DefaultStatusPageBaseURL),
		APIKey:            os.Getenv("STATUSPAGE_API_KEY"),
		PageID:            os.Getenv("STATUSPAGE_PAGE_ID"),
		ComponentID:       os.Getenv("STATUSPAGE_COMPONENT_ID"),
		MonitoredSystem:   getEnv("MONITORED_SYSTEM", DefaultMonitoredSystem),
		Environment:       getEnv("REGISTRY_ENVIRONMENT", DefaultEnvironment),
		IncidentName:      getEnv("INCIDENT_NAME", DefaultIncidentName),
		IncidentBody:      getEnv("INCIDENT_BODY", DefaultIncidentBody),
	}

	if cfg.APIKey == "" || cfg.PageID == "" || cfg.ComponentID == "" {
		secrets, err := readSecrets(secretsPath)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, nil
			}
			return Config{}, fmt.Errorf("load status page secrets: %w", err)
		}
		if cfg.APIKey == "" {
			cfg.APIKey = secrets.Key
		}
		if cfg.PageID == "" {
			cfg.PageID = secrets.PageID
		}
		if cfg.ComponentID == "" {
			cfg.ComponentID = secrets.ComponentID
		}
	}

	return cfg, nil
}

// ValidateStatusPage checks that the credentials needed for status-page calls
// are all present.
func (c Config) ValidateStatusPage() error {
	if c.APIKey == "" || c.PageID == "" || c.ComponentID == "" {
		return errors.New("status page credentials are incomplete: need key, page_id and component_id")
	}
	return nil
}

func readSecrets(path string) (secretsFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return secretsFile{}, err
	}
	defer f.Close()

	var secrets secretsFile
	if err := json.NewDecoder(f).Decode(&secrets); err != nil {
		return secretsFile{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return secrets, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
