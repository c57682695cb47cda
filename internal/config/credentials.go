package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const credFileName = "credentials.json"

// Credential is the recipe-service API key and where it came from.
type Credential struct {
	APIKey    string    `json:"api_key"`
	Provider  string    `json:"provider,omitempty"`
	Source    string    `json:"source"`     // "config" | "file" | "env"
	CreatedAt time.Time `json:"created_at"` // when we saved to file
}

func credFilePath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, credFileName), nil
}

// ResolveAPIKey picks the recipe key. In order: the config file or
// environment, the credentials file, then GEMINI_API_KEY (which switches the
// provider to gemini). A provider named in the config file is never
// replaced. It returns where the key came from, or nil when there is none;
// a missing key is not an error here.
func (c *Config) ResolveAPIKey() (*Credential, error) {
	if key := strings.TrimSpace(c.Recipe.APIKey); key != "" {
		c.Recipe.APIKey = stripBearer(key)
		return &Credential{APIKey: c.Recipe.APIKey, Provider: c.Recipe.Provider, Source: "config"}, nil
	}
	cred, err := LoadCredential()
	if err != nil {
		return nil, err
	}
	if cred != nil {
		c.Recipe.APIKey = cred.APIKey
		if cred.Provider != "" && !c.providerSet {
			c.Recipe.Provider = cred.Provider
		}
		return cred, nil
	}
	if c.geminiKey != "" && !c.providerSet {
		c.Recipe.Provider = ProviderGemini
		c.Recipe.APIKey = stripBearer(c.geminiKey)
		return &Credential{APIKey: c.Recipe.APIKey, Provider: ProviderGemini, Source: "env"}, nil
	}
	return nil, nil
}

// LoadCredential reads ~/.pantry/credentials.json; nil when absent.
func LoadCredential() (*Credential, error) {
	p, err := credFilePath()
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	var cred Credential
	if err := json.Unmarshal(b, &cred); err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	cred.APIKey = stripBearer(cred.APIKey)
	cred.Provider = normalizeProvider(cred.Provider)
	cred.Source = "file"
	return &cred, nil
}

// SetAPIKey stores key (owner-only permissions) for later runs. An empty
// provider leaves the choice to the config.
func SetAPIKey(key, provider string) error {
	key = stripBearer(strings.TrimSpace(key))
	if key == "" {
		return fmt.Errorf("empty API key")
	}
	provider = normalizeProvider(provider)
	if provider != "" && !ValidProvider(provider) {
		return fmt.Errorf("unknown provider %q", provider)
	}
	dir, err := Dir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	b, err := json.MarshalIndent(Credential{
		APIKey:    key,
		Provider:  provider,
		Source:    "file",
		CreatedAt: time.Now(),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	p, err := credFilePath()
	if err != nil {
		return err
	}
	if err := os.WriteFile(p, b, 0o600); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// DeleteAPIKey removes the stored key. Missing file is fine.
func DeleteAPIKey() error {
	p, err := credFilePath()
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("remove: %w", err)
	}
	return nil
}

func stripBearer(s string) string {
	if strings.HasPrefix(strings.ToLower(s), "bearer ") {
		return strings.TrimSpace(s[7:])
	}
	return s
}
