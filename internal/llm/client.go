// Package llm talks to chat-completion services. The request/response shapes
// follow the OpenAI chat format; providers with other wire formats are mapped
// onto it.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNoAPIKey is returned on first use when no key was configured.
var ErrNoAPIKey = errors.New("API key not configured")

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Request struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

// Choice may come back without a message; callers must check.
type Choice struct {
	Index   int      `json:"index"`
	Message *Message `json:"message,omitempty"`
}

type Response struct {
	ID      string   `json:"id"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
}

// Client sends one completion request.
type Client interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

// Provider names accepted by NewClient.
const (
	ProviderGroq   = "groq"
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

const (
	GroqBaseURL   = "https://api.groq.com/openai/v1"
	OpenAIBaseURL = "https://api.openai.com/v1"
)

// Config is what a provider needs; empty fields take provider defaults.
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration // 0 leaves the HTTP client's default (none)
}

// NewClient builds the client for provider. It never fails on a missing key;
// that surfaces on the first Complete.
func NewClient(provider string, cfg Config) (Client, error) {
	switch strings.ToLower(provider) {
	case ProviderGroq, "":
		if cfg.BaseURL == "" {
			cfg.BaseURL = GroqBaseURL
		}
		return NewOpenAIClient(cfg), nil
	case ProviderOpenAI:
		if cfg.BaseURL == "" {
			cfg.BaseURL = OpenAIBaseURL
		}
		return NewOpenAIClient(cfg), nil
	case ProviderGemini:
		return NewGeminiClient(cfg), nil
	}
	return nil, fmt.Errorf("unknown provider %q", provider)
}
