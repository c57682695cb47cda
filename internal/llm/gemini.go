package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/genai"
)

// DefaultGeminiModel is used when the configured model belongs to another
// provider.
const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiClient maps chat requests onto the Gemini API.
// The SDK client is built on the first call so that a missing key fails
// there rather than at startup.
type GeminiClient struct {
	apiKey  string
	baseURL string

	mu     sync.Mutex
	client *genai.Client
}

func NewGeminiClient(cfg Config) *GeminiClient {
	return &GeminiClient{apiKey: cfg.APIKey, baseURL: cfg.BaseURL}
}

func (c *GeminiClient) sdk(ctx context.Context) (*genai.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil {
		return c.client, nil
	}
	if c.apiKey == "" {
		return nil, ErrNoAPIKey
	}
	cc := &genai.ClientConfig{
		APIKey:  c.apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if c.baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: c.baseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	c.client = client
	return client, nil
}

func (c *GeminiClient) Complete(ctx context.Context, req Request) (*Response, error) {
	client, err := c.sdk(ctx)
	if err != nil {
		return nil, err
	}

	var system *genai.Content
	contents := make([]*genai.Content, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case RoleSystem:
			system = genai.NewContentFromText(m.Content, genai.RoleUser)
		case RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	var gc *genai.GenerateContentConfig
	if system != nil {
		gc = &genai.GenerateContentConfig{SystemInstruction: system}
	}

	result, err := client.Models.GenerateContent(ctx, req.Model, contents, gc)
	if err != nil {
		return nil, fmt.Errorf("genai generate: %w", err)
	}
	return fromGenAI(result), nil
}

func fromGenAI(result *genai.GenerateContentResponse) *Response {
	out := &Response{ID: result.ResponseID, Model: result.ModelVersion}
	for i, cand := range result.Candidates {
		ch := Choice{Index: i}
		if cand.Content != nil {
			var sb strings.Builder
			for _, p := range cand.Content.Parts {
				if p != nil && !p.Thought {
					sb.WriteString(p.Text)
				}
			}
			ch.Message = &Message{Role: RoleAssistant, Content: sb.String()}
		}
		out.Choices = append(out.Choices, ch)
	}
	return out
}
