package pantry

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Makepad-fr/pantry/internal/llm"
	"github.com/Makepad-fr/pantry/internal/model"
)

// DefaultModel is the model recipes are requested from.
const DefaultModel = "llama3-8b-8192"

const promptFormat = "Create a recipe using the following items: %s,Remove all asterisk symbols, format text with correct bullet points "

// Outcome tells why a recipe request did or did not produce text.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeEmpty           // no choices, no message, or blank content
	OutcomeServiceError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeEmpty:
		return "empty"
	case OutcomeServiceError:
		return "service-error"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Result is one recipe attempt. Text is empty unless Outcome is success.
type Result struct {
	Text    string
	Outcome Outcome
	Err     error
}

// errEmptyResponse marks a response without usable content.
var errEmptyResponse = errors.New("no usable choice in response")

type RecipeOption func(*RecipeFlow)

func WithModel(name string) RecipeOption {
	return func(f *RecipeFlow) {
		if name != "" {
			f.model = name
		}
	}
}

func WithRecipeLogger(l *zap.Logger) RecipeOption {
	return func(f *RecipeFlow) { f.log = l }
}

// RecipeFlow asks the completion service for a recipe from a list of items.
// It keeps no state between calls.
type RecipeFlow struct {
	client llm.Client
	model  string
	log    *zap.Logger
}

func NewRecipeFlow(client llm.Client, opts ...RecipeOption) *RecipeFlow {
	f := &RecipeFlow{client: client, model: DefaultModel, log: zap.NewNop()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *RecipeFlow) Model() string { return f.model }

// ItemClause joins item names with ", " in list order.
func ItemClause(items []model.Item) string {
	names := make([]string, len(items))
	for i, it := range items {
		names[i] = it.Name
	}
	return strings.Join(names, ", ")
}

// Prompt is the single user message sent for items.
func Prompt(items []model.Item) string {
	return fmt.Sprintf(promptFormat, ItemClause(items))
}

// Request builds the one-message completion request for items.
func (f *RecipeFlow) Request(items []model.Item) llm.Request {
	return llm.Request{
		Model:    f.model,
		Messages: []llm.Message{{Role: llm.RoleUser, Content: Prompt(items)}},
	}
}

// Generate sends one request, even for an empty list, and classifies the
// answer.
func (f *RecipeFlow) Generate(ctx context.Context, items []model.Item) Result {
	resp, err := f.client.Complete(ctx, f.Request(items))
	if err != nil {
		f.log.Warn("recipe request failed", zap.Int("items", len(items)), zap.Error(err))
		return Result{Outcome: OutcomeServiceError, Err: err}
	}
	text := firstContent(resp)
	if text == "" {
		f.log.Info("recipe response had no content", zap.Int("items", len(items)))
		return Result{Outcome: OutcomeEmpty, Err: errEmptyResponse}
	}
	f.log.Info("recipe generated", zap.Int("items", len(items)), zap.Int("chars", len(text)))
	return Result{Text: text, Outcome: OutcomeSuccess}
}

// GenerateRecipe returns the recipe text, or "" when the service failed or
// returned nothing usable. The cases are not told apart.
func (f *RecipeFlow) GenerateRecipe(ctx context.Context, items []model.Item) string {
	return f.Generate(ctx, items).Text
}

func firstContent(resp *llm.Response) string {
	if resp == nil || len(resp.Choices) == 0 {
		return ""
	}
	msg := resp.Choices[0].Message
	if msg == nil {
		return ""
	}
	return msg.Content
}
