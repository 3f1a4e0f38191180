package llm

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/cohere"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/time/rate"
)

// Provider names a model vendor
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderGemini    Provider = "gemini"
	ProviderCohere    Provider = "cohere"
	ProviderOllama    Provider = "ollama"
)

// DefaultModel returns the model used when none is configured
func DefaultModel(p Provider) string {
	switch p {
	case ProviderOpenAI:
		return "gpt-4o-mini"
	case ProviderAnthropic:
		return "claude-3-5-haiku-latest"
	case ProviderGemini:
		return "gemini-2.5-flash"
	case ProviderCohere:
		return "command-r"
	case ProviderOllama:
		return "llama3"
	}
	return ""
}

// ConnectorOptions configures a provider connection
type ConnectorOptions struct {
	Provider          Provider
	APIKey            string
	BaseURL           string
	Model             string
	Temperature       float64
	MaxTokens         int
	RequestsPerSecond float64
}

// Connector is a Client backed by a langchaingo model
type Connector struct {
	provider Provider
	model    llms.Model
	opts     ConnectorOptions
	limiter  *rate.Limiter
}

// NewConnector creates a connector for the configured provider
func NewConnector(ctx context.Context, opts ConnectorOptions) (*Connector, error) {
	if opts.Model == "" {
		opts.Model = DefaultModel(opts.Provider)
	}

	log.Debug().
		Str("provider", string(opts.Provider)).
		Str("model", opts.Model).
		Float64("temperature", opts.Temperature).
		Msg("Creating model connector")

	var (
		model llms.Model
		err   error
	)
	switch opts.Provider {
	case ProviderOpenAI:
		oo := []openai.Option{openai.WithModel(opts.Model), openai.WithToken(opts.APIKey)}
		if opts.BaseURL != "" {
			oo = append(oo, openai.WithBaseURL(opts.BaseURL))
		}
		model, err = openai.New(oo...)
	case ProviderAnthropic:
		ao := []anthropic.Option{anthropic.WithModel(opts.Model), anthropic.WithToken(opts.APIKey)}
		if opts.BaseURL != "" {
			ao = append(ao, anthropic.WithBaseURL(opts.BaseURL))
		}
		model, err = anthropic.New(ao...)
	case ProviderGemini:
		model, err = googleai.New(ctx, googleai.WithAPIKey(opts.APIKey), googleai.WithDefaultModel(opts.Model))
	case ProviderCohere:
		co := []cohere.Option{cohere.WithModel(opts.Model), cohere.WithToken(opts.APIKey)}
		if opts.BaseURL != "" {
			co = append(co, cohere.WithBaseURL(opts.BaseURL))
		}
		model, err = cohere.New(co...)
	case ProviderOllama:
		server := opts.BaseURL
		if server == "" {
			server = "http://localhost:11434"
		}
		model, err = ollama.New(ollama.WithServerURL(server), ollama.WithModel(opts.Model))
	default:
		return nil, fmt.Errorf("unsupported provider: %q", opts.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s model: %w", opts.Provider, err)
	}

	c := &Connector{provider: opts.Provider, model: model, opts: opts}
	if opts.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	return c, nil
}

// Generate sends prompt to the model, waiting for the rate limiter first
func (c *Connector) Generate(ctx context.Context, prompt string) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	callOpts := []llms.CallOption{llms.WithTemperature(c.opts.Temperature)}
	if c.opts.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(c.opts.MaxTokens))
	}
	if c.provider == ProviderGemini {
		callOpts = append(callOpts, llms.WithModel(c.opts.Model))
	}

	return llms.GenerateFromSinglePrompt(ctx, c.model, prompt, callOpts...)
}

// Provider returns the connector's vendor
func (c *Connector) Provider() Provider {
	return c.provider
}

// Model returns the configured model name
func (c *Connector) Model() string {
	return c.opts.Model
}
