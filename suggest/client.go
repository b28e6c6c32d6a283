// Package suggest refines rough goal titles with the Gemini API. It is an
// optional helper for pre-filling a title; callers fall back to the raw text
// whenever it fails.
package suggest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"goally/metrics"

	"github.com/patrickmn/go-cache"
	"google.golang.org/genai"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/"
	DefaultModel   = "gemini-2.5-flash"
)

// ErrNoSuggestion is returned when the model produced no usable title.
var ErrNoSuggestion = errors.New("no suggestion")

type Suggester interface {
	Suggest(ctx context.Context, rawTitle string) (string, error)
}

type Client struct {
	genai      *genai.Client
	httpClient *http.Client
	baseURL    string
	model      string
	cache      *cache.Cache
	metrics    *metrics.GoalMetrics
}

type ClientOption func(*Client)

func WithBaseURL(u string) ClientOption {
	return func(c *Client) { c.baseURL = u }
}

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func WithMetrics(m *metrics.GoalMetrics) ClientOption {
	return func(c *Client) { c.metrics = m }
}

// NewClient builds a Gemini API client for model. An empty apiKey is an error.
func NewClient(ctx context.Context, apiKey, model string, opts ...ClientOption) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("suggestion api key not configured")
	}
	if model == "" {
		model = DefaultModel
	}
	c := &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    DefaultBaseURL,
		model:      model,
		cache:      cache.New(30*time.Minute, time.Hour),
	}
	for _, opt := range opts {
		opt(c)
	}

	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  c.httpClient,
		HTTPOptions: genai.HTTPOptions{BaseURL: c.baseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	c.genai = gc
	return c, nil
}

func prompt(raw string) string {
	return "Rewrite the following personal goal as a short, specific and motivating title " +
		"of at most ten words. Reply with JSON {\"title\": string}.\nGoal: " + raw
}

var titleSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"title": {Type: genai.TypeString},
	},
	Required: []string{"title"},
}

// Suggest returns a refined title for rawTitle. Results are cached per raw title.
func (c *Client) Suggest(ctx context.Context, rawTitle string) (string, error) {
	raw := strings.TrimSpace(rawTitle)
	if raw == "" {
		return "", ErrNoSuggestion
	}
	if cached, ok := c.cache.Get(raw); ok {
		c.metrics.RecordSuggestion("hit")
		return cached.(string), nil
	}

	title, err := c.generate(ctx, raw)
	if err != nil {
		c.metrics.RecordSuggestion("error")
		return "", err
	}
	c.metrics.RecordSuggestion("miss")
	c.cache.SetDefault(raw, title)
	return title, nil
}

func (c *Client) generate(ctx context.Context, raw string) (string, error) {
	resp, err := c.genai.Models.GenerateContent(ctx, c.model, genai.Text(prompt(raw)), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   titleSchema,
	})
	if err != nil {
		return "", fmt.Errorf("suggestion request: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ErrNoSuggestion
	}

	var suggestion struct {
		Title string `json:"title"`
	}
	if err := json.Unmarshal([]byte(text), &suggestion); err != nil {
		return "", fmt.Errorf("decode suggestion: %w", err)
	}
	title := strings.TrimSpace(suggestion.Title)
	if title == "" {
		return "", ErrNoSuggestion
	}
	return title, nil
}
