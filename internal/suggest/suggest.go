// Package suggest produces short campaign message suggestions from a
// free-text objective, optionally backed by an OpenAI-compatible chat
// endpoint with a local template fallback.
package suggest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/kkkkikiki/crm/internal/config"
)

var percentRe = regexp.MustCompile(`(\d{1,2})\s*%`)

// Service generates campaign message suggestions
type Service struct {
	cfg    config.SuggestConfig
	client *http.Client
}

// New creates a suggestion service from config
func New(cfg config.SuggestConfig) *Service {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Service{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

// SuggestMessages returns three short SMS-style messages for the given
// objective, each carrying the {name} placeholder. With no API key
// configured, or on any remote failure, local templates are used.
func (s *Service) SuggestMessages(ctx context.Context, objective string) []string {
	if s.cfg.APIKey == "" {
		return s.localSuggest(objective)
	}

	suggestions, err := s.remoteSuggest(ctx, objective)
	if err != nil {
		log.Printf("suggest: remote call failed, falling back to local: %v", err)
		return s.localSuggest(objective)
	}
	return suggestions
}

// localSuggest builds suggestions from the objective text alone,
// honoring an explicit percent discount when one is mentioned.
func (s *Service) localSuggest(objective string) []string {
	percent := "10"
	if m := percentRe.FindStringSubmatch(objective); m != nil {
		percent = m[1]
	}

	audience := ""
	lower := strings.ToLower(objective)
	switch {
	case strings.Contains(lower, "inactive") || strings.Contains(lower, "win back") || strings.Contains(lower, "winback"):
		audience = "We miss you! "
	case strings.Contains(lower, "student"):
		audience = "Students, "
	case strings.Contains(lower, "vip") || strings.Contains(lower, "loyal"):
		audience = "As one of our best customers, "
	}

	return []string{
		fmt.Sprintf("Hi {name}, %shere's %s%% off your next order!", audience, percent),
		fmt.Sprintf("{name}, enjoy %s%% off - just for you. Shop now!", percent),
		fmt.Sprintf("Don't miss out, {name}! %s%% off ends soon.", percent),
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (s *Service) remoteSuggest(ctx context.Context, objective string) ([]string, error) {
	prompt := "You are a CRM copywriter. Objective: " + objective +
		". If a percent discount is specified, use exactly that percent." +
		" If a target audience is mentioned, tailor the tone accordingly." +
		" Return ONLY a JSON array with 3 unique short SMS messages (<=80 chars) using {name}. No commentary."

	body, err := json.Marshal(chatRequest{
		Model:       s.cfg.Model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: 0.9,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("empty completion")
	}

	suggestions, err := parseSuggestions(parsed.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	return suggestions, nil
}

// parseSuggestions extracts a JSON string array from model output,
// stripping markdown code fences when present.
func parseSuggestions(content string) ([]string, error) {
	content = strings.TrimSpace(strings.ReplaceAll(content, "\r", "\n"))
	if strings.HasPrefix(content, "```") {
		if idx := strings.Index(content, "\n"); idx >= 0 {
			content = content[idx+1:]
		} else {
			content = content[3:]
		}
		content = strings.TrimSuffix(strings.TrimSpace(content), "```")
		content = strings.TrimSpace(content)
	}

	var suggestions []string
	if err := json.Unmarshal([]byte(content), &suggestions); err != nil {
		return nil, fmt.Errorf("model output is not a JSON array: %w", err)
	}
	if len(suggestions) == 0 {
		return nil, fmt.Errorf("model returned no suggestions")
	}
	if len(suggestions) > 3 {
		suggestions = suggestions[:3]
	}
	return suggestions, nil
}
