package suggest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kkkkikiki/crm/internal/config"
)

func TestLocalSuggestionsCarryPlaceholder(t *testing.T) {
	svc := New(config.SuggestConfig{})

	suggestions := svc.SuggestMessages(context.Background(), "bring back inactive users")
	require.Len(t, suggestions, 3)
	for _, s := range suggestions {
		assert.Contains(t, s, "{name}")
	}
}

func TestLocalSuggestionsHonorExplicitPercent(t *testing.T) {
	svc := New(config.SuggestConfig{})

	suggestions := svc.SuggestMessages(context.Background(), "offer 25% off to students")
	require.Len(t, suggestions, 3)
	for _, s := range suggestions {
		assert.Contains(t, s, "25%")
		assert.NotContains(t, s, "10%")
	}
}

func TestRemoteSuggestionsStripCodeFences(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant",` +
			`"content":"` + "```json\\n" + `[\"Hi {name}!\",\"Hey {name}\",\"Yo {name}\"]` + "\\n```" + `"}}]}`))
	}))
	defer server.Close()

	svc := New(config.SuggestConfig{
		APIKey:   "test-key",
		Model:    "test-model",
		Endpoint: server.URL,
		Timeout:  5,
	})

	suggestions := svc.SuggestMessages(context.Background(), "welcome new users")
	require.Len(t, suggestions, 3)
	assert.Equal(t, "Hi {name}!", suggestions[0])
}

func TestRemoteFailureFallsBackToLocal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	svc := New(config.SuggestConfig{
		APIKey:   "test-key",
		Endpoint: server.URL,
		Timeout:  5,
	})

	suggestions := svc.SuggestMessages(context.Background(), "20% off for VIP customers")
	require.Len(t, suggestions, 3)
	for _, s := range suggestions {
		assert.True(t, strings.Contains(s, "20%"))
	}
}

func TestParseSuggestionsRejectsNonArrayOutput(t *testing.T) {
	_, err := parseSuggestions("here are some ideas: buy now!")
	assert.Error(t, err)

	_, err = parseSuggestions("[]")
	assert.Error(t, err)
}
