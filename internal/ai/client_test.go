package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"embers/internal/utils"
)

func completionServer(t *testing.T, reply string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotEmpty(t, req.Messages)

		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": reply}},
			},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCompleteReturnsFirstChoice(t *testing.T) {
	srv := completionServer(t, "and then the rain stopped.")
	c := NewClient(srv.URL, zerolog.Nop())

	got, err := c.Complete(context.Background(), []ChatMessage{{Role: "user", Content: "it rained"}}, 0.5, 50)
	require.NoError(t, err)
	assert.Equal(t, "and then the rain stopped.", got)
}

func TestCompleteWithoutEndpoint(t *testing.T) {
	c := NewClient("", zerolog.Nop())
	_, err := c.Complete(context.Background(), []ChatMessage{{Role: "user", Content: "x"}}, 0, 0)
	require.Error(t, err)
	assert.True(t, utils.IsConfigError(err))
}

func TestCompleteNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, zerolog.Nop())
	_, err := c.Complete(context.Background(), []ChatMessage{{Role: "user", Content: "x"}}, 0, 0)
	assert.Error(t, err)
}

func TestCompleteEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, zerolog.Nop())
	got, err := c.Complete(context.Background(), []ChatMessage{{Role: "user", Content: "x"}}, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPredictDegradesToEmpty(t *testing.T) {
	c := NewClient("http://127.0.0.1:0", zerolog.Nop())
	assert.Empty(t, c.Predict(context.Background(), "some entry"))
	assert.Empty(t, c.Predict(context.Background(), ""))

	srv := completionServer(t, "it felt lighter already.")
	ok := NewClient(srv.URL, zerolog.Nop())
	assert.Equal(t, "it felt lighter already.", ok.Predict(context.Background(), "writing this down,"))
}
