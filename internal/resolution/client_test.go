package resolution

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient(Config{})
	require.Error(t, err)

	client, err := NewClient(Config{Endpoint: "http://localhost:9000/resolve"})
	require.NoError(t, err)
	require.Equal(t, 120*time.Second, client.config.Timeout)
}

func TestResolve(t *testing.T) {
	var gotConversationID, gotQuestion string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotConversationID = req["chatid"]
		gotQuestion = req["question"]

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"answer": "The capital of France is Paris."})
	}))
	defer ts.Close()

	client, err := NewClient(Config{Endpoint: ts.URL})
	require.NoError(t, err)

	answer, err := client.Resolve(context.Background(), "chat-1", "What is the capital of France?")
	require.NoError(t, err)
	require.Equal(t, "The capital of France is Paris.", answer)
	require.Equal(t, "chat-1", gotConversationID)
	require.Equal(t, "What is the capital of France?", gotQuestion)
}

func TestResolveServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "resolver down", http.StatusInternalServerError)
	}))
	defer ts.Close()

	client, err := NewClient(Config{Endpoint: ts.URL})
	require.NoError(t, err)

	_, err = client.Resolve(context.Background(), "chat-1", "anything")
	require.Error(t, err)
	require.Contains(t, err.Error(), "HTTP error 500")
}

func TestResolveEmptyAnswer(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"answer": "   "})
	}))
	defer ts.Close()

	client, err := NewClient(Config{Endpoint: ts.URL})
	require.NoError(t, err)

	_, err = client.Resolve(context.Background(), "chat-1", "anything")
	require.Error(t, err)
	require.Contains(t, err.Error(), "empty answer")
}

func TestResolveMalformedResponse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>oops</html>"))
	}))
	defer ts.Close()

	client, err := NewClient(Config{Endpoint: ts.URL})
	require.NoError(t, err)

	_, err = client.Resolve(context.Background(), "chat-1", "anything")
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to parse response JSON")
}

func TestResolveTimeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer ts.Close()

	client, err := NewClient(Config{Endpoint: ts.URL, Timeout: 20 * time.Millisecond})
	require.NoError(t, err)

	_, err = client.Resolve(context.Background(), "chat-1", "anything")
	require.Error(t, err)
}
