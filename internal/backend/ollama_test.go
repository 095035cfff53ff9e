package backend

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestOllama points a backend at an httptest server.
func newTestOllama(t *testing.T, handler http.Handler) *Ollama {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)

	return NewOllama(Options{Host: u.Hostname(), Port: port, Model: "llava:13b"})
}

func writeScreenshot(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "screen.png")
	require.NoError(t, os.WriteFile(path, []byte("fake-png-bytes"), 0o644))
	return path
}

func TestOllama_Invoke(t *testing.T) {
	var got generateRequest
	o := newTestOllama(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(generateResponse{Response: "###OBS\nok\n###CMD\ncliclick c:1,1\n"})
	}))

	reply, err := o.Invoke(context.Background(), "the prompt", writeScreenshot(t))
	require.NoError(t, err)
	assert.Contains(t, reply, "###OBS")

	assert.Equal(t, "llava:13b", got.Model)
	assert.Equal(t, "the prompt", got.Prompt)
	assert.False(t, got.Stream)
	require.Len(t, got.Images, 1)
	decoded, err := base64.StdEncoding.DecodeString(got.Images[0])
	require.NoError(t, err)
	assert.Equal(t, "fake-png-bytes", string(decoded))
	assert.InDelta(t, 0.1, got.Options["temperature"], 1e-9)
}

func TestOllama_InvokeEmptyReply(t *testing.T) {
	o := newTestOllama(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(generateResponse{Response: "  \n"})
	}))

	_, err := o.Invoke(context.Background(), "p", writeScreenshot(t))
	var berr *Error
	require.ErrorAs(t, err, &berr)
	assert.Contains(t, berr.Detail, "empty reply")
}

func TestOllama_InvokeServerError(t *testing.T) {
	o := newTestOllama(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))

	_, err := o.Invoke(context.Background(), "p", writeScreenshot(t))
	var berr *Error
	require.ErrorAs(t, err, &berr)
	assert.Contains(t, berr.Detail, "model not found")
}

func TestOllama_ListVisionModels(t *testing.T) {
	o := newTestOllama(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/tags", r.URL.Path)
		w.Write([]byte(`{"models":[
			{"name":"llava:13b"},
			{"name":"mistral:7b"},
			{"name":"llama3.2-vision:11b"},
			{"name":"moondream:latest"},
			{"name":"codellama:13b"}
		]}`))
	}))

	models, err := o.ListVisionModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"llava:13b", "llama3.2-vision:11b", "moondream:latest"}, models)
}

func TestOllama_CheckConnectionDown(t *testing.T) {
	o := NewOllama(Options{Host: "127.0.0.1", Port: 1}) // nothing listens here

	err := o.CheckConnection(context.Background())
	var berr *Error
	require.ErrorAs(t, err, &berr)
	assert.Contains(t, berr.Detail, "is ollama running")
}

func TestNewOllama_EnvFallback(t *testing.T) {
	t.Setenv("OLLAMA_HOST", "envhost")
	t.Setenv("OLLAMA_PORT", "12345")

	o := NewOllama(Options{})
	assert.Equal(t, "http://envhost:12345", o.baseURL)

	// Explicit options win over the environment.
	o = NewOllama(Options{Host: "flaghost", Port: 9999})
	assert.Equal(t, "http://flaghost:9999", o.baseURL)
}
