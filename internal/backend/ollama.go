package backend

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultOllamaHost and DefaultOllamaPort are used when neither flags,
	// the project file, nor OLLAMA_HOST/OLLAMA_PORT say otherwise.
	DefaultOllamaHost = "localhost"
	DefaultOllamaPort = 11434

	// ollamaTimeout bounds one generation call. Vision models on local
	// hardware routinely take over a minute per screenshot.
	ollamaTimeout = 120 * time.Second
)

// visionKeywords mark model names that accept image input. The tags API has
// no capability field, so filtering is by naming convention.
var visionKeywords = []string{"llava", "vision", "minicpm", "moondream", "bakllava", "llama3.2-vision", "qwen2-vl", "qwen2.5vl"}

// Ollama talks to a local or remote Ollama server over its HTTP API.
type Ollama struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewOllama builds the HTTP backend. Host and port fall back to the
// OLLAMA_HOST/OLLAMA_PORT environment, then to the defaults.
func NewOllama(opts Options) *Ollama {
	host := opts.Host
	if host == "" {
		host = os.Getenv("OLLAMA_HOST")
	}
	if host == "" {
		host = DefaultOllamaHost
	}

	port := opts.Port
	if port == 0 {
		if p, err := strconv.Atoi(os.Getenv("OLLAMA_PORT")); err == nil {
			port = p
		}
	}
	if port == 0 {
		port = DefaultOllamaPort
	}

	return &Ollama{
		baseURL: fmt.Sprintf("http://%s:%d", host, port),
		model:   opts.Model,
		client:  &http.Client{Timeout: ollamaTimeout},
	}
}

func (o *Ollama) Name() string { return NameOllama }

// Model returns the configured model name, empty when none was picked yet.
func (o *Ollama) Model() string { return o.model }

// SetModel fixes the model after an interactive pick.
func (o *Ollama) SetModel(model string) { o.model = model }

type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Images  []string       `json:"images"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
	Error    string `json:"error,omitempty"`
}

func (o *Ollama) Invoke(ctx context.Context, prompt string, screenshotPath string) (string, error) {
	img, err := os.ReadFile(screenshotPath)
	if err != nil {
		return "", &Error{Backend: o.Name(), Detail: "reading screenshot", Err: err}
	}

	body, err := json.Marshal(generateRequest{
		Model:  o.model,
		Prompt: prompt,
		Images: []string{base64.StdEncoding.EncodeToString(img)},
		Stream: false,
		// Low temperature keeps replies close to the output contract.
		Options: map[string]any{
			"temperature": 0.1,
			"top_p":       0.9,
			"top_k":       40,
		},
	})
	if err != nil {
		return "", &Error{Backend: o.Name(), Detail: "encoding request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", &Error{Backend: o.Name(), Detail: "building request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return "", &Error{Backend: o.Name(), Detail: "calling " + o.baseURL, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &Error{Backend: o.Name(), Detail: "reading response", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return "", &Error{Backend: o.Name(), Detail: fmt.Sprintf("server returned %s: %s", resp.Status, strings.TrimSpace(string(data)))}
	}

	var gen generateResponse
	if err := json.Unmarshal(data, &gen); err != nil {
		return "", &Error{Backend: o.Name(), Detail: "decoding response", Err: err}
	}
	if gen.Error != "" {
		return "", &Error{Backend: o.Name(), Detail: "server error: " + gen.Error}
	}
	if strings.TrimSpace(gen.Response) == "" {
		return "", &Error{Backend: o.Name(), Detail: "empty reply from model " + o.model}
	}
	return gen.Response, nil
}

// CheckConnection hits the tags endpoint to confirm the server is up.
func (o *Ollama) CheckConnection(ctx context.Context) error {
	_, err := o.listModels(ctx)
	return err
}

// ListVisionModels returns the installed models whose names suggest image
// support, for the interactive picker.
func (o *Ollama) ListVisionModels(ctx context.Context) ([]string, error) {
	models, err := o.listModels(ctx)
	if err != nil {
		return nil, err
	}

	var vision []string
	for _, m := range models {
		lower := strings.ToLower(m)
		for _, kw := range visionKeywords {
			if strings.Contains(lower, kw) {
				vision = append(vision, m)
				break
			}
		}
	}
	return vision, nil
}

func (o *Ollama) listModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, &Error{Backend: o.Name(), Detail: "building request", Err: err}
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, &Error{Backend: o.Name(), Detail: "cannot reach " + o.baseURL + " (is ollama running?)", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &Error{Backend: o.Name(), Detail: "listing models: server returned " + resp.Status}
	}

	var tags struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, &Error{Backend: o.Name(), Detail: "decoding model list", Err: err}
	}

	names := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		names = append(names, m.Name)
	}
	return names, nil
}
