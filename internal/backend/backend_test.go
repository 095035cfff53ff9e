package backend

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		want    string
		wantErr string
	}{
		{"ollama", Options{Name: "ollama"}, NameOllama, ""},
		{"ollama mixed case", Options{Name: " Ollama "}, NameOllama, ""},
		{"codex", Options{Name: "codex"}, NameCodex, ""},
		{"claude with host", Options{Name: "claude", Host: "gpu-box"}, NameClaude, ""},
		{"claude without host", Options{Name: "claude"}, "", "requires --host"},
		{"unknown", Options{Name: "gpt9"}, "", "unknown backend"},
		{"empty", Options{}, "", "unknown backend"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := New(tt.opts)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, b.Name())
		})
	}
}

func TestDecodeOptions(t *testing.T) {
	opts, err := DecodeOptions(map[string]any{
		"backend": "ollama",
		"host":    "192.168.1.50",
		"port":    11434,
		"model":   "llava:13b",
	})
	require.NoError(t, err)
	assert.Equal(t, Options{Name: "ollama", Host: "192.168.1.50", Port: 11434, Model: "llava:13b"}, opts)
}

func TestClaude_InvokeCopiesThenRuns(t *testing.T) {
	var calls [][]string
	c, err := NewClaude(Options{Name: "claude", Host: "gpu-box", Port: 2222})
	require.NoError(t, err)
	c.run = func(_ context.Context, name string, args ...string) ([]byte, error) {
		calls = append(calls, append([]string{name}, args...))
		return []byte("###OBS\nok\n###CMD\ncliclick c:1,1\n"), nil
	}

	reply, err := c.Invoke(context.Background(), "do the thing", "/tmp/shot.png")
	require.NoError(t, err)
	assert.NotEmpty(t, reply)

	require.Len(t, calls, 2)
	assert.Equal(t, "scp", calls[0][0])
	assert.Contains(t, calls[0], "/tmp/shot.png")
	assert.Contains(t, calls[0], "gpu-box:"+remoteScreenshot)
	assert.Equal(t, "ssh", calls[1][0])
	assert.Contains(t, calls[1], "2222")
	assert.Contains(t, calls[1][len(calls[1])-1], "claude -p")
}

func TestCodex_EmptyReplyIsError(t *testing.T) {
	c := NewCodex()
	c.run = func(context.Context, string, ...string) ([]byte, error) {
		return []byte("   \n"), nil
	}

	_, err := c.Invoke(context.Background(), "p", "/tmp/shot.png")
	var berr *Error
	require.ErrorAs(t, err, &berr)
	assert.Contains(t, berr.Detail, "empty reply")
}

func TestShellQuote(t *testing.T) {
	assert.Equal(t, `'plain'`, shellQuote("plain"))
	assert.Equal(t, `'it'\''s'`, shellQuote("it's"))
}

func TestMock_ScriptOrder(t *testing.T) {
	m := &Mock{Replies: []string{"one", "two"}}

	r1, err := m.Invoke(context.Background(), "p1", "s1")
	require.NoError(t, err)
	r2, err := m.Invoke(context.Background(), "p2", "s2")
	require.NoError(t, err)
	_, err = m.Invoke(context.Background(), "p3", "s3")

	assert.Equal(t, "one", r1)
	assert.Equal(t, "two", r2)
	require.Error(t, err)
	assert.Equal(t, 3, m.Calls())
	assert.Equal(t, []string{"p1", "p2", "p3"}, m.Prompts)
}
