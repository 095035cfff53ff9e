package backend

import "context"

// Mock replays scripted replies in order. Used by loop tests.
type Mock struct {
	// Replies are returned one per Invoke call. An error entry takes
	// precedence over its reply.
	Replies []string
	Errs    []error

	// Prompts records every prompt received, for assertions.
	Prompts []string

	// Screenshots records every screenshot path received.
	Screenshots []string

	calls int
}

func (m *Mock) Name() string { return "mock" }

func (m *Mock) Invoke(_ context.Context, prompt string, screenshotPath string) (string, error) {
	m.Prompts = append(m.Prompts, prompt)
	m.Screenshots = append(m.Screenshots, screenshotPath)

	i := m.calls
	m.calls++

	if i < len(m.Errs) && m.Errs[i] != nil {
		return "", m.Errs[i]
	}
	if i < len(m.Replies) {
		return m.Replies[i], nil
	}
	return "", &Error{Backend: m.Name(), Detail: "mock script exhausted"}
}

func (m *Mock) CheckConnection(context.Context) error { return nil }

// Calls reports how many times Invoke ran.
func (m *Mock) Calls() int { return m.calls }
