package backend

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"
)

// PickModel resolves which Ollama model to use. A configured model wins;
// with exactly one vision model installed it is picked silently; otherwise
// the operator chooses from an interactive list.
func PickModel(ctx context.Context, o *Ollama, in io.Reader, out io.Writer) (string, error) {
	if o.Model() != "" {
		return o.Model(), nil
	}

	models, err := o.ListVisionModels(ctx)
	if err != nil {
		return "", err
	}
	if len(models) == 0 {
		return "", &Error{
			Backend: o.Name(),
			Detail:  "no vision-capable models installed (try: ollama pull llava)",
		}
	}
	if len(models) == 1 {
		return models[0], nil
	}

	options := make([]huh.Option[string], 0, len(models))
	for _, m := range models {
		options = append(options, huh.NewOption(m, m))
	}

	var picked string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Vision model").
				Description("Several vision-capable models are installed; pick one").
				Options(options...).
				Value(&picked),
		),
	).
		WithInput(in).
		WithOutput(out)

	// Use accessible mode for non-TTY input (e.g., tests, piped input).
	if f, ok := in.(*os.File); !ok || !term.IsTerminal(int(f.Fd())) {
		form = form.WithAccessible(true)
	}

	if err := form.Run(); err != nil {
		return "", fmt.Errorf("model selection failed: %w", err)
	}
	return picked, nil
}
