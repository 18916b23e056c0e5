package narrative

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/mind-engage/mindengage-readiness/internal/catalog"
	"github.com/mind-engage/mindengage-readiness/internal/session"
)

var (
	ErrEmptyNarrative = errors.New("narrative: empty response")
	ErrUnavailable    = errors.New("narrative: no text-generation service configured")
)

const DefaultSystemPrompt = "You are an expert AI Teaching Coach."

type Generator struct {
	Completer Completer
	Options   Options
	// Timeout bounds one call; zero leaves it to the caller's context.
	Timeout time.Duration
}

func NewGenerator(c Completer, opts Options, timeout time.Duration) *Generator {
	return &Generator{Completer: c, Options: opts, Timeout: timeout}
}

// Generate asks the collaborator for an action plan and relays its text
// unmodified. There are no retries.
func (g *Generator) Generate(ctx context.Context, cfg catalog.Config, r *session.Result) (string, error) {
	if g == nil || g.Completer == nil {
		return "", ErrUnavailable
	}
	if g.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.Timeout)
		defer cancel()
	}
	system := cfg.SystemPrompt
	if system == "" {
		system = DefaultSystemPrompt
	}

	text, err := g.Completer.Complete(ctx, system, BuildPrompt(cfg, r), g.Options)
	if err != nil {
		log.Printf("ERROR: [Narrative] %s: completion failed: %v", cfg.ID, err)
		return "", fmt.Errorf("narrative: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		log.Printf("WARN: [Narrative] %s: empty completion", cfg.ID)
		return "", ErrEmptyNarrative
	}
	return text, nil
}
