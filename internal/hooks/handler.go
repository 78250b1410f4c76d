// Package hooks implements the Claude Code hook commands: PostToolUse
// appends an observation line, SessionStart injects the strongest instincts.
package hooks

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/lazypower/instinct/internal/instincts"
	"github.com/lazypower/instinct/internal/observe"
)

// Handler dispatches hook events against the local instinct files.
type Handler struct {
	Log           observe.Log
	Dir           instincts.Dir
	MinConfidence float64
	Now           func() time.Time
}

// Handle reads HookInput from stdin and dispatches on event. Output, if the
// event has any, goes to stdout.
func (h *Handler) Handle(event string, stdin io.Reader, stdout io.Writer) error {
	var input HookInput
	if err := json.NewDecoder(stdin).Decode(&input); err != nil {
		// Stdin may be empty for some events; degrade gracefully
		if event == "start" {
			return h.handleStart(stdout)
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("decode stdin: %w", err)
	}

	switch event {
	case "start":
		return h.handleStart(stdout)
	case "observe":
		return h.handleObserve(&input)
	default:
		return fmt.Errorf("unknown hook event: %s", event)
	}
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}
