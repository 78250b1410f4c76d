package hooks

import (
	"io"

	"github.com/lazypower/instinct/internal/instincts"
)

// handleStart always answers, with an empty context if instincts can't be read.
func (h *Handler) handleStart(stdout io.Writer) error {
	all, _, err := h.Dir.LoadAll()
	if err != nil {
		WriteSessionStartOutput(stdout, "")
		return err
	}
	return WriteSessionStartOutput(stdout, instincts.Context(all, h.MinConfidence))
}
