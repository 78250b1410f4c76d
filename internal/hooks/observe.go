package hooks

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/lazypower/instinct/internal/evolve"
)

// maxOutputBytes bounds the tool output kept per observation.
const maxOutputBytes = 10 * 1024

// ObservationLine is one line of the observation log.
type ObservationLine struct {
	Timestamp string          `json:"timestamp"`
	SessionID string          `json:"session_id,omitempty"`
	Tool      string          `json:"tool"`
	Input     json.RawMessage `json:"input,omitempty"`
	Output    string          `json:"output,omitempty"`
}

func (h *Handler) handleObserve(input *HookInput) error {
	if input.ShouldSkipTool() {
		return nil
	}

	line := ObservationLine{
		Timestamp: h.now().Format(evolve.TimestampLayout),
		SessionID: input.SessionID,
		Tool:      input.ToolName,
		Output:    truncate(responseText(input.ToolResponse), maxOutputBytes),
	}
	if json.Valid(input.ToolInput) {
		line.Input = input.ToolInput
	}

	data, err := json.Marshal(line)
	if err != nil {
		return fmt.Errorf("encode observation: %w", err)
	}
	return appendLine(h.Log.Path, data)
}

// responseText unquotes a JSON string response; anything else is kept as JSON text.
func responseText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// appendLine writes one newline-terminated line in a single append.
func appendLine(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create observations dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open observations: %w", err)
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		f.Close()
		return fmt.Errorf("append observation: %w", err)
	}
	return f.Close()
}
