// Package observe reads the append-only observation log: one JSON object per
// line, written by the observation hook and never modified here.
package observe

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"strings"
)

// Observation is one JSON object from the observation log.
type Observation struct {
	Data map[string]any
	text string
}

// Text returns the canonical lowercase serialization used for keyword matching.
func (o Observation) Text() string {
	return o.text
}

// Contains reports whether the canonical text contains any of the keywords.
func (o Observation) Contains(keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(o.text, kw) {
			return true
		}
	}
	return false
}

// New builds an Observation from a decoded object.
func New(data map[string]any) (Observation, error) {
	text, err := canonical(data)
	if err != nil {
		return Observation{}, err
	}
	return Observation{Data: data, text: text}, nil
}

// canonical marshals with sorted keys and without HTML escaping, then lowercases.
func canonical(data map[string]any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(data); err != nil {
		return "", fmt.Errorf("encode observation: %w", err)
	}
	return strings.ToLower(strings.TrimSuffix(buf.String(), "\n")), nil
}

// Parse lazily yields observations from r in file order. Blank lines and
// lines that are not JSON objects are skipped. Lines have no length limit.
func Parse(r io.Reader) iter.Seq[Observation] {
	return func(yield func(Observation) bool) {
		br := bufio.NewReaderSize(r, 64*1024)
		for {
			line, err := br.ReadBytes('\n')
			if len(line) > 0 {
				if obs, ok := parseLine(line); ok {
					if !yield(obs) {
						return
					}
				}
			}
			if err != nil {
				return
			}
		}
	}
}

// ParseLines parses log content from a string (for testing).
func ParseLines(content string) []Observation {
	var out []Observation
	for obs := range Parse(strings.NewReader(content)) {
		out = append(out, obs)
	}
	return out
}

func parseLine(line []byte) (Observation, bool) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return Observation{}, false
	}

	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()
	var data map[string]any
	if err := dec.Decode(&data); err != nil || data == nil {
		return Observation{}, false
	}
	if _, err := dec.Token(); err != io.EOF {
		return Observation{}, false // trailing garbage after the object
	}

	obs, err := New(data)
	if err != nil {
		return Observation{}, false
	}
	return obs, true
}

// Log is the append-only observation file.
type Log struct {
	Path string
}

// Exists reports whether the log file is present.
func (l Log) Exists() bool {
	info, err := os.Stat(l.Path)
	return err == nil && !info.IsDir()
}

// All yields every observation, reopening the file on each iteration.
// A missing or unreadable file yields nothing.
func (l Log) All() iter.Seq[Observation] {
	return func(yield func(Observation) bool) {
		f, err := os.Open(l.Path)
		if err != nil {
			return
		}
		defer f.Close()

		for obs := range Parse(f) {
			if !yield(obs) {
				return
			}
		}
	}
}

// Load reads every observation into memory. A missing log is not an error.
func (l Log) Load() ([]Observation, error) {
	f, err := os.Open(l.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open observations: %w", err)
	}
	defer f.Close()

	var out []Observation
	for obs := range Parse(f) {
		out = append(out, obs)
	}
	return out, nil
}

// Stats summarizes the raw log file.
type Stats struct {
	Lines int
	Bytes int64
}

// Stats counts lines (including an unterminated last line) and the file size.
func (l Log) Stats() (Stats, error) {
	f, err := os.Open(l.Path)
	if err != nil {
		return Stats{}, fmt.Errorf("open observations: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return Stats{}, fmt.Errorf("stat observations: %w", err)
	}

	var st Stats
	st.Bytes = info.Size()

	buf := make([]byte, 32*1024)
	var last byte
	for {
		n, err := f.Read(buf)
		if n > 0 {
			st.Lines += bytes.Count(buf[:n], []byte{'\n'})
			last = buf[n-1]
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return st, fmt.Errorf("read observations: %w", err)
		}
	}
	if st.Bytes > 0 && last != '\n' {
		st.Lines++
	}
	return st, nil
}
