// Package frontmatter reads and writes instinct files: a "---" delimited
// header of "key: value" lines followed by free-form markdown.
//
// Decoding never fails. Text that does not start with a delimiter line, or
// that lacks a closing delimiter, decodes to empty metadata with the whole
// input as body, so a hand-edited file still loads.
package frontmatter

import (
	"strings"
)

const delimiter = "---"

// Record is a decoded instinct file.
type Record struct {
	Meta Metadata
	Body string
}

// Decode splits text into metadata and body.
func Decode(text string) Record {
	if !hasOpeningDelimiter(text) {
		return Record{Body: text}
	}

	parts := strings.SplitN(text, delimiter, 3)
	if len(parts) < 3 {
		return Record{Body: text}
	}

	var meta Metadata
	for _, line := range strings.Split(strings.TrimSpace(parts[1]), "\n") {
		line = strings.TrimSpace(line)
		key, raw, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		meta.Set(strings.TrimSpace(key), Coerce(raw))
	}

	return Record{Meta: meta, Body: strings.TrimSpace(parts[2])}
}

// hasOpeningDelimiter reports whether the first line is exactly "---".
func hasOpeningDelimiter(text string) bool {
	first, _, _ := strings.Cut(text, "\n")
	return strings.TrimRight(first, " \t\r") == delimiter
}

// Encode renders metadata and body back into file text.
func Encode(meta Metadata, body string) string {
	var b strings.Builder
	b.WriteString(delimiter)
	b.WriteByte('\n')
	for _, e := range meta.entries {
		b.WriteString(e.key)
		b.WriteString(": ")
		b.WriteString(e.value.String())
		b.WriteByte('\n')
	}
	b.WriteString(delimiter)
	b.WriteString("\n\n")
	b.WriteString(body)
	b.WriteByte('\n')
	return b.String()
}

// Encode renders the record back into file text.
func (r Record) Encode() string {
	return Encode(r.Meta, r.Body)
}
