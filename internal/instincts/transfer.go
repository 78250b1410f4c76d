package instincts

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lazypower/instinct/internal/frontmatter"
)

// ImportConfidence is reported for imported files that carry no confidence.
const ImportConfidence = 0.5

// ImportResult summarizes an import.
type ImportResult struct {
	Name       string
	Confidence frontmatter.Value
	Dest       File
	Overwrote  bool
}

// Import copies the file at src into the directory as <stem>.md. The source
// text is decoded only to report its name and confidence; it is written
// verbatim.
func (d Dir) Import(src string, force bool) (*ImportResult, error) {
	data, err := os.ReadFile(src)
	if err != nil {
		return nil, fmt.Errorf("read source: %w", err)
	}

	stem := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	rec := frontmatter.Decode(string(data))

	res := &ImportResult{
		Name:       stem,
		Confidence: frontmatter.Float(ImportConfidence),
		Dest:       File{Name: stem + Ext, Path: filepath.Join(d.Path, stem+Ext)},
	}
	if v, ok := rec.Meta.Get("name"); ok {
		res.Name = v.String()
	}
	if v, ok := rec.Meta.Get("confidence"); ok {
		res.Confidence = v
	}

	if err := os.MkdirAll(d.Path, 0755); err != nil {
		return nil, fmt.Errorf("create instincts dir: %w", err)
	}

	if _, err := os.Stat(res.Dest.Path); err == nil {
		if !force {
			return res, fmt.Errorf("%s: %w", res.Dest.Name, ErrExists)
		}
		res.Overwrote = true
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("stat destination: %w", err)
	}

	if err := d.Write(res.Dest, string(data)); err != nil {
		return nil, err
	}
	return res, nil
}

// ExportedInstinct is one entry of an export document.
type ExportedInstinct struct {
	Filename string               `json:"filename"`
	Metadata frontmatter.Metadata `json:"metadata"`
	Body     string               `json:"body"`
}

// Export is the portable JSON document of all instincts.
type Export struct {
	ExportedAt    string             `json:"exported_at"`
	InstinctCount int                `json:"instinct_count"`
	Instincts     []ExportedInstinct `json:"instincts"`
}

// Export assembles the export document. A missing or empty directory
// returns ErrNoInstincts.
func (d Dir) Export(now time.Time) (*Export, error) {
	all, skipped, err := d.LoadAll()
	if err != nil {
		return nil, err
	}
	if len(skipped) > 0 {
		return nil, fmt.Errorf("export: %w", errors.Join(skipped...))
	}
	if len(all) == 0 {
		return nil, ErrNoInstincts
	}

	doc := &Export{
		ExportedAt:    now.Format("2006-01-02T15:04:05-0700"),
		InstinctCount: len(all),
		Instincts:     make([]ExportedInstinct, 0, len(all)),
	}
	for _, inst := range all {
		doc.Instincts = append(doc.Instincts, ExportedInstinct{
			Filename: inst.File.Name,
			Metadata: inst.Record.Meta,
			Body:     inst.Record.Body,
		})
	}
	return doc, nil
}

// WriteExport writes doc as indented JSON to path.
func WriteExport(doc *Export, path string) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal export: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	return nil
}

// Summary is one row of the status listing.
type Summary struct {
	Filename    string  `json:"filename"`
	Name        string  `json:"name"`
	Confidence  float64 `json:"confidence"`
	Category    string  `json:"category"`
	LastEvolved string  `json:"last_evolved,omitempty"`
}

// Summaries returns status rows for every readable instinct.
func (d Dir) Summaries() ([]Summary, error) {
	all, _, err := d.LoadAll()
	if err != nil {
		return nil, err
	}
	out := make([]Summary, 0, len(all))
	for _, inst := range all {
		out = append(out, Summary{
			Filename:    inst.File.Name,
			Name:        inst.Name(),
			Confidence:  inst.Confidence(DefaultStatusConfidence),
			Category:    inst.Category(),
			LastEvolved: inst.LastEvolved(),
		})
	}
	return out, nil
}
