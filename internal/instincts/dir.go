// Package instincts manages the directory of instinct files: one markdown
// record per file, no nesting, the filename stem doubling as a fallback name.
package instincts

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/lazypower/instinct/internal/frontmatter"
)

// Ext is the instinct file extension.
const Ext = ".md"

// DefaultStatusConfidence is shown for records with no confidence field.
const DefaultStatusConfidence = 0.0

var (
	// ErrExists is returned by Import when the destination is present and force is off.
	ErrExists = errors.New("instinct already exists")

	// ErrNoInstincts is returned when there is nothing to export.
	ErrNoInstincts = errors.New("no instincts to export")
)

// Dir is a directory of instinct files.
type Dir struct {
	Path string
}

// File is one instinct file within a Dir.
type File struct {
	Name string // base name, e.g. build-retry.md
	Path string
}

// Stem returns the filename without extension.
func (f File) Stem() string {
	return strings.TrimSuffix(f.Name, filepath.Ext(f.Name))
}

// Exists reports whether the directory is present.
func (d Dir) Exists() bool {
	info, err := os.Stat(d.Path)
	return err == nil && info.IsDir()
}

// List returns the instinct files sorted by name. A missing directory
// yields no files and no error.
func (d Dir) List() ([]File, error) {
	entries, err := os.ReadDir(d.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read instincts dir: %w", err)
	}

	var files []File
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != Ext {
			continue
		}
		files = append(files, File{Name: e.Name(), Path: filepath.Join(d.Path, e.Name())})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// Lookup finds a file by stem or full name.
func (d Dir) Lookup(name string) (File, bool, error) {
	if filepath.Ext(name) != Ext {
		name += Ext
	}
	if name != filepath.Base(name) {
		return File{}, false, nil
	}
	path := filepath.Join(d.Path, name)
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return File{}, false, nil
	}
	if err != nil {
		return File{}, false, fmt.Errorf("stat instinct: %w", err)
	}
	if info.IsDir() {
		return File{}, false, nil
	}
	return File{Name: name, Path: path}, true, nil
}

// Read returns the raw text of f.
func (d Dir) Read(f File) (string, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return "", fmt.Errorf("read instinct %s: %w", f.Name, err)
	}
	return string(data), nil
}

// Write replaces f's content atomically: the text goes to a temp file in the
// same directory which is then renamed over the original.
func (d Dir) Write(f File, text string) error {
	tmp, err := os.CreateTemp(filepath.Dir(f.Path), "."+f.Name+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", f.Name, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.WriteString(text); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write %s: %w", f.Name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close %s: %w", f.Name, err)
	}
	if info, err := os.Stat(f.Path); err == nil {
		os.Chmod(tmpPath, info.Mode().Perm())
	} else {
		os.Chmod(tmpPath, 0644)
	}
	if err := os.Rename(tmpPath, f.Path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace %s: %w", f.Name, err)
	}
	return nil
}

// Instinct is a decoded instinct file.
type Instinct struct {
	File   File
	Record frontmatter.Record
}

// Name returns the name field, or the filename stem when absent or blank.
func (i Instinct) Name() string {
	if v, ok := i.Record.Meta.Get("name"); ok && strings.TrimSpace(v.String()) != "" {
		return v.String()
	}
	return i.File.Stem()
}

// Confidence returns the confidence field or def.
func (i Instinct) Confidence(def float64) float64 {
	v, ok := i.Record.Meta.Get("confidence")
	if !ok {
		return def
	}
	if f, ok := v.Float64(); ok {
		return f
	}
	return def
}

// Category returns the category field, defaulting to "general".
func (i Instinct) Category() string {
	if v, ok := i.Record.Meta.Get("category"); ok && v.String() != "" {
		return v.String()
	}
	return "general"
}

// LastEvolved returns the raw last_evolved field, if any.
func (i Instinct) LastEvolved() string {
	if v, ok := i.Record.Meta.Get("last_evolved"); ok {
		return v.String()
	}
	return ""
}

// Load reads and decodes one file.
func (d Dir) Load(f File) (Instinct, error) {
	text, err := d.Read(f)
	if err != nil {
		return Instinct{}, err
	}
	return Instinct{File: f, Record: frontmatter.Decode(text)}, nil
}

// LoadAll decodes every instinct in the directory. Unreadable files are
// returned in skipped rather than failing the whole listing.
func (d Dir) LoadAll() (all []Instinct, skipped []error, err error) {
	files, err := d.List()
	if err != nil {
		return nil, nil, err
	}
	for _, f := range files {
		inst, err := d.Load(f)
		if err != nil {
			skipped = append(skipped, err)
			continue
		}
		all = append(all, inst)
	}
	return all, skipped, nil
}
