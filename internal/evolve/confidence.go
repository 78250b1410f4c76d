package evolve

import (
	"math"
	"strings"
	"time"

	"github.com/lazypower/instinct/internal/frontmatter"
	"github.com/lazypower/instinct/internal/observe"
)

// Confidence update rule:
//   - no relevant observations: decay by 0.05, floor 0.10
//   - 1-3 relevant: +0.05, capped at 0.50
//   - 4-6 relevant: +0.10, capped at 0.70
//   - 7+ relevant:  +0.15, capped at 0.85
//
// The caps are per tier, so one pass never moves a record past the cap of
// the tier its evidence reached. Confidence never reaches 1.0.
const (
	DefaultConfidence = 0.3

	decayStep  = 0.05
	decayFloor = 0.10

	// changeEpsilon is the smallest delta that counts as an evolution.
	changeEpsilon = 0.001

	// TimestampLayout is the last_evolved format, e.g. 2026-10-17T09:30:00+0200.
	TimestampLayout = "2006-01-02T15:04:05-0700"
)

type tier struct {
	maxRelevant int
	step        float64
	ceiling     float64
}

var tiers = []tier{
	{maxRelevant: 3, step: 0.05, ceiling: 0.50},
	{maxRelevant: 6, step: 0.10, ceiling: 0.70},
	{maxRelevant: math.MaxInt, step: 0.15, ceiling: 0.85},
}

// Next applies the update rule to a single confidence value.
func Next(old float64, relevant int) float64 {
	if relevant <= 0 {
		return math.Max(decayFloor, old-decayStep)
	}
	for _, t := range tiers {
		if relevant <= t.maxRelevant {
			return math.Min(t.ceiling, old+t.step)
		}
	}
	return old
}

// Keywords derives the match terms for a record: its name (or fallback)
// with hyphens and underscores as spaces, plus the tool field if set.
func Keywords(meta frontmatter.Metadata, fallback string) []string {
	name := fallback
	if v, ok := meta.Get("name"); ok && strings.TrimSpace(v.String()) != "" {
		name = v.String()
	}
	name = strings.ToLower(name)
	name = strings.NewReplacer("-", " ", "_", " ").Replace(name)

	keywords := []string{name}
	if v, ok := meta.Get("tool"); ok {
		if tool := strings.ToLower(v.String()); tool != "" {
			keywords = append(keywords, tool)
		}
	}
	return keywords
}

// CountRelevant counts observations whose canonical text contains any keyword.
func CountRelevant(obs []observe.Observation, keywords []string) int {
	n := 0
	for _, o := range obs {
		if o.Contains(keywords) {
			n++
		}
	}
	return n
}

// Confidence reads the confidence field, falling back to def when it is
// missing or not numeric.
func Confidence(meta frontmatter.Metadata, def float64) float64 {
	v, ok := meta.Get("confidence")
	if !ok {
		return def
	}
	if f, ok := v.Float64(); ok {
		return f
	}
	return def
}

// Result describes one record's outcome in a pass.
type Result struct {
	Name          string
	Keywords      []string
	Relevant      int
	OldConfidence float64
	NewConfidence float64
	Evolved       bool
	Record        frontmatter.Record
}

// Text returns the re-encoded record.
func (r Result) Text() string {
	return r.Record.Encode()
}

// Evolve computes the next confidence for rec against obs. When the change
// exceeds the noise threshold the returned record carries the rounded
// confidence and a last_evolved timestamp; otherwise rec is returned as is.
func Evolve(rec frontmatter.Record, fallback string, obs []observe.Observation, now time.Time) Result {
	keywords := Keywords(rec.Meta, fallback)
	relevant := CountRelevant(obs, keywords)
	old := Confidence(rec.Meta, DefaultConfidence)
	next := Next(old, relevant)

	res := Result{
		Name:          displayName(rec.Meta, fallback),
		Keywords:      keywords,
		Relevant:      relevant,
		OldConfidence: old,
		NewConfidence: next,
		Record:        rec,
	}

	if math.Abs(next-old) <= changeEpsilon {
		return res
	}

	res.Evolved = true
	res.NewConfidence = round2(next)

	meta := rec.Meta.Clone()
	meta.Set("confidence", frontmatter.Float(res.NewConfidence))
	meta.Set("last_evolved", frontmatter.String(now.Format(TimestampLayout)))
	res.Record = frontmatter.Record{Meta: meta, Body: rec.Body}
	return res
}

func displayName(meta frontmatter.Metadata, fallback string) string {
	if v, ok := meta.Get("name"); ok && strings.TrimSpace(v.String()) != "" {
		return v.String()
	}
	return fallback
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
