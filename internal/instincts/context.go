package instincts

import (
	"fmt"
	"sort"
	"strings"
)

const (
	// DefaultContextConfidence is the lowest confidence worth injecting.
	DefaultContextConfidence = 0.5

	maxContextItems = 15
	maxSummaryRunes = 200
)

// Context renders the strongest instincts as a markdown block for session
// injection. Records below minConfidence are left out; at most 15 make the
// cut, highest confidence first, grouped by category. Returns "" when
// nothing qualifies.
func Context(all []Instinct, minConfidence float64) string {
	type rankedItem struct {
		name       string
		category   string
		summary    string
		confidence float64
	}

	var items []rankedItem
	for _, inst := range all {
		c := inst.Confidence(DefaultStatusConfidence)
		if c < minConfidence {
			continue
		}
		items = append(items, rankedItem{inst.Name(), inst.Category(), summarize(inst.Record.Body), c})
	}
	if len(items) == 0 {
		return ""
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].confidence != items[j].confidence {
			return items[i].confidence > items[j].confidence
		}
		return items[i].name < items[j].name
	})
	if len(items) > maxContextItems {
		items = items[:maxContextItems]
	}

	// Categories appear in the order of their strongest member.
	var order []string
	byCategory := map[string][]rankedItem{}
	for _, it := range items {
		if _, seen := byCategory[it.category]; !seen {
			order = append(order, it.category)
		}
		byCategory[it.category] = append(byCategory[it.category], it)
	}

	var b strings.Builder
	b.WriteString("<instincts>\n## Learned Instincts\n")
	for _, cat := range order {
		fmt.Fprintf(&b, "\n### %s\n", cat)
		for _, it := range byCategory[cat] {
			fmt.Fprintf(&b, "- **%s** (%.0f%%)", it.name, it.confidence*100)
			if it.summary != "" {
				b.WriteString(": ")
				b.WriteString(it.summary)
			}
			b.WriteByte('\n')
		}
	}
	b.WriteString("</instincts>")
	return b.String()
}

// summarize returns the first non-heading body line, shortened.
func summarize(body string) string {
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || line == "---" {
			continue
		}
		line = strings.TrimLeft(line, "-* ")
		if r := []rune(line); len(r) > maxSummaryRunes {
			line = string(r[:maxSummaryRunes]) + "..."
		}
		return line
	}
	return ""
}
