package annotation

import (
	"context"
	"sort"
	"strings"
)

// stopwords excluded from keyword-derived tags.
var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "that": true,
	"this": true, "from": true, "our": true, "your": true, "are": true,
	"will": true, "has": true, "have": true, "its": true, "their": true,
}

// StaticProvider derives annotations locally without any external call. It is
// used for offline or simulated runs and shares the Provider contract: it
// always returns a usable result.
type StaticProvider struct {
	// MaxTags bounds the number of keyword tags; zero means 3.
	MaxTags int
}

// Annotate derives keyword tags from the most frequent long words of the
// description and summarizes by truncation.
func (p *StaticProvider) Annotate(ctx context.Context, description string) Result {
	maxTags := p.MaxTags
	if maxTags <= 0 {
		maxTags = 3
	}

	counts := make(map[string]int)
	var order []string
	for _, word := range strings.Fields(strings.ToLower(description)) {
		word = strings.Trim(word, ".,!?;:\"'()")
		if len(word) < 4 || stopwords[word] {
			continue
		}
		if counts[word] == 0 {
			order = append(order, word)
		}
		counts[word]++
	}

	// Most frequent first; first occurrence breaks ties.
	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})

	if len(order) > maxTags {
		order = order[:maxTags]
	}
	if order == nil {
		order = []string{}
	}

	return Result{
		Tags:    order,
		Summary: Truncate(description, SummaryLimit),
	}
}
