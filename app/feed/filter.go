package feed

import (
	"strings"

	"github.com/feedtuner/feedtuner/app/prefs"
	"github.com/feedtuner/feedtuner/app/topic"
)

// DefaultBoostUnit is the relevance delta contributed by each distinct
// preferred topic found in an item.
const DefaultBoostUnit = 10

// Filter decides visibility and relevance adjustment for content items
// against a preference snapshot. Stateless apart from the boost unit;
// the same item and snapshot always yield the same decision.
type Filter struct {
	boostUnit int
}

func NewFilter(boostUnit int) *Filter {
	if boostUnit <= 0 {
		boostUnit = DefaultBoostUnit
	}
	return &Filter{boostUnit: boostUnit}
}

// Run evaluates one item. Blocked topics are checked first and always
// win: a single match hides the item regardless of any preferred
// matches. Otherwise the delta is boostUnit per distinct preferred
// topic found. Empty sets leave every item visible with zero delta.
func (f *Filter) Run(item ContentItem, snapshot prefs.Snapshot) Decision {
	tokens := searchableTokens(item)

	for _, blocked := range snapshot.Blocked {
		if matchTokens(tokens, blocked.Words()) {
			return Decision{
				Item:      item,
				Visible:   false,
				BlockedBy: blocked.String(),
			}
		}
	}

	matchCount := 0
	for _, preferred := range snapshot.Preferred {
		if matchTokens(tokens, preferred.Words()) {
			matchCount++
		}
	}

	return Decision{
		Item:           item,
		Visible:        true,
		RelevanceDelta: matchCount * f.boostUnit,
	}
}

// searchableTokens builds the item's matchable word sequence from
// title, description and tags, normalized the same way topics are.
func searchableTokens(item ContentItem) []string {
	var b strings.Builder
	b.WriteString(item.Title)
	b.WriteByte(' ')
	b.WriteString(item.Description)
	for _, tag := range item.Tags {
		b.WriteByte(' ')
		b.WriteString(tag)
	}
	return topic.Tokenize(topic.Normalize(b.String()))
}

// matchTokens reports whether words appears as a contiguous run inside
// tokens. Matching on whole tokens is what makes the check
// word-boundary aware: a blocked "asmr" matches the token "asmr" but
// never "asmrookie", and a multi-word topic matches across space- or
// hyphen-joined phrases because both tokenize identically.
func matchTokens(tokens []string, words []string) bool {
	if len(words) == 0 || len(words) > len(tokens) {
		return false
	}

	for i := 0; i+len(words) <= len(tokens); i++ {
		matched := true
		for j, w := range words {
			if tokens[i+j] != w {
				matched = false
				break
			}
		}
		if matched {
			return true
		}
	}

	return false
}
