package policy

import "strings"

// Refusal is returned to the user instead of contacting any provider when a
// question matches the denylist.
const Refusal = "I can't provide political opinions or voting recommendations. " +
	"I'm here to provide factual election information like dates, requirements, and processes."

// DefaultKeywords are phrases associated with requests for partisan opinion.
// Order matters: Check reports the first match.
var DefaultKeywords = []string{
	"who should i vote for",
	"who to vote for",
	"best candidate",
	"worst candidate",
	"political opinion",
	"vote recommendation",
	"endorse",
	"support candidate",
	"political advice",
	"bias",
	"partisan",
	"corrupt",
	"illegal voting",
	"vote buying",
	"electoral fraud",
	"rigged election",
	"manipulation",
	"fake votes",
}

// Filter screens user text against a fixed denylist.
type Filter struct {
	keywords []string
	lowered  []string
}

// NewFilter returns a Filter over keywords, or over DefaultKeywords when none
// are given. Blank entries are ignored.
func NewFilter(keywords ...string) *Filter {
	if len(keywords) == 0 {
		keywords = DefaultKeywords
	}
	f := &Filter{}
	for _, k := range keywords {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		f.keywords = append(f.keywords, k)
		f.lowered = append(f.lowered, strings.ToLower(k))
	}
	return f
}

// Check returns the first denylisted phrase contained in text, matched
// case-insensitively. ok is false when text is clear.
func (f *Filter) Check(text string) (keyword string, ok bool) {
	if f == nil || text == "" {
		return "", false
	}
	lower := strings.ToLower(text)
	for i, k := range f.lowered {
		if strings.Contains(lower, k) {
			return f.keywords[i], true
		}
	}
	return "", false
}

// Keywords returns a copy of the denylist in match order.
func (f *Filter) Keywords() []string {
	return append([]string(nil), f.keywords...)
}
