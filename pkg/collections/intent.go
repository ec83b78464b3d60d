package collections

import "strings"

// Intent is a value that is either wanted or, when written with a leading
// '-', unwanted.  A leading '+' is accepted and ignored.
type Intent struct {
	Value string
	Want  bool
}

// ParseIntent parses a value such as "-java/experimental".
func ParseIntent(value string) *Intent {
	value = strings.TrimSpace(value)
	switch {
	case strings.HasPrefix(value, "-"):
		return &Intent{Value: strings.TrimSpace(value[1:]), Want: false}
	case strings.HasPrefix(value, "+"):
		return &Intent{Value: strings.TrimSpace(value[1:]), Want: true}
	default:
		return &Intent{Value: value, Want: true}
	}
}

// ParseIntents parses the values in order, dropping blank ones.
func ParseIntents(values []string) []*Intent {
	intents := make([]*Intent, 0, len(values))
	for _, v := range values {
		if intent := ParseIntent(v); intent.Value != "" {
			intents = append(intents, intent)
		}
	}
	return intents
}

// String returns the prefixed form of the intent.
func (i *Intent) String() string {
	if i.Want {
		return i.Value
	}
	return "-" + i.Value
}
