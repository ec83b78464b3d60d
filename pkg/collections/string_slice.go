package collections

import "strings"

// StringSlice is a repeatable flag.Value.  Each occurrence may also hold a
// comma-separated list; blank items are dropped.
type StringSlice []string

func (s *StringSlice) String() string {
	if s == nil {
		return ""
	}
	return strings.Join(*s, ",")
}

// Set implements flag.Value.
func (s *StringSlice) Set(value string) error {
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			*s = append(*s, item)
		}
	}
	return nil
}
