package submission

import "strings"

const hashtagSeparator = ","

// NormalizeHashtags splits each element on commas, trims whitespace and drops
// empties. The result is never nil.
func NormalizeHashtags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, raw := range tags {
		for _, part := range strings.Split(raw, hashtagSeparator) {
			if t := strings.TrimSpace(part); t != "" {
				out = append(out, t)
			}
		}
	}
	return out
}

// JoinHashtags returns the canonical persisted form.
func JoinHashtags(tags []string) string {
	return strings.Join(NormalizeHashtags(tags), hashtagSeparator)
}

// SplitHashtags parses the persisted form.
func SplitHashtags(joined string) []string {
	return NormalizeHashtags([]string{joined})
}
