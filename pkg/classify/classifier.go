// Package classify assigns sensitivity tiers to configuration keys and
// produces log-safe representations of their values.
//
// Classification is purely syntactic: it matches keywords in the key, never
// the value, so it is cheap enough to run on every access. Keyword sets are
// checked in order of decreasing sensitivity so that a key matching multiple
// sets lands in the most sensitive tier.
package classify

import "strings"

// Tier is the sensitivity classification of a configuration key
type Tier string

const (
	TierPublic       Tier = "PUBLIC"
	TierInternal     Tier = "INTERNAL"
	TierConfidential Tier = "CONFIDENTIAL"
)

// RedactionMarker replaces confidential values in all log-safe output
const RedactionMarker = "***REDACTED***"

// tierRule pairs a tier with its trigger keywords. Rules are evaluated
// top-down; the first match wins.
type tierRule struct {
	tier     Tier
	keywords []string
}

var rules = []tierRule{
	{TierConfidential, []string{"password", "token", "key", "secret", "credential"}},
	{TierInternal, []string{"host", "port", "url", "path"}},
}

// Classify returns the sensitivity tier for a configuration key.
// An empty key classifies as PUBLIC.
func Classify(key string) Tier {
	lower := strings.ToLower(key)
	for _, rule := range rules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.tier
			}
		}
	}
	return TierPublic
}

// Sanitize transforms a value for safe display according to its tier.
//
// CONFIDENTIAL values are replaced wholesale with RedactionMarker.
// INTERNAL values reveal roughly 10% of characters at each end (at least
// one) and mask the rest. PUBLIC values pass through unchanged.
func Sanitize(value string, tier Tier) string {
	switch tier {
	case TierConfidential:
		return RedactionMarker
	case TierInternal:
		return partialMask(value)
	default:
		return value
	}
}

// partialMask reveals the first and last reveal-window characters of v and
// masks everything between. Strings of two characters or fewer keep at most
// one visible character on each end with nothing left to mask.
func partialMask(v string) string {
	runes := []rune(v)
	n := len(runes)
	if n == 0 {
		return ""
	}

	reveal := n / 10
	if reveal < 1 {
		reveal = 1
	}
	if 2*reveal >= n {
		// Too short for a window on both sides; show the ends only.
		if n == 1 {
			return string(runes[0:1])
		}
		return string(runes[0]) + strings.Repeat("*", n-2) + string(runes[n-1])
	}

	masked := strings.Repeat("*", n-2*reveal)
	return string(runes[:reveal]) + masked + string(runes[n-reveal:])
}
