package urlresolver

import (
	"regexp"
	"strings"
)

// SlugFunc derives a URL slug from a plan name.
type SlugFunc func(planName string) string

// slugStrategies maps provider names (lowercased) to their specialized slug
// derivation. Providers not listed here use the generic slugifier.
var slugStrategies = map[string]SlugFunc{
	"ice": quantityUnitSlug,
}

// SlugFor returns the slug strategy for a provider, falling back to the
// generic slugifier.
func SlugFor(provider string) SlugFunc {
	if fn, ok := slugStrategies[strings.ToLower(provider)]; ok {
		return fn
	}
	return Slugify
}

var (
	nonWordRe      = regexp.MustCompile(`[^a-z0-9-]+`)
	hyphenRunRe    = regexp.MustCompile(`-{2,}`)
	quantityUnitRe = regexp.MustCompile(`(?i)(\d+)\s*(gb|mb|tb|min|kr)`)

	nativeReplacer = strings.NewReplacer(
		"æ", "ae", "ø", "o", "å", "a",
		"ä", "a", "ö", "o", "ü", "u",
		"é", "e", "è", "e", "ê", "e",
		"á", "a", "à", "a", "â", "a",
		"ó", "o", "ò", "o", "í", "i", "ì", "i",
		"ß", "ss",
	)
)

// Slugify is the generic slugifier: lowercase, native/accented characters to
// ASCII, whitespace to hyphens, non-word characters stripped.
func Slugify(planName string) string {
	s := strings.ToLower(strings.TrimSpace(planName))
	s = nativeReplacer.Replace(s)
	s = strings.Join(strings.Fields(s), "-")
	s = nonWordRe.ReplaceAllString(s, "")
	s = hyphenRunRe.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// quantityUnitSlug extracts a numeric quantity plus unit out of a plan name,
// e.g. "Ice Smart 20GB" becomes "20-gb". Falls back to the generic slugifier
// when no quantity is present.
func quantityUnitSlug(planName string) string {
	match := quantityUnitRe.FindStringSubmatch(planName)
	if match == nil {
		return Slugify(planName)
	}
	return match[1] + "-" + strings.ToLower(match[2])
}
