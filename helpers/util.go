package helpers

import (
	"regexp"
	"strconv"
	"strings"
)

var priceRe = regexp.MustCompile(`[0-9][0-9 .,]*`)

// ParsePrice extracts a numeric monthly price from a localized price string
// such as "299,- kr/md", "1 099 kr" or "249.50". Returns 0 when no numeric
// part is present.
func ParsePrice(s string) float64 {
	match := priceRe.FindString(s)
	if match == "" {
		return 0
	}

	// Strip thousand separators (spaces and dots followed by 3 digits),
	// then normalize the decimal comma.
	cleaned := strings.ReplaceAll(match, " ", "")
	if idx := strings.LastIndex(cleaned, ","); idx != -1 && len(cleaned)-idx-1 <= 2 {
		cleaned = cleaned[:idx] + "." + cleaned[idx+1:]
	}
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	if strings.Count(cleaned, ".") > 1 {
		last := strings.LastIndex(cleaned, ".")
		cleaned = strings.ReplaceAll(cleaned[:last], ".", "") + cleaned[last:]
	}

	price, err := strconv.ParseFloat(strings.TrimSuffix(cleaned, "."), 64)
	if err != nil {
		return 0
	}
	return price
}
