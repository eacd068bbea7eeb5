package util

import (
	"regexp"
	"strconv"
	"strings"
)

var stockNullTokens = map[string]struct{}{
	"":     {},
	"-":    {},
	"NIL":  {},
	"NILL": {},
	"NULL": {},
	"NA":   {},
	"N/A":  {},
	"NONE": {},
}

var (
	reThousandDots   = regexp.MustCompile(`^\d{1,3}(?:\.\d{3})+$`)
	reThousandCommas = regexp.MustCompile(`^\d{1,3}(?:,\d{3})+$`)
)

// ParseStock converts any cell value into a non-negative stock count. Null
// tokens, garbage and negative values all map to zero; thousands separators
// are stripped. It never fails.
func ParseStock(value any) int {
	switch v := value.(type) {
	case nil:
		return 0
	case int:
		return clampStock(v)
	case int64:
		return clampStock(int(v))
	case float64:
		return clampStock(int(v))
	case string:
		return parseStockString(v)
	default:
		return 0
	}
}

func parseStockString(raw string) int {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = strings.ReplaceAll(s, " ", " ")
	if _, null := stockNullTokens[s]; null {
		return 0
	}

	compact := strings.ReplaceAll(s, " ", "")
	switch {
	case reThousandDots.MatchString(compact):
		compact = strings.ReplaceAll(compact, ".", "")
	case reThousandCommas.MatchString(compact):
		compact = strings.ReplaceAll(compact, ",", "")
	default:
		compact = strings.ReplaceAll(compact, ",", "")
	}

	if parsed, err := strconv.Atoi(compact); err == nil {
		return clampStock(parsed)
	}
	if parsed, err := strconv.ParseFloat(compact, 64); err == nil {
		return clampStock(int(parsed))
	}
	return 0
}

func clampStock(v int) int {
	if v < 0 {
		return 0
	}
	return v
}
