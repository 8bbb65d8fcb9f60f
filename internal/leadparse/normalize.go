package leadparse

import "strings"

// NormalizePhone reduces a raw phone substring to its digits, keeping a
// leading "+" only when the trimmed input starts with one. Returns "" when the
// input holds no digits.
func NormalizePhone(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}

	var sb strings.Builder
	sb.Grow(len(trimmed) + 1)
	for _, r := range trimmed {
		if r >= '0' && r <= '9' {
			sb.WriteRune(r)
		}
	}
	digits := sb.String()
	if digits == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, "+") {
		return "+" + digits
	}
	return digits
}

var schemes = []string{"https://", "http://"}

// NormalizeWebsite lower-cases a raw URL substring and strips the scheme, a
// leading "www." and trailing slashes. Returns "" when nothing remains.
func NormalizeWebsite(raw string) string {
	v := strings.ToLower(strings.TrimSpace(raw))

	// Prefixes can hide each other ("www.http://..."), so strip until stable.
	for {
		before := v
		for _, s := range schemes {
			v = strings.TrimPrefix(v, s)
		}
		v = strings.TrimPrefix(v, "www.")
		if v == before {
			break
		}
	}

	return strings.TrimRight(v, "/")
}
