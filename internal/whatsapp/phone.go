package whatsapp

import "strings"

// NormalizePhone rewrites a raw phone number into the international
// Indonesian form used as a chat id. Non-digits are stripped, then a
// leading "0" is replaced with "62" and a bare leading "8" gets the "62"
// prefix. Numbers already starting with "62" pass through unchanged.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()

	switch {
	case strings.HasPrefix(cleaned, "62"):
		return cleaned
	case strings.HasPrefix(cleaned, "0"):
		return "62" + cleaned[1:]
	case strings.HasPrefix(cleaned, "8"):
		return "62" + cleaned
	}
	return cleaned
}

// ChatID converts a normalized phone into the provider's chat identifier.
func ChatID(normalizedPhone string) string {
	return normalizedPhone + "@c.us"
}
