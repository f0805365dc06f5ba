package matchdomain

import "strings"

// NoFlag is rendered when a player's country is absent or invalid.
const NoFlag = "🏳️"

// regionalIndicatorOffset maps 'A' to U+1F1E6 REGIONAL INDICATOR SYMBOL LETTER A.
const regionalIndicatorOffset = 127397

// CountryFlag renders a two-letter ISO country code as a flag emoji.
func CountryFlag(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != 2 {
		return NoFlag
	}
	var b strings.Builder
	for i := 0; i < len(code); i++ {
		c := code[i]
		if c < 'A' || c > 'Z' {
			return NoFlag
		}
		b.WriteRune(rune(c) + regionalIndicatorOffset)
	}
	return b.String()
}
