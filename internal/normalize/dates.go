package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var spanishMonths = map[string]time.Month{
	"ene": time.January, "enero": time.January,
	"feb": time.February, "febrero": time.February,
	"mar": time.March, "marzo": time.March,
	"abr": time.April, "abril": time.April,
	"may": time.May, "mayo": time.May,
	"jun": time.June, "junio": time.June,
	"jul": time.July, "julio": time.July,
	"ago": time.August, "agosto": time.August,
	"sep": time.September, "sept": time.September, "septiembre": time.September,
	"set": time.September, "setiembre": time.September,
	"oct": time.October, "octubre": time.October,
	"nov": time.November, "noviembre": time.November,
	"dic": time.December, "diciembre": time.December,
}

// Day, optional "de"/"del", month name or abbreviation (optional dot), optional "de"/"del", year.
var reSpanishDate = regexp.MustCompile(`(?i)(\d{1,2})\s*(?:(?:de|del)\s+)?` +
	`(ene(?:ro)?|feb(?:rero)?|mar(?:zo)?|abr(?:il)?|may(?:o)?|jun(?:io)?|jul(?:io)?|ago(?:sto)?|` +
	`sept(?:iembre)?|sep|set(?:iembre)?|oct(?:ubre)?|nov(?:iembre)?|dic(?:iembre)?)\.?\s*` +
	`(?:(?:de|del)\s+)?(\d{4})`)

// LetterDate finds a Spanish date such as "Lima, 3 de setiembre de 2024" inside raw and
// returns it as dd/mm/yyyy. ok is false when no valid calendar date is found.
func LetterDate(raw string) (string, bool) {
	m := reSpanishDate.FindStringSubmatch(raw)
	if m == nil {
		return "", false
	}
	day, err := strconv.Atoi(m[1])
	if err != nil {
		return "", false
	}
	month, ok := spanishMonths[strings.ToLower(m[2])]
	if !ok {
		return "", false
	}
	year, err := strconv.Atoi(m[3])
	if err != nil {
		return "", false
	}

	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || t.Month() != month {
		return "", false
	}
	return fmt.Sprintf("%02d/%02d/%04d", day, int(month), year), true
}
