package parse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var numericDOBRe = regexp.MustCompile(`^(\d{1,2})[\s/.\-](\d{1,2})[\s/.\-](\d{4})$`)

var dobLayouts = []string{
	"2 January 2006",
	"2 Jan 2006",
	"January 2 2006",
	"Jan 2 2006",
	DateLayout,
}

// NormalizeDOB turns a numeric date of birth into "15 September 2005" so it
// can be read back naturally. Anything else is returned trimmed.
func NormalizeDOB(s string) string {
	cleaned := strings.TrimSpace(ordinalRe.ReplaceAllString(s, "$1"))
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	if m := numericDOBRe.FindStringSubmatch(cleaned); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if month >= 1 && month <= 12 && day >= 1 && day <= 31 {
			return fmt.Sprintf("%d %s %d", day, time.Month(month).String(), year)
		}
	}
	return cleaned
}

// DOBToDBFormat converts any accepted date of birth form into the stored
// DD-MM-YYYY layout.
func DOBToDBFormat(s string) string {
	normalized := strings.Join(strings.Fields(NormalizeDOB(s)), " ")
	for _, layout := range dobLayouts {
		if t, err := time.Parse(layout, normalized); err == nil {
			return t.Format(DOBLayout)
		}
	}
	return strings.TrimSpace(s)
}
