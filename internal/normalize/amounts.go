// Package normalize turns raw extracted text into typed values: amounts read from the
// guarantee table and the letter date.
package normalize

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/Lllllllleong/bankguaranteeflow/internal/models"
)

var (
	// ErrTooFewRows is returned when the grid has no data row below the header row.
	ErrTooFewRows = errors.New("table needs a title row, a header row and at least one data row")
	// ErrColumnCount is returned when column reduction does not leave exactly three amount columns.
	ErrColumnCount = errors.New("unexpected number of amount columns")
	// ErrNoAmounts is returned when none of the three amounts could be parsed.
	ErrNoAmounts = errors.New("no parsable amount in the first data row")
)

var (
	reCurrencyPrefix = regexp.MustCompile(`(?i)^(S/\.?|SI|S)\s*`)
	reAmountNoise    = regexp.MustCompile(`[^0-9,.\-]`)
	reDigit          = regexp.MustCompile(`\d`)
)

// AmountColumns is the number of columns expected after reduction:
// disbursed, reduced and total, in that order.
const AmountColumns = 3

// AmountNormalizer reduces a guarantee table to its amount columns and parses the first row.
type AmountNormalizer struct {
	// Keywords select the headers to keep (case-insensitive substring).
	Keywords []string
	// DropColumns are headers removed before keyword matching (exact match after trimming).
	DropColumns []string
}

// NewAmountNormalizer returns a normalizer using the given header filters.
func NewAmountNormalizer(keywords, dropColumns []string) *AmountNormalizer {
	return &AmountNormalizer{Keywords: keywords, DropColumns: dropColumns}
}

// Normalize reads the grid with row 2 as header and rows 3+ as data, keeps the amount
// columns and returns the parsed first data row.
func (n *AmountNormalizer) Normalize(grid [][]string) (models.FinancialMetadata, error) {
	if len(grid) < 3 {
		return models.FinancialMetadata{}, errors.Wrapf(ErrTooFewRows, "got %d rows", len(grid))
	}
	header := grid[1]
	data := make([][]string, 0, len(grid)-2)
	for _, row := range grid[2:] {
		data = append(data, fitRow(row, len(header)))
	}

	cols := n.amountColumns(header, data)
	if len(cols) != AmountColumns {
		names := make([]string, 0, len(cols))
		for _, c := range cols {
			names = append(names, header[c])
		}
		return models.FinancialMetadata{}, errors.Wrapf(ErrColumnCount, "want %d, got %d: %q", AmountColumns, len(cols), names)
	}

	first := data[0]
	out := models.FinancialMetadata{
		DisbursedAmount: parsePtr(first[cols[0]]),
		ReducedAmount:   parsePtr(first[cols[1]]),
		TotalAmount:     parsePtr(first[cols[2]]),
	}
	if out.DisbursedAmount == nil && out.ReducedAmount == nil && out.TotalAmount == nil {
		return out, errors.Wrapf(ErrNoAmounts, "row %q", first)
	}
	return out, nil
}

// amountColumns returns the indexes of the kept columns in header order.
func (n *AmountNormalizer) amountColumns(header []string, data [][]string) []int {
	var kept []int
	for i, h := range header {
		name := strings.TrimSpace(h)
		if n.dropped(name) || !n.matches(name) {
			continue
		}
		if n.duplicatesKept(i, kept, data) {
			continue
		}
		kept = append(kept, i)
	}
	return kept
}

func (n *AmountNormalizer) dropped(name string) bool {
	for _, d := range n.DropColumns {
		if name == d {
			return true
		}
	}
	return false
}

func (n *AmountNormalizer) matches(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range n.Keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// duplicatesKept reports whether column i has the same content as an already kept column.
func (n *AmountNormalizer) duplicatesKept(i int, kept []int, data [][]string) bool {
	for _, k := range kept {
		same := true
		for _, row := range data {
			if strings.TrimSpace(row[i]) != strings.TrimSpace(row[k]) {
				same = false
				break
			}
		}
		if same {
			return true
		}
	}
	return false
}

func fitRow(row []string, width int) []string {
	out := make([]string, width)
	copy(out, row)
	return out
}

func parsePtr(s string) *float64 {
	v, ok := ParseAmount(s)
	if !ok {
		return nil
	}
	return &v
}

// ParseAmount parses a locale-formatted amount such as "S/ 1,234.56", "1.234,56" or "(500.00)".
// When both separators are present the rightmost one is the decimal separator; a lone comma is
// decimal only when followed by one or two digits. ok is false when no number can be read.
func ParseAmount(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	s = reCurrencyPrefix.ReplaceAllString(s, "")

	negative := strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")")
	if negative {
		s = s[1 : len(s)-1]
	}

	s = reAmountNoise.ReplaceAllString(s, "")
	if !reDigit.MatchString(s) {
		return 0, false
	}

	comma, dot := strings.LastIndex(s, ","), strings.LastIndex(s, ".")
	switch {
	case comma >= 0 && dot >= 0:
		if dot > comma {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.ReplaceAll(s, ",", ".")
		}
	case comma >= 0:
		parts := strings.Split(s, ",")
		if len(parts) == 2 && (len(parts[1]) == 1 || len(parts[1]) == 2) {
			s = strings.ReplaceAll(s, ",", ".")
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	if negative {
		v = -v
	}
	return v, true
}

// FormatAmount renders an amount for persistence, nil stays empty.
func FormatAmount(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
