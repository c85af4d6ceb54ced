package finance

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Amount shorthand accepted from operators typing on a phone keypad:
//
//	2500000   1.2   850k   3.5k   750m   1.2m   1b
//	۲٫۵m      ١٢٠٠٠٠   2,500,000   -300k
//
// A space before the suffix, more than one dot or an empty value is rejected.

var digitNormalizer = strings.NewReplacer(
	"۰", "0", "۱", "1", "۲", "2", "۳", "3", "۴", "4",
	"۵", "5", "۶", "6", "۷", "7", "۸", "8", "۹", "9",
	"٠", "0", "١", "1", "٢", "2", "٣", "3", "٤", "4",
	"٥", "5", "٦", "6", "٧", "7", "٨", "8", "٩", "9",
	"٫", ".", ",", "", "٬", "",
)

var suffixFactors = map[byte]decimal.Decimal{
	'k': decimal.NewFromInt(1_000),
	'm': decimal.NewFromInt(1_000_000),
	'b': decimal.NewFromInt(1_000_000_000),
}

// ParseAmount parses a money amount in shorthand form.
func ParseAmount(raw string) (decimal.Decimal, error) {
	return parseShorthand("amount", raw)
}

// ParseCount parses a count in the same grammar and rounds it to a whole number.
func ParseCount(raw string) (int, error) {
	v, err := parseShorthand("count", raw)
	if err != nil {
		return 0, err
	}
	r := v.Round(0)
	if r.GreaterThan(maxCount) || r.LessThan(minCount) {
		return 0, invalid("count", raw, "too large")
	}
	return int(r.IntPart()), nil
}

var (
	maxCount = decimal.NewFromInt(math.MaxInt)
	minCount = decimal.NewFromInt(math.MinInt)
)

func parseShorthand(field, raw string) (decimal.Decimal, error) {
	s := strings.ToLower(digitNormalizer.Replace(strings.TrimSpace(raw)))
	if s == "" {
		return decimal.Zero, invalid(field, raw, "empty value")
	}

	factor := decimal.NewFromInt(1)
	if f, ok := suffixFactors[s[len(s)-1]]; ok {
		factor = f
		s = s[:len(s)-1]
	}

	core, negative := s, false
	if core != "" && (core[0] == '+' || core[0] == '-') {
		negative = core[0] == '-'
		core = core[1:]
	}
	if core == "" {
		return decimal.Zero, invalid(field, raw, "missing number")
	}

	dots, digits := 0, 0
	for _, c := range core {
		switch {
		case c == '.':
			dots++
		case c >= '0' && c <= '9':
			digits++
		default:
			return decimal.Zero, invalid(field, raw, "use digits with an optional k, m or b suffix, e.g. 850k, 1.2m")
		}
	}
	if dots > 1 || digits == 0 {
		return decimal.Zero, invalid(field, raw, "malformed number")
	}

	if core[0] == '.' {
		core = "0" + core
	}
	if core[len(core)-1] == '.' {
		core += "0"
	}
	v, err := decimal.NewFromString(core)
	if err != nil {
		return decimal.Zero, invalid(field, raw, "malformed number")
	}
	if negative {
		v = v.Neg()
	}
	return v.Mul(factor), nil
}
