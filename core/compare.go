package core

import (
	"cmp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	DateLayout      = "2006-01-02"
	TimestampLayout = "2006-01-02 15:04:05"
)

// maxExponent bounds the decimal exponent accepted for INT column values.
const maxExponent = 400

// Values of a column sort in three tiers: the empty value (NULL) first, then
// values that parse as the column type, then values that do not, which fall
// back to byte order. The result is a total order for every column type.
const (
	rankNull = iota
	rankTyped
	rankRaw
)

// CompareValues compares two stored column values of type t.
func CompareValues(t ColumnType, a, b string) int {
	ra, rb := rank(t, a), rank(t, b)
	if ra != rb {
		return cmp.Compare(ra, rb)
	}
	switch ra {
	case rankNull:
		return 0
	case rankRaw:
		return strings.Compare(a, b)
	}

	switch t {
	case IntType:
		x, xerr := strconv.ParseInt(a, 10, 64)
		y, yerr := strconv.ParseInt(b, 10, 64)
		if xerr == nil && yerr == nil {
			return cmp.Compare(x, y)
		}
		// mixed literals compare as exact decimals
		dx, _ := parseDecimal(a)
		dy, _ := parseDecimal(b)
		return dx.Cmp(dy)
	case FloatType:
		x, _ := strconv.ParseFloat(a, 64)
		y, _ := strconv.ParseFloat(b, 64)
		return cmp.Compare(x, y)
	case BoolType:
		x, _ := strconv.ParseBool(a)
		y, _ := strconv.ParseBool(b)
		return cmp.Compare(boolRank(x), boolRank(y))
	case DateType, TimestampType:
		x, _ := parseTime(t, a)
		y, _ := parseTime(t, b)
		return x.Compare(y)
	default:
		return strings.Compare(a, b)
	}
}

// ValidValue reports whether v is empty or parses as type t.
func ValidValue(t ColumnType, v string) bool {
	return rank(t, v) != rankRaw
}

func rank(t ColumnType, v string) int {
	if v == "" {
		return rankNull
	}
	var err error
	switch t {
	case IntType:
		if _, err = strconv.ParseInt(v, 10, 64); err != nil {
			if _, ok := parseDecimal(v); ok {
				err = nil
			}
		}
	case FloatType:
		_, err = strconv.ParseFloat(v, 64)
	case BoolType:
		_, err = strconv.ParseBool(v)
	case DateType, TimestampType:
		_, err = parseTime(t, v)
	}
	if err != nil {
		return rankRaw
	}
	return rankTyped
}

// parseDecimal parses a finite decimal literal such as "12", "1.5" or "2e3".
// Hex literals and exponents beyond float64 range are rejected.
func parseDecimal(v string) (decimal.Decimal, bool) {
	if strings.ContainsAny(v, "xX") {
		return decimal.Decimal{}, false
	}
	if _, err := strconv.ParseFloat(v, 64); err != nil {
		return decimal.Decimal{}, false
	}
	if i := strings.IndexAny(v, "eE"); i >= 0 {
		exp, err := strconv.Atoi(v[i+1:])
		if err != nil || exp < -maxExponent || exp > maxExponent {
			return decimal.Decimal{}, false
		}
	}
	d, err := decimal.NewFromString(v)
	return d, err == nil
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}

func parseTime(t ColumnType, v string) (time.Time, error) {
	if t == DateType {
		return time.Parse(DateLayout, v)
	}
	if ts, err := time.Parse(time.RFC3339Nano, v); err == nil {
		return ts, nil
	}
	if ts, err := time.Parse(TimestampLayout, v); err == nil {
		return ts, nil
	}
	return time.Parse(DateLayout, v)
}
