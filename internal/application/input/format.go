// Package input derives the display strings of the two linked amount fields and
// cleans up what the user types into them.
package input

import (
	"math"
	"strconv"
	"strings"

	"github.com/damon-houk/coin-exchange-widget/internal/domain/entity"
)

// DisplayPrecision is the number of fractional digits kept when formatting a value
const DisplayPrecision = 6

// FormatDisplayValue renders v with DisplayPrecision decimals and strips trailing zeros.
// Zero and non-finite values render as an empty field.
func FormatDisplayValue(v float64) string {
	if v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}

	s := strconv.FormatFloat(v, 'f', DisplayPrecision, 64)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	if s == "0" || s == "-0" {
		return ""
	}
	return s
}

// Displays returns the from-side and to-side strings for a snapshot.
// The from side shows the base amount, the to side shows amount * rate.
func Displays(state entity.ConversionState) (from, to string) {
	return FormatDisplayValue(state.Amount), FormatDisplayValue(state.Amount * state.Rate)
}
