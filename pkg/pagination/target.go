package pagination

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

// ParseTargetCount reads a user-supplied row count. Anything that is not a
// non-negative number, including empty input, yields 0. Fractional input is
// truncated toward zero; numbers beyond the int range become math.MaxInt,
// which selects the whole collection.
func ParseTargetCount(raw string) int {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0
	}
	if n, err := strconv.Atoi(s); err == nil {
		return max(n, 0)
	}
	// Integers past the int range fail Atoi but still parse here.
	f, err := strconv.ParseFloat(s, 64)
	if errors.Is(err, strconv.ErrRange) && math.IsInf(f, 1) {
		return math.MaxInt
	}
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0
	}
	if f >= float64(math.MaxInt) {
		return math.MaxInt
	}
	return int(f)
}
