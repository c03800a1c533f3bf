package math

import (
	"fmt"
	"math"
	"strconv"
)

// Format formats a float with two digit precision.
func Format(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}

// Round rounds the value to the given number of decimals.
func Round(f float64, decimals int) float64 {
	scale := math.Pow10(decimals)
	return math.Round(f*scale) / scale
}

// Mean returns the arithmetic mean of the given values.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0.0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Op is a comparison operator for Compare.
type Op string

const (
	GT  Op = ">"
	GTE Op = ">="
	EQ  Op = "=="
	LT  Op = "<"
	LTE Op = "<="
)

// Compare evaluates 'a op b' with a percentage tolerance.
// If the strict comparison fails but a and b differ by no more than
// tolerancePercent percent of b, the comparison still holds.
func Compare(a, b float64, op Op, tolerancePercent float64) (bool, error) {
	if a <= 0 || b <= 0 {
		return false, fmt.Errorf("compare expects positive operands: %f, %f", a, b)
	}
	if tolerancePercent < 0 {
		return false, fmt.Errorf("negative tolerance: %f", tolerancePercent)
	}
	var res bool
	switch op {
	case GT:
		res = a > b
	case GTE:
		res = a >= b
	case EQ:
		res = a == b
	case LT:
		res = a < b
	case LTE:
		res = a <= b
	default:
		return false, fmt.Errorf("unsupported operator: %s", op)
	}
	if res {
		return true, nil
	}
	if tolerancePercent <= 0 {
		return false, nil
	}
	return 100*math.Abs(a-b)/b <= tolerancePercent, nil
}
