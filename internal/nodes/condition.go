package nodes

import (
	"maps"
	"slices"
	"strconv"
	"strings"
)

var operators = map[string]func(input, value string) bool{
	"==":         func(a, b string) bool { return compare(a, b) == 0 },
	"!=":         func(a, b string) bool { return compare(a, b) != 0 },
	">":          func(a, b string) bool { return compare(a, b) > 0 },
	">=":         func(a, b string) bool { return compare(a, b) >= 0 },
	"<":          func(a, b string) bool { return compare(a, b) < 0 },
	"<=":         func(a, b string) bool { return compare(a, b) <= 0 },
	"contains":   strings.Contains,
	"startswith": strings.HasPrefix,
	"endswith":   strings.HasSuffix,
}

func validOperator(op string) bool {
	_, ok := operators[strings.ToLower(op)]
	return ok
}

// compare orders two operands numerically when both parse as numbers and
// lexically otherwise.
func compare(a, b string) int {
	fa, errA := strconv.ParseFloat(strings.TrimSpace(a), 64)
	fb, errB := strconv.ParseFloat(strings.TrimSpace(b), 64)
	if errA == nil && errB == nil {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	}
	return strings.Compare(a, b)
}

// evaluate returns the first key, in sorted order, whose condition holds for
// input, or the empty string when none match.
func (c ConditionalConfig) evaluate(input string) string {
	for _, key := range slices.Sorted(maps.Keys(c.Conditionals)) {
		cond := c.Conditionals[key]
		if op, ok := operators[strings.ToLower(cond.Operator)]; ok && op(input, cond.Value) {
			return key
		}
	}
	return ""
}
