package analysis

import (
	"fmt"
	"math"
)

func sprintf(format string, args ...interface{}) string {
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}

// FormatP renders a p-value the way SPSS output prints it
func FormatP(p float64) string {
	switch {
	case math.IsNaN(p):
		return "-"
	case p < 0.001:
		return "< .001"
	}
	return trimLeadingZero(fmt.Sprintf("%.3f", p))
}

// PClause renders "p = .023" or "p < .001" for sentences
func PClause(p float64) string {
	f := FormatP(p)
	if f[0] == '<' {
		return "p " + f
	}
	return "p = " + f
}

// FormatStat renders a statistic to three decimals, "-" for undefined values
func FormatStat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "-"
	}
	return fmt.Sprintf("%.3f", v)
}

// FormatCell renders any table cell for text output
func FormatCell(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return "-"
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1e15 {
			return fmt.Sprintf("%.0f", x)
		}
		return FormatStat(x)
	case int:
		return fmt.Sprintf("%d", x)
	case string:
		return x
	case bool:
		if x {
			return "yes"
		}
		return "no"
	}
	return fmt.Sprintf("%v", v)
}

func trimLeadingZero(s string) string {
	if len(s) > 1 && s[0] == '0' && s[1] == '.' {
		return s[1:]
	}
	if len(s) > 2 && s[0] == '-' && s[1] == '0' && s[2] == '.' {
		return "-" + s[2:]
	}
	return s
}
