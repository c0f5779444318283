package coercer

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"statlab/domain/dataset"
)

// TypeCoercer converts raw upload values into numbers or category labels
type TypeCoercer struct {
	config CoercionConfig
}

// CoercionConfig defines the coercion thresholds and rules
type CoercionConfig struct {
	NumericThreshold float64 `json:"numeric_threshold"` // share of values that must parse as numbers to infer scale
	MaxCategories    int     `json:"max_categories"`    // distinct numeric values at or below this infer ordinal
	FoldCase         bool    `json:"fold_case"`         // lower-case category labels
}

// DefaultCoercionConfig returns sensible defaults
func DefaultCoercionConfig() CoercionConfig {
	return CoercionConfig{
		NumericThreshold: 0.8,
		MaxCategories:    0,
		FoldCase:         false,
	}
}

// NewTypeCoercer creates a coercer with the given config
func NewTypeCoercer(config CoercionConfig) *TypeCoercer {
	return &TypeCoercer{config: config}
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// Numeric returns the numeric reading of a raw value; ok is false when it is missing
func (c *TypeCoercer) Numeric(raw interface{}) (float64, bool) {
	switch v := raw.(type) {
	case nil:
		return 0, false
	case float64:
		return v, !math.IsNaN(v) && !math.IsInf(v, 0)
	case float32:
		f := float64(v)
		return f, !math.IsNaN(f) && !math.IsInf(f, 0)
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case string:
		return c.tryParseNumeric(v)
	}
	return c.tryParseNumeric(fmt.Sprintf("%v", raw))
}

// Category returns the label of a raw value; ok is false when it is missing
func (c *TypeCoercer) Category(raw interface{}) (string, bool) {
	if raw == nil {
		return "", false
	}
	var s string
	switch v := raw.(type) {
	case string:
		s = v
	case float64:
		if math.IsNaN(v) {
			return "", false
		}
		s = strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		s = strconv.FormatFloat(float64(v), 'f', -1, 32)
	case bool:
		s = strconv.FormatBool(v)
	default:
		s = fmt.Sprintf("%v", v)
	}
	s = c.normalizeString(s)
	if s == "" {
		return "", false
	}
	return s, true
}

// tryParseNumeric attempts to parse as numeric with strict rules
// Handles international formats: parentheses for negatives, European decimals, currency symbols
func (c *TypeCoercer) tryParseNumeric(strVal string) (float64, bool) {
	cleanVal := strings.TrimSpace(strVal)
	if cleanVal == "" {
		return 0, false
	}

	// (123) -> -123
	isNegative := false
	if strings.HasPrefix(cleanVal, "(") && strings.HasSuffix(cleanVal, ")") {
		cleanVal = strings.TrimSuffix(strings.TrimPrefix(cleanVal, "("), ")")
		isNegative = true
	}

	for _, symbol := range []string{"$", "€", "£", "¥", "USD", "EUR", "GBP", "JPY"} {
		cleanVal = strings.ReplaceAll(cleanVal, symbol, "")
	}
	cleanVal = strings.TrimSpace(strings.ReplaceAll(cleanVal, "%", ""))

	hasComma := strings.Contains(cleanVal, ",")
	hasPeriod := strings.Contains(cleanVal, ".")
	hasSpace := strings.Contains(cleanVal, " ")

	switch {
	case hasComma && (hasPeriod || hasSpace):
		// 1.234,56 and 1 234,56 use the comma as decimal separator
		commaIdx := strings.LastIndex(cleanVal, ",")
		afterComma := cleanVal[commaIdx+1:]
		if commaIdx > strings.LastIndex(cleanVal, ".") && len(afterComma) <= 3 && allDigits(afterComma) {
			cleanVal = strings.ReplaceAll(cleanVal, ".", "")
			cleanVal = strings.ReplaceAll(cleanVal, " ", "")
			cleanVal = strings.ReplaceAll(cleanVal, ",", ".")
		} else {
			cleanVal = strings.ReplaceAll(cleanVal, ",", "")
			cleanVal = strings.ReplaceAll(cleanVal, " ", "")
		}
	case hasComma:
		// 1,234 is a thousands group, 3,5 a decimal
		if thousandsGrouped(cleanVal) {
			cleanVal = strings.ReplaceAll(cleanVal, ",", "")
		} else {
			cleanVal = strings.ReplaceAll(cleanVal, ",", ".")
		}
	default:
		cleanVal = strings.ReplaceAll(cleanVal, " ", "")
	}

	if isNegative {
		cleanVal = "-" + cleanVal
	}

	val, err := strconv.ParseFloat(cleanVal, 64)
	if err != nil || math.IsInf(val, 0) || math.IsNaN(val) {
		return 0, false
	}
	return val, true
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// thousandsGrouped reports whether every comma separates a group of exactly three digits
func thousandsGrouped(s string) bool {
	parts := strings.Split(strings.TrimPrefix(s, "-"), ",")
	if len(parts) < 2 || len(parts[0]) == 0 || len(parts[0]) > 3 || !allDigits(parts[0]) {
		return false
	}
	for _, p := range parts[1:] {
		if len(p) != 3 || !allDigits(p) {
			return false
		}
	}
	return true
}

// normalizeString applies deterministic label normalization
func (c *TypeCoercer) normalizeString(s string) string {
	s = strings.Map(func(r rune) rune {
		if (r < 32 && r != '\t' && r != '\n') || r == 127 {
			return -1
		}
		return r
	}, s)
	s = whitespaceRun.ReplaceAllString(strings.TrimSpace(s), " ")
	if c.config.FoldCase {
		s = strings.ToLower(s)
	}
	return s
}

// AnalyzeTypeDistribution inspects a column to infer its measure when the caller gave none
func (c *TypeCoercer) AnalyzeTypeDistribution(values []interface{}) TypeAnalysis {
	analysis := TypeAnalysis{TotalCount: len(values)}
	distinct := make(map[float64]bool)
	for _, val := range values {
		if _, ok := c.Category(val); !ok {
			continue
		}
		analysis.ValidCount++
		if f, ok := c.Numeric(val); ok {
			if _, isBool := val.(bool); !isBool {
				analysis.NumericCount++
				distinct[f] = true
			}
		}
	}
	analysis.DistinctNumeric = len(distinct)
	if analysis.ValidCount > 0 {
		analysis.NumericRatio = float64(analysis.NumericCount) / float64(analysis.ValidCount)
	}
	analysis.RecommendedMeasure = c.determineRecommendedMeasure(analysis)
	return analysis
}

func (c *TypeCoercer) determineRecommendedMeasure(analysis TypeAnalysis) dataset.Measure {
	if analysis.ValidCount == 0 || analysis.NumericRatio < c.config.NumericThreshold {
		return dataset.MeasureNominal
	}
	if c.config.MaxCategories > 0 && analysis.DistinctNumeric <= c.config.MaxCategories {
		return dataset.MeasureOrdinal
	}
	return dataset.MeasureScale
}

// TypeAnalysis contains the results of type distribution analysis
type TypeAnalysis struct {
	TotalCount         int             `json:"total_count"`
	ValidCount         int             `json:"valid_count"`
	NumericCount       int             `json:"numeric_count"`
	DistinctNumeric    int             `json:"distinct_numeric"`
	NumericRatio       float64         `json:"numeric_ratio"`
	RecommendedMeasure dataset.Measure `json:"recommended_measure"`
}
