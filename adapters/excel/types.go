package excel

import "statlab/adapters/datareadiness/coercer"

// ReaderConfig holds the parsing options for dataset uploads
type ReaderConfig struct {
	Sheet     string                 `json:"sheet"`     // worksheet name, first sheet when empty
	Delimiter rune                   `json:"delimiter"` // CSV field separator, comma when zero
	MaxRows   int                    `json:"max_rows"`  // data rows accepted, unlimited when zero
	Coercion  coercer.CoercionConfig `json:"coercion"`
}

// DefaultReaderConfig returns the defaults used by the web upload handler.
// Numeric columns with at most seven distinct values are proposed as ordinal.
func DefaultReaderConfig(maxRows int) ReaderConfig {
	coercion := coercer.DefaultCoercionConfig()
	coercion.MaxCategories = 7
	return ReaderConfig{MaxRows: maxRows, Coercion: coercion}
}
