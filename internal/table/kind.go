package table

import "strconv"

// Kind is the inferred type of a column.
type Kind int

const (
	String Kind = iota
	Int
	Float
)

func (k Kind) String() string {
	switch k {
	case Int:
		return "int64"
	case Float:
		return "float64"
	default:
		return "object"
	}
}

// Numeric reports whether values of this kind can be reduced arithmetically.
func (k Kind) Numeric() bool { return k == Int || k == Float }

// naTokens mirrors the values pandas' CSV reader treats as missing by default.
var naTokens = map[string]bool{
	"":         true,
	"#N/A":     true,
	"#N/A N/A": true,
	"#NA":      true,
	"-1.#IND":  true,
	"-1.#QNAN": true,
	"-NaN":     true,
	"-nan":     true,
	"1.#IND":   true,
	"1.#QNAN":  true,
	"<NA>":     true,
	"N/A":      true,
	"NA":       true,
	"NULL":     true,
	"NaN":      true,
	"None":     true,
	"n/a":      true,
	"nan":      true,
	"null":     true,
}

// IsNA reports whether a raw field denotes a missing value.
// Only exact tokens match; whitespace-only fields are values.
func IsNA(raw string) bool {
	return naTokens[raw]
}

// InferKind returns Int if every non-null cell is an integer, Float if every
// non-null cell is a number, String otherwise. An all-null column is Float.
func InferKind(cells []Cell) Kind {
	kind := Int
	for _, c := range cells {
		if c.Null {
			continue
		}
		v := c.Raw
		if kind == Int {
			if _, err := strconv.ParseInt(v, 10, 64); err == nil {
				continue
			}
			kind = Float
		}
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			return String
		}
	}
	if kind == Int && allNull(cells) {
		return Float
	}
	return kind
}

func allNull(cells []Cell) bool {
	for _, c := range cells {
		if !c.Null {
			return false
		}
	}
	return true
}
