package schema

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dvloznov/sales-analysis/internal/table"
)

// ErrBinding is returned when a cleaned table does not satisfy the schema.
var ErrBinding = errors.New("schema binding failed")

// Key is a logical field name. Charts refer to fields only through keys.
type Key string

const (
	Gender          Key = "gender"
	AgeGroup        Key = "age_group"
	MaritalStatus   Key = "marital_status"
	State           Key = "state"
	Occupation      Key = "occupation"
	ProductCategory Key = "product_category"
	ProductID       Key = "product_id"
	Orders          Key = "orders"
	Amount          Key = "amount"
)

// Role says how a field may be used.
type Role int

const (
	// Dimension fields are grouped by; any column kind is accepted.
	Dimension Role = iota
	// Measure fields are reduced; the column must be numeric.
	Measure
)

func (r Role) String() string {
	if r == Measure {
		return "measure"
	}
	return "dimension"
}

// Field maps a logical key to a table column.
type Field struct {
	Key    Key
	Column string
	Role   Role
}

// Schema is the set of fields the analysis reads.
type Schema struct {
	Fields []Field
}

// Default is the schema of the cleaned Diwali sales dataset.
func Default() Schema {
	return Schema{Fields: []Field{
		{Key: Gender, Column: "Gender", Role: Dimension},
		{Key: AgeGroup, Column: "Age Group", Role: Dimension},
		{Key: MaritalStatus, Column: "Marital_Status", Role: Dimension},
		{Key: State, Column: "State", Role: Dimension},
		{Key: Occupation, Column: "Occupation", Role: Dimension},
		{Key: ProductCategory, Column: "Product_Category", Role: Dimension},
		{Key: ProductID, Column: "Product_ID", Role: Dimension},
		{Key: Orders, Column: "Orders", Role: Measure},
		{Key: Amount, Column: "Amount", Role: Measure},
	}}
}

// WithRename returns a copy of s whose columns follow mapping (old -> new).
func (s Schema) WithRename(mapping map[string]string) Schema {
	fields := make([]Field, len(s.Fields))
	for i, f := range s.Fields {
		if name, ok := mapping[f.Column]; ok {
			f.Column = name
		}
		fields[i] = f
	}
	return Schema{Fields: fields}
}

// Binding resolves keys to the columns of one validated table.
type Binding struct {
	fields map[Key]Field
}

// Bind validates every field of s against t once. All problems are reported
// together in a single error wrapping ErrBinding.
func Bind(t *table.Table, s Schema) (*Binding, error) {
	b := &Binding{fields: make(map[Key]Field, len(s.Fields))}

	var problems []string
	for _, f := range s.Fields {
		col, err := t.Column(f.Column)
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s: column %q not found", f.Key, f.Column))
			continue
		}
		if f.Role == Measure && !col.Kind.Numeric() {
			problems = append(problems, fmt.Sprintf("%s: column %q is %s, want numeric", f.Key, f.Column, col.Kind))
			continue
		}
		b.fields[f.Key] = f
	}

	if len(problems) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrBinding, strings.Join(problems, "; "))
	}
	return b, nil
}

// Column returns the column bound to key.
func (b *Binding) Column(key Key) (string, error) {
	f, ok := b.fields[key]
	if !ok {
		return "", fmt.Errorf("%w: field %q is not bound", ErrBinding, key)
	}
	return f.Column, nil
}

// Columns resolves several keys at once.
func (b *Binding) Columns(keys ...Key) ([]string, error) {
	cols := make([]string, len(keys))
	for i, k := range keys {
		c, err := b.Column(k)
		if err != nil {
			return nil, err
		}
		cols[i] = c
	}
	return cols, nil
}
