package model

import (
	"fmt"
	"sort"
)

// Kind is the type of a schema field.
type Kind string

// Field kinds.
const (
	KindNumber Kind = "number"
	KindText   Kind = "text"
)

// FieldSpec describes one field extracted from a photo.
type FieldSpec struct {
	Name        string `json:"name"`
	Kind        Kind   `json:"kind"`
	Description string `json:"description"`
}

// Schema is the set of fields a deployment extracts, the field the
// throughput rate is derived from, and the rate at or above which a line
// counts as running normally.
type Schema struct {
	Name            string      `json:"name"`
	Fields          []FieldSpec `json:"fields"`
	RateField       string      `json:"rateField"`
	NormalThreshold int64       `json:"normalThreshold"`
}

// Built-in schema names.
const (
	SchemaCounter    = "counter"
	SchemaProduction = "production"
)

// CounterSchema reads a box counter and a bottle counter off a board.
func CounterSchema() Schema {
	return Schema{
		Name: SchemaCounter,
		Fields: []FieldSpec{
			{Name: "boxCount", Kind: KindNumber, Description: "number of boxes shown on the counter"},
			{Name: "bottleCount", Kind: KindNumber, Description: "number of bottles shown on the counter"},
		},
		RateField:       "bottleCount",
		NormalThreshold: 50,
	}
}

// ProductionSchema reads a production status board.
func ProductionSchema() Schema {
	return Schema{
		Name: SchemaProduction,
		Fields: []FieldSpec{
			{Name: "operatingLine", Kind: KindText, Description: "production line identifier"},
			{Name: "productionDate", Kind: KindText, Description: "production date as printed"},
			{Name: "plannedQuantity", Kind: KindNumber, Description: "planned quantity for the lot"},
			{Name: "productName", Kind: KindText, Description: "product name"},
			{Name: "completedQuantity", Kind: KindNumber, Description: "quantity completed so far"},
			{Name: "lotNo", Kind: KindText, Description: "lot number"},
		},
		RateField:       "completedQuantity",
		NormalThreshold: 600,
	}
}

// SchemaByName returns a built-in schema.
func SchemaByName(name string) (Schema, error) {
	switch name {
	case SchemaCounter:
		return CounterSchema(), nil
	case SchemaProduction:
		return ProductionSchema(), nil
	default:
		return Schema{}, fmt.Errorf("unknown schema %q", name)
	}
}

// SchemaNames lists the built-in schemas.
func SchemaNames() []string {
	names := []string{SchemaCounter, SchemaProduction}
	sort.Strings(names)
	return names
}

// Field looks up a field by name.
func (s Schema) Field(name string) (FieldSpec, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// EmptyFields returns a Fields map with every schema field set to null.
func (s Schema) EmptyFields() Fields {
	out := make(Fields, len(s.Fields))
	for _, f := range s.Fields {
		out[f.Name] = Null()
	}
	return out
}
