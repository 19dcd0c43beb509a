package ocr

import (
	"fmt"
	"strings"
	"time"

	"github.com/okian/linewatch/internal/domain/model"
)

// Prompt builds the instruction sent alongside the photo.
func Prompt(schema model.Schema, mode string, prev *Hint) string {
	var b strings.Builder
	if mode == ModeNumber {
		b.WriteString("Read the production counter in this photo. ")
		fmt.Fprintf(&b, "Return JSON {\"number\": n} where n is the %s shown on the board as an integer, ", schema.RateField)
		b.WriteString("or {\"number\": null} if no counter is visible. Ignore thousands separators.")
	} else {
		b.WriteString("This photo should show a factory counter or production status board. ")
		b.WriteString("Return a JSON object with these keys:\n")
		b.WriteString("- isRelevant: true only if the photo shows such a board\n")
		b.WriteString("- summary: one short sentence describing what you see\n")
		for _, f := range schema.Fields {
			kind := "string"
			if f.Kind == model.KindNumber {
				kind = "integer"
			}
			fmt.Fprintf(&b, "- %s (%s or null): %s\n", f.Name, kind, f.Description)
		}
		b.WriteString("Use null for any value you cannot read. Write integers without separators.")
	}
	if prev != nil {
		fmt.Fprintf(&b, "\nThe previous reading of %s was %d at %s; the new value is usually close to and not below it.",
			schema.RateField, prev.Value, prev.At.UTC().Format(time.RFC3339))
	}
	return b.String()
}

// ResponseSchema is the JSON schema the hosted model is constrained to.
func ResponseSchema(schema model.Schema, mode string) map[string]any {
	if mode == ModeNumber {
		return map[string]any{
			"type": "OBJECT",
			"properties": map[string]any{
				"number": map[string]any{"type": "INTEGER", "nullable": true},
			},
			"required": []string{"number"},
		}
	}
	props := map[string]any{
		"isRelevant": map[string]any{"type": "BOOLEAN"},
		"summary":    map[string]any{"type": "STRING"},
	}
	required := []string{"isRelevant", "summary"}
	for _, f := range schema.Fields {
		typ := "STRING"
		if f.Kind == model.KindNumber {
			typ = "INTEGER"
		}
		props[f.Name] = map[string]any{"type": typ, "nullable": true, "description": f.Description}
		required = append(required, f.Name)
	}
	return map[string]any{
		"type":       "OBJECT",
		"properties": props,
		"required":   required,
	}
}
