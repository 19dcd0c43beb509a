// Package normalize turns replies from an OCR or vision-language service into
// a fixed record of optional typed fields.
//
// A reply may be bare JSON, JSON inside a fenced code block, JSON embedded in
// prose, or prose alone. Parsing never panics and never returns a partially
// filled record: every schema field is present in the output, null when the
// reply did not provide a usable value.
package normalize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/okian/linewatch/internal/domain/model"
)

var fencePattern = regexp.MustCompile("(?s)```[A-Za-z0-9_-]*[ \t]*\\r?\\n?(.*?)```")

// Record is a normalized structured reply.
type Record struct {
	IsRelevant bool         `json:"isRelevant"`
	Fields     model.Fields `json:"fields"`
	Summary    string       `json:"summary"`
}

// Outcome is either a parsed record (Err == nil) or a degraded record with
// the reason parsing failed. Record is always usable.
type Outcome struct {
	Record Record
	Err    error
}

// OK reports whether the reply parsed.
func (o Outcome) OK() bool { return o.Err == nil }

// Degraded returns the record used when a reply cannot be parsed: not
// relevant, every field null, the raw text kept as summary.
func Degraded(schema model.Schema, raw string) Record {
	return Record{
		IsRelevant: false,
		Fields:     schema.EmptyFields(),
		Summary:    strings.TrimSpace(raw),
	}
}

// Structured parses a reply produced under a JSON response schema.
func Structured(schema model.Schema, raw string) Outcome {
	payload, ok := locateObject(raw)
	if !ok {
		return Outcome{Record: Degraded(schema, raw), Err: fmt.Errorf("%w: no JSON object in reply", ErrUnparsable)}
	}

	var obj map[string]json.RawMessage
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	if err := dec.Decode(&obj); err != nil || obj == nil {
		if err == nil {
			err = fmt.Errorf("reply is not an object")
		}
		return Outcome{Record: Degraded(schema, raw), Err: fmt.Errorf("%w: %v", ErrUnparsable, err)}
	}

	rec := Record{
		IsRelevant: asBool(obj["isRelevant"]),
		Fields:     schema.EmptyFields(),
		Summary:    asSummary(obj["summary"]),
	}
	for _, f := range schema.Fields {
		rawVal, present := obj[f.Name]
		if !present {
			continue
		}
		switch f.Kind {
		case model.KindNumber:
			rec.Fields[f.Name] = asNumber(rawVal)
		case model.KindText:
			rec.Fields[f.Name] = asText(rawVal)
		}
	}
	return Outcome{Record: rec}
}

// locateObject finds the JSON object in a reply: the whole reply, the
// contents of a fenced code block, or the first balanced {...} substring.
func locateObject(raw string) ([]byte, bool) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil, false
	}
	if json.Valid([]byte(text)) {
		return []byte(text), true
	}
	if m := fencePattern.FindStringSubmatch(text); m != nil {
		inner := strings.TrimSpace(m[1])
		if json.Valid([]byte(inner)) {
			return []byte(inner), true
		}
		if obj, ok := firstBalancedObject(inner); ok {
			return []byte(obj), true
		}
	}
	if obj, ok := firstBalancedObject(text); ok {
		return []byte(obj), true
	}
	return nil, false
}

// firstBalancedObject returns the first {...} substring whose braces balance,
// ignoring braces inside string literals.
func firstBalancedObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	for start >= 0 {
		if end, ok := matchBrace(s, start); ok {
			candidate := s[start : end+1]
			if json.Valid([]byte(candidate)) {
				return candidate, true
			}
		}
		next := strings.IndexByte(s[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}

func matchBrace(s string, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

func asBool(raw json.RawMessage) bool {
	if raw == nil {
		return false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.EqualFold(strings.TrimSpace(s), "true")
	}
	return false
}

func asSummary(raw json.RawMessage) string {
	if raw == nil {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

// asNumber accepts JSON numbers and numeric strings with thousands
// separators. Negative and non-finite values are treated as unreadable.
func asNumber(raw json.RawMessage) model.Value {
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return roundedCount(n.String())
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return roundedCount(stripSeparators(s))
	}
	return model.Null()
}

func roundedCount(s string) model.Value {
	if s == "" {
		return model.Null()
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 || f > math.MaxInt64/2 {
		return model.Null()
	}
	return model.Number(int64(math.Round(f)))
}

func asText(raw json.RawMessage) model.Value {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		s = strings.TrimSpace(s)
		if s == "" {
			return model.Null()
		}
		return model.Text(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return model.Text(n.String())
	}
	return model.Null()
}
