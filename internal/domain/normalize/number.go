package normalize

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

var digitRun = regexp.MustCompile(`[0-9]+`)

// preferredRunLengths lists digit-run lengths in order of preference. A
// counter display usually shows three or four digits, while stray digits
// elsewhere in the frame (line numbers, model numbers) are shorter.
var preferredRunLengths = []int{4, 3, 2}

// Number reads a counter value from a numeric-only reply. A JSON reply of the
// form {"number": n} is taken as-is, and a null or unusable n means no
// number. Anything else goes through Extract.
func Number(raw string) (int64, error) {
	text := strings.TrimSpace(raw)
	if obj, ok := locateObject(text); ok {
		var payload map[string]json.RawMessage
		if err := json.Unmarshal(obj, &payload); err == nil {
			if n, ok := payload["number"]; ok {
				if v, ok := asNumber(n).Int(); ok {
					return v, nil
				}
				return 0, ErrNoNumber
			}
		}
	}
	return Extract(text)
}

// Extract picks the counter value out of free text. Thousands separators and
// whitespace are removed, every digit run is collected, and the largest run
// of exactly four digits wins, then three, then two, then the largest run of
// any length.
func Extract(text string) (int64, error) {
	cleaned := stripSeparators(text)
	runs := digitRun.FindAllString(cleaned, -1)
	if len(runs) == 0 {
		return 0, ErrNoNumber
	}

	for _, length := range preferredRunLengths {
		if v, ok := maxRun(runs, func(r string) bool { return len(r) == length }); ok {
			return v, nil
		}
	}
	if v, ok := maxRun(runs, func(string) bool { return true }); ok {
		return v, nil
	}
	return 0, ErrNoNumber
}

func maxRun(runs []string, keep func(string) bool) (int64, bool) {
	best := int64(math.MinInt64)
	found := false
	for _, r := range runs {
		if !keep(r) {
			continue
		}
		v, err := strconv.ParseInt(r, 10, 64)
		if err != nil {
			continue
		}
		if !found || v > best {
			best = v
			found = true
		}
	}
	return best, found
}

// stripSeparators removes thousands separators and all whitespace.
func stripSeparators(s string) string {
	return strings.Map(func(r rune) rune {
		if r == ',' || r == '，' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
