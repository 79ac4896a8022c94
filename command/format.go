package command

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// FormatReply renders a Dispatch reply using spec.md §6's numeric text
// format: booleans as "1"/"0", doubles as their shortest round-trip
// decimal, strings and byte slices as-is, and everything else (GETDIFF's
// patch list, INDEX.STATUS's entries, ...) as compact JSON. It is a
// convenience for a wire layer (the demo binary's REPL) that wants text
// output; Dispatch itself returns native Go values so callers that want
// structured data (GETDIFF's patch list, INDEX.STATUS's entries) can
// use it directly instead of re-parsing text.
func FormatReply(reply any) string {
	switch v := reply.(type) {
	case nil:
		return "(nil)"
	case string:
		return v
	case bool:
		if v {
			return "1"
		}
		return "0"
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case []byte:
		return string(v)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(data)
	}
}
