package contract

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/understudy/pkg/match"
)

// Render produces the canonical textual form of an argument value.
//
// The rendering is deterministic within a process: the same value
// always renders to the same string, so renderings serve both as key
// material (fingerprints) and as the argument text in history entries.
//
// Rules:
//   - nil renders as "nil"
//   - strings are NFC-normalized and quoted, so composed and
//     decomposed spellings of the same text render identically
//   - integers render in decimal regardless of width, floats in
//     shortest form
//   - byte slices render as hex
//   - matchers render their degraded zero value
//   - other values fall through to Go syntax representation; map keys
//     are sorted by the fmt package, pointer values keep reference
//     identity
func Render(v any) string {
	switch val := v.(type) {
	case nil:
		return "nil"
	case string:
		return strconv.Quote(norm.NFC.String(val))
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.FormatInt(int64(val), 10)
	case int8:
		return strconv.FormatInt(int64(val), 10)
	case int16:
		return strconv.FormatInt(int64(val), 10)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case int64:
		return strconv.FormatInt(val, 10)
	case uint:
		return strconv.FormatUint(uint64(val), 10)
	case uint8:
		return strconv.FormatUint(uint64(val), 10)
	case uint16:
		return strconv.FormatUint(uint64(val), 10)
	case uint32:
		return strconv.FormatUint(uint64(val), 10)
	case uint64:
		return strconv.FormatUint(val, 10)
	case uintptr:
		return strconv.FormatUint(uint64(val), 10)
	case float32:
		return strconv.FormatFloat(float64(val), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case []byte:
		return "0x" + hex.EncodeToString(val)
	case match.Matcher:
		return Render(val.Zero())
	default:
		return fmt.Sprintf("%#v", v)
	}
}

// RenderCall formats an operation name and its arguments as one
// invocation record, e.g. `Charge(5, "Bob")`.
func RenderCall(name string, args []any) string {
	rendered := make([]string, len(args))
	for i, a := range args {
		rendered[i] = Render(a)
	}
	return name + "(" + strings.Join(rendered, ", ") + ")"
}
