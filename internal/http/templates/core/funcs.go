// Package core holds the template functions shared by every admin page.
package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/target/folio/internal/http/uiutil"
)

// cellLimit bounds list view cells, in runes.
const cellLimit = 80

// Deps wires the renderer into the func map.
type Deps struct {
	// Template points at the parsed set once it exists; renderSection
	// executes nested templates through it.
	Template           **template.Template
	ContentTemplateFor func(view string) string
	// StaticPrefix is where /static assets are mounted.
	StaticPrefix string
}

// Funcs returns the admin template func map.
func Funcs(deps Deps) template.FuncMap {
	static := strings.TrimSuffix(deps.StaticPrefix, "/")
	return template.FuncMap{
		"add":          func(a, b int) int { return a + b },
		"dict":         dict,
		"timeTag":      timeTag,
		"formatNumber": formatNumber,
		"cellValue":    CellValue,
		"toJSON":       toJSON,
		"asset": func(name string) string {
			return static + "/" + strings.TrimPrefix(name, "/")
		},
		"renderSection": func(view string, data any) (template.HTML, error) {
			if deps.Template == nil || *deps.Template == nil {
				return "", errors.New("renderSection: templates not parsed yet")
			}
			var buf bytes.Buffer
			if err := (*deps.Template).ExecuteTemplate(&buf, deps.ContentTemplateFor(view), data); err != nil {
				return "", err
			}
			// #nosec G203 - output of html/template, already escaped
			return template.HTML(buf.String()), nil
		},
	}
}

// dict pairs alternating keys and values so a page can hand several values
// to a nested template.
func dict(kv ...any) (map[string]any, error) {
	if len(kv)%2 != 0 {
		return nil, errors.New("dict: odd number of arguments")
	}
	out := make(map[string]any, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			return nil, fmt.Errorf("dict: key %v is not a string", kv[i])
		}
		out[k] = kv[i+1]
	}
	return out, nil
}

func toJSON(v any) (string, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// timeTag renders a document timestamp as a <time> element with the UTC
// instant in datetime and the full local time as a tooltip.
func timeTag(ts any) template.HTML {
	t, ok := uiutil.ParseTimestamp(ts)
	if !ok {
		return ""
	}
	local := t.Local()
	// #nosec G203 - every interpolated value is escaped
	return template.HTML(fmt.Sprintf(`<time datetime="%s" title="%s">%s</time>`,
		t.UTC().Format(time.RFC3339),
		template.HTMLEscapeString(local.Format(time.RFC1123)),
		template.HTMLEscapeString(local.Format("Jan 2, 2006 3:04:05 PM")),
	))
}

// CellValue renders a document value for a list view cell.
// Relationship objects show their id; arrays show a comma-joined summary.
func CellValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return uiutil.TruncateWithEllipsis(t, cellLimit)
	case bool:
		if t {
			return "Yes"
		}
		return "No"
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int, int64:
		return formatNumber(t)
	case map[string]any:
		if id, ok := t["id"]; ok {
			return CellValue(id)
		}
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		return "{" + strings.Join(keys, ", ") + "}"
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			parts = append(parts, CellValue(item))
		}
		return uiutil.TruncateWithEllipsis(strings.Join(parts, ", "), cellLimit)
	default:
		return fmt.Sprint(v)
	}
}

// formatNumber groups the digits of an integer in thousands. Anything else
// is printed as is.
func formatNumber(v any) string {
	var digits string
	neg := false
	switch x := v.(type) {
	case int:
		digits, neg = magnitude(int64(x))
	case int8:
		digits, neg = magnitude(int64(x))
	case int16:
		digits, neg = magnitude(int64(x))
	case int32:
		digits, neg = magnitude(int64(x))
	case int64:
		digits, neg = magnitude(x)
	case uint:
		digits = strconv.FormatUint(uint64(x), 10)
	case uint8:
		digits = strconv.FormatUint(uint64(x), 10)
	case uint16:
		digits = strconv.FormatUint(uint64(x), 10)
	case uint32:
		digits = strconv.FormatUint(uint64(x), 10)
	case uint64:
		digits = strconv.FormatUint(x, 10)
	default:
		return fmt.Sprint(v)
	}

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	lead := len(digits) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(digits[:lead])
	for i := lead; i < len(digits); i += 3 {
		b.WriteByte(',')
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// magnitude returns |x| in decimal; uint64 keeps math.MinInt64 exact.
func magnitude(x int64) (string, bool) {
	if x < 0 {
		return strconv.FormatUint(uint64(-x), 10), true
	}
	return strconv.FormatUint(uint64(x), 10), false
}
