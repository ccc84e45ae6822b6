package route

import (
	"net/url"
	"strings"
)

// MatchOptions mirror the flags accepted by custom routes.
type MatchOptions struct {
	// Exact requires the whole path to be consumed.
	Exact bool
	// Strict makes a trailing slash significant.
	Strict bool
	// Sensitive makes literal segments case-sensitive.
	Sensitive bool
}

// Params holds decoded ":name" segment values.
type Params map[string]string

type splitPath struct {
	segments []string
	trailing bool
}

func split(p string) splitPath {
	if p == "" || p == "/" {
		return splitPath{}
	}
	p = strings.TrimPrefix(p, "/")
	trailing := strings.HasSuffix(p, "/")
	p = strings.TrimSuffix(p, "/")
	return splitPath{segments: strings.Split(p, "/"), trailing: trailing}
}

// Match reports whether path matches pattern. Patterns are slash-separated
// literals and ":name" parameters. A non-exact match is a prefix match that
// ends on a segment boundary.
func Match(pattern string, opts MatchOptions, path string) (Params, bool) {
	pat := split(pattern)
	got := split(path)

	if len(got.segments) < len(pat.segments) {
		return nil, false
	}
	if opts.Exact && len(got.segments) != len(pat.segments) {
		return nil, false
	}

	var params Params
	for i, seg := range pat.segments {
		actual := got.segments[i]
		if name, ok := strings.CutPrefix(seg, ":"); ok {
			if actual == "" {
				return nil, false
			}
			decoded, err := url.PathUnescape(actual)
			if err != nil {
				return nil, false
			}
			if params == nil {
				params = Params{}
			}
			params[name] = decoded
			continue
		}
		if opts.Sensitive {
			if seg != actual {
				return nil, false
			}
		} else if !strings.EqualFold(seg, actual) {
			return nil, false
		}
	}

	if opts.Strict && pat.trailing {
		// "/foo/" needs the slash, either as a trailing slash or before more segments.
		if len(got.segments) == len(pat.segments) && !got.trailing {
			return nil, false
		}
	}
	if opts.Strict && opts.Exact && !pat.trailing && got.trailing {
		return nil, false
	}
	return params, true
}
