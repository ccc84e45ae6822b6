package query

import (
	"fmt"
	"net/url"
	"strings"
)

// FromValues parses bracket-style query parameters such as
// where[or][0][title][equals]=hello into a Where. Only keys under prefix
// (normally "where") are considered.
func FromValues(values url.Values, prefix string) (Where, error) {
	root := map[string]any{}
	for key, vals := range values {
		if len(vals) == 0 {
			continue
		}
		path, ok := bracketPath(key)
		if !ok || len(path) < 2 || path[0] != prefix {
			continue
		}
		if err := setPath(root, path[1:], vals[len(vals)-1]); err != nil {
			return Where{}, fmt.Errorf("%s: %w", key, err)
		}
	}
	normalizeListValues(root)
	return FromMap(root)
}

// bracketPath splits "a[b][c]" into [a b c].
func bracketPath(key string) ([]string, bool) {
	head, rest, _ := strings.Cut(key, "[")
	if head == "" {
		return nil, false
	}
	path := []string{head}
	for rest != "" {
		seg, after, found := strings.Cut(rest, "]")
		if !found {
			return nil, false
		}
		path = append(path, seg)
		rest = strings.TrimPrefix(after, "[")
	}
	return path, true
}

func setPath(node map[string]any, path []string, value string) error {
	for i, seg := range path {
		if i == len(path)-1 {
			node[seg] = value
			return nil
		}
		next, exists := node[seg]
		if !exists {
			child := map[string]any{}
			node[seg] = child
			node = child
			continue
		}
		child, ok := next.(map[string]any)
		if !ok {
			return fmt.Errorf("%w: conflicting keys at %q", ErrInvalidWhere, seg)
		}
		node = child
	}
	return nil
}

// normalizeListValues turns comma-separated in/not_in strings into lists.
func normalizeListValues(node map[string]any) {
	for k, v := range node {
		switch t := v.(type) {
		case map[string]any:
			normalizeListValues(t)
		case string:
			if k == string(OpIn) || k == string(OpNotIn) {
				parts := strings.Split(t, ",")
				list := make([]any, 0, len(parts))
				for _, p := range parts {
					if p = strings.TrimSpace(p); p != "" {
						list = append(list, p)
					}
				}
				node[k] = list
			}
		}
	}
}
