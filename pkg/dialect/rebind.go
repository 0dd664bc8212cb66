package dialect

import (
	"strings"

	"github.com/leapstack-labs/leapstore/pkg/core"
)

// Rebind rewrites "?" placeholders into the dialect's placeholder style.
// Question marks inside quoted literals or quoted identifiers are left alone.
func (d *Dialect) Rebind(query string) string {
	if d.Placeholder != core.PlaceholderDollar || !strings.Contains(query, "?") {
		return query
	}

	var sb strings.Builder
	sb.Grow(len(query) + 8)
	n := 0
	var quote byte
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case quote != 0:
			// a doubled quote closes and immediately reopens
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '?':
			n++
			sb.WriteString(d.FormatPlaceholder(n))
			continue
		}
		sb.WriteByte(c)
	}
	return sb.String()
}
