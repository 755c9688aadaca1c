package utils

import (
	"strings"

	"tts-relay/models"
)

// TruncatePath shortens p to limit bytes, marking the cut with "...".
func TruncatePath(p string, limit int) string {
	if len(p) <= limit {
		return p
	}
	return p[:limit] + "..."
}

// UpstreamURL splices rawQuery onto the upstream resource exactly as given.
// The trailing "?" is kept even when rawQuery is empty.
func UpstreamURL(u models.Upstream, rawQuery string) string {
	var b strings.Builder
	b.Grow(len(u.Scheme) + len(u.Host) + len(u.Path) + len(rawQuery) + 4)
	b.WriteString(u.Scheme)
	b.WriteString("://")
	b.WriteString(u.Host)
	b.WriteString(u.Path)
	b.WriteByte('?')
	b.WriteString(rawQuery)
	return b.String()
}
