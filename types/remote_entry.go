package types

import (
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// RemoteEntry is one row scraped from a remote directory listing. It is
// recomputed on every listing call and never cached.
type RemoteEntry struct {
	Name     string // display name
	Type     string // raw type label, "Collection" for directories on most servers
	Size     string // raw size text as rendered by the server
	Modified string // raw modification text as rendered by the server
	Href     string // link target, empty when the row had none
	IsDir    bool
}

// SizeBytes parses the raw size text ("1.2 kB", "512", "3 MiB").
// It reports false when the text is empty or not a size.
func (e RemoteEntry) SizeBytes() (int64, bool) {
	s := strings.TrimSpace(e.Size)
	if s == "" || s == "-" {
		return 0, false
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, false
	}
	return int64(n), true
}

var listingDateFormats = []string{
	time.RFC1123,
	time.RFC1123Z,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"02-Jan-2006 15:04",
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Jan 2, 2006 3:04:05 PM",
	"2006-01-02",
}

// ModTime parses the raw modification text, returning the zero time when no
// known layout matches.
func (e RemoteEntry) ModTime() time.Time {
	s := strings.TrimSpace(e.Modified)
	if s == "" {
		return time.Time{}
	}
	for _, f := range listingDateFormats {
		if t, err := time.Parse(f, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
