package listing

import (
	"html"
	"net/url"
	"regexp"
	"strings"

	"github.com/jackfish212/remotefs/types"
)

// AnchorStrategy scans raw markup for anchor tags. It tolerates markup the
// tree parser would reshape and never fails.
type AnchorStrategy struct{}

var (
	anchorRE = regexp.MustCompile(`(?is)<a\b[^>]*?\bhref\s*=\s*(?:"([^"]*)"|'([^']*)'|([^\s>]+))[^>]*>(.*?)</a\s*>`)
	tagRE    = regexp.MustCompile(`(?s)<[^>]*>`)
)

func (AnchorStrategy) Name() string { return "anchors" }

func (AnchorStrategy) Parse(page string) ([]types.RemoteEntry, error) {
	entries := []types.RemoteEntry{}
	for _, m := range anchorRE.FindAllStringSubmatch(page, -1) {
		href := html.UnescapeString(strings.TrimSpace(m[1] + m[2] + m[3]))
		if skipHref(href) {
			continue
		}
		name := collapseSpace(html.UnescapeString(tagRE.ReplaceAllString(m[4], "")))
		if name == "" {
			name = nameFromHref(href)
		}
		if name == "" || isParentName(name) || isParentName(href) {
			continue
		}
		entries = append(entries, types.RemoteEntry{
			Name:  name,
			Href:  href,
			IsDir: hrefLooksLikeDir(href),
		})
	}
	return entries, nil
}

func skipHref(href string) bool {
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "?") {
		return true
	}
	lower := strings.ToLower(href)
	if strings.HasPrefix(lower, "javascript:") || strings.HasPrefix(lower, "mailto:") {
		return true
	}
	return strings.Contains(href, "?")
}

func hrefLooksLikeDir(href string) bool {
	href = stripQuery(href)
	if strings.HasSuffix(href, "/") {
		return true
	}
	return !strings.Contains(lastSegment(href), ".")
}

func nameFromHref(href string) string {
	seg := lastSegment(stripQuery(href))
	if unescaped, err := url.PathUnescape(seg); err == nil {
		seg = unescaped
	}
	return strings.TrimSpace(seg)
}

func lastSegment(p string) string {
	p = strings.TrimRight(p, "/")
	if i := strings.LastIndexByte(p, '/'); i >= 0 {
		return p[i+1:]
	}
	return p
}

func stripQuery(href string) string {
	if i := strings.IndexAny(href, "?#"); i >= 0 {
		return href[:i]
	}
	return href
}
