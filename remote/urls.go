package remote

import (
	"fmt"
	"net/url"
	"strings"
)

// root returns {base}/{scope}/{project} without a trailing slash.
func (c *Client) root() string {
	return rootURL(c.creds.BaseURL, c.scope, c.creds.Project)
}

func rootURL(base, scope, project string) string {
	u := strings.TrimRight(base, "/") + "/" + url.PathEscape(scope)
	if project != "" {
		u += "/" + url.PathEscape(project)
	}
	return u
}

// itemURL addresses a file or directory without a trailing slash.
func (c *Client) itemURL(rel string) string {
	return c.root() + escapePath(rel)
}

// dirURL addresses a directory listing, always with a trailing slash.
func (c *Client) dirURL(rel string) string {
	return c.itemURL(rel) + "/"
}

// escapePath escapes each segment of rel and returns it with a leading
// slash, or "" for the project root.
func escapePath(rel string) string {
	var b strings.Builder
	for _, seg := range strings.Split(rel, "/") {
		if seg == "" || seg == "." {
			continue
		}
		b.WriteByte('/')
		b.WriteString(url.PathEscape(seg))
	}
	return b.String()
}

func joinRel(parent, name string) string {
	parent = strings.Trim(parent, "/")
	if parent == "" {
		return name
	}
	return parent + "/" + name
}

// NormalizeBaseURL reduces a pasted URL to the server base. Anything from
// the first "/{scope}/" segment onwards is stripped; the segment after the
// scope, if any, is returned as the project.
func NormalizeBaseURL(raw, scope string) (base, project string, err error) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("remote: invalid server URL %q: %w", raw, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", "", fmt.Errorf("remote: server URL %q must be an absolute http(s) URL", raw)
	}
	u.RawQuery, u.Fragment, u.User = "", "", nil

	segs := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, seg := range segs {
		if seg != scope {
			continue
		}
		if i+1 < len(segs) {
			if p, uerr := url.PathUnescape(segs[i+1]); uerr == nil {
				project = p
			}
		}
		segs = segs[:i]
		break
	}
	u.Path = strings.Join(segs, "/")
	if u.Path != "" {
		u.Path = "/" + u.Path
	}
	u.RawPath = ""
	return strings.TrimRight(u.String(), "/"), project, nil
}
