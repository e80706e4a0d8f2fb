package remotefs

import (
	"path"
	"strings"
)

// CleanPath normalises a facade path: forward-slashes, no trailing slash,
// always starts with "/".
func CleanPath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	p = path.Clean(p)
	if p == "." || p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

// SplitParent splits p into the remote-relative parent directory (no
// leading separator, "" for the root) and the final segment. The root
// splits into two empty strings.
func SplitParent(p string) (parent, name string) {
	p = CleanPath(p)
	if p == "/" {
		return "", ""
	}
	idx := strings.LastIndexByte(p, '/')
	return strings.TrimPrefix(p[:idx], "/"), p[idx+1:]
}

func baseName(p string) string {
	p = CleanPath(p)
	if p == "/" {
		return "/"
	}
	idx := strings.LastIndexByte(p, '/')
	if idx < 0 {
		return p
	}
	return p[idx+1:]
}

// remotePath converts a facade path to the remote's project-relative form.
func remotePath(p string) string {
	return strings.TrimPrefix(CleanPath(p), "/")
}
