package listing

import (
	"strings"

	"github.com/jackfish212/remotefs/types"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// RowStrategy reads listings laid out as rows of cells tagged by class:
// "name" (holding the link), "type", "size" and "modified". Row-like
// elements are tr and li elements plus anything whose class mentions "row"
// or "entry".
type RowStrategy struct{}

func (RowStrategy) Name() string { return "rows" }

func (RowStrategy) Parse(page string) ([]types.RemoteEntry, error) {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return nil, err
	}

	var (
		entries []types.RemoteEntry
		rows    int
		walk    func(*html.Node)
	)
	walk = func(n *html.Node) {
		if isRowLike(n) && !hasRowDescendant(n) {
			if c, ok := collectCells(n); ok {
				rows++
				if e, keep := c.entry(); keep {
					entries = append(entries, e)
				}
				return
			}
		}
		for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
			walk(ch)
		}
	}
	walk(doc)

	if rows == 0 {
		return nil, ErrNoRows
	}
	return entries, nil
}

type rowCells struct {
	name, href, typ, size, modified string
	hasType                         bool
}

func (c rowCells) entry() (types.RemoteEntry, bool) {
	name := c.name
	if name == "" {
		name = nameFromHref(c.href)
	}
	if name == "" || isParentName(name) {
		return types.RemoteEntry{}, false
	}
	isDir := isDirType(c.typ)
	if !c.hasType {
		isDir = strings.HasSuffix(stripQuery(c.href), "/")
	}
	return types.RemoteEntry{
		Name:     name,
		Type:     c.typ,
		Size:     c.size,
		Modified: c.modified,
		Href:     c.href,
		IsDir:    isDir,
	}, true
}

// collectCells scans a row for classed cells. ok is false when the row has
// no name cell.
func collectCells(row *html.Node) (c rowCells, ok bool) {
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch {
			case hasClass(n, "name"):
				ok = true
				c.name = collapseSpace(textOf(n))
				if a := findAnchor(n); a != nil {
					c.href = attr(a, "href")
					if t := collapseSpace(textOf(a)); t != "" {
						c.name = t
					}
				}
				return
			case hasClass(n, "type"):
				c.typ = collapseSpace(textOf(n))
				c.hasType = true
				return
			case hasClass(n, "size"):
				c.size = collapseSpace(textOf(n))
				return
			case hasClass(n, "modified", "mtime", "date", "lastmod"):
				c.modified = collapseSpace(textOf(n))
				return
			}
		}
		for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
			walk(ch)
		}
	}
	for ch := row.FirstChild; ch != nil; ch = ch.NextSibling {
		walk(ch)
	}
	if ok && c.href == "" {
		if a := findAnchor(row); a != nil {
			c.href = attr(a, "href")
		}
	}
	return c, ok
}

func isRowLike(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if n.DataAtom == atom.Tr || n.DataAtom == atom.Li {
		return true
	}
	for _, cls := range strings.Fields(attr(n, "class")) {
		cls = strings.ToLower(cls)
		if strings.Contains(cls, "row") || strings.Contains(cls, "entry") {
			return true
		}
	}
	return false
}

// hasRowDescendant keeps containers such as <div class="entries"> from being
// read as a single row.
func hasRowDescendant(n *html.Node) bool {
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		if isRowLike(ch) || hasRowDescendant(ch) {
			return true
		}
	}
	return false
}

func hasClass(n *html.Node, names ...string) bool {
	for _, cls := range strings.Fields(attr(n, "class")) {
		for _, want := range names {
			if strings.EqualFold(cls, want) {
				return true
			}
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func findAnchor(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == atom.A {
		return n
	}
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		if a := findAnchor(ch); a != nil {
			return a
		}
	}
	return nil
}

func textOf(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
			walk(ch)
		}
	}
	walk(n)
	return b.String()
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
