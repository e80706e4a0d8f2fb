package listing

import (
	"errors"
	"strings"
	"testing"

	"github.com/jackfish212/remotefs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tablePage = `<!DOCTYPE html>
<html><head><title>Index of /alpha/docs</title></head>
<body>
<table>
  <tr><th>Name</th><th>Type</th><th>Size</th><th>Modified</th></tr>
  <tr class="entry">
    <td class="name"><a href="../">Parent Directory</a></td>
    <td class="type">Collection</td><td class="size">-</td><td class="modified"></td>
  </tr>
  <tr class="entry">
    <td class="name"><a href="reports/">reports</a></td>
    <td class="type">Collection</td><td class="size">-</td>
    <td class="modified">2024-03-09 14:05:00</td>
  </tr>
  <tr class="entry">
    <td class="name"><a href="notes%20v2.txt">notes v2.txt</a></td>
    <td class="type">text/plain</td><td class="size">1.2 kB</td>
    <td class="modified">2024-03-10 08:00:00</td>
  </tr>
  <tr class="entry">
    <td class="name"><a href="archive/">archive</a></td>
    <td class="type">Directory</td><td class="size">-</td><td class="modified"></td>
  </tr>
</table>
</body></html>`

func names(entries []types.RemoteEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Name)
	}
	return out
}

func TestParseEmpty(t *testing.T) {
	got := Parse("")
	require.NotNil(t, got)
	assert.Empty(t, got)
}

func TestParseTableRows(t *testing.T) {
	got := Parse(tablePage)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"reports", "notes v2.txt", "archive"}, names(got))

	assert.True(t, got[0].IsDir, "Collection should be a directory")
	assert.Equal(t, "Collection", got[0].Type)
	assert.Equal(t, "reports/", got[0].Href)

	assert.False(t, got[1].IsDir)
	assert.Equal(t, "1.2 kB", got[1].Size)
	assert.Equal(t, "2024-03-10 08:00:00", got[1].Modified)
	n, ok := got[1].SizeBytes()
	assert.True(t, ok)
	assert.Equal(t, int64(1200), n)

	assert.True(t, got[2].IsDir, "type containing 'directory' should be a directory")
}

func TestParseCountsRows(t *testing.T) {
	var b strings.Builder
	b.WriteString("<table>")
	for i := 0; i < 25; i++ {
		b.WriteString(`<tr><td class="name"><a href="f.txt">f.txt</a></td><td class="type">File</td></tr>`)
	}
	b.WriteString("</table>")

	got := Parse(b.String())
	assert.Len(t, got, 25, "duplicates must pass through unfiltered")
}

func TestParseDropsParentRows(t *testing.T) {
	for _, parent := range []string{"Parent Directory", "parent directory", "..", "←"} {
		page := `<table>
<tr><td class="name"><a href="../">` + parent + `</a></td><td class="type">Collection</td></tr>
<tr><td class="name"><a href="a.txt">a.txt</a></td><td class="type">File</td></tr>
</table>`
		got := Parse(page)
		assert.Equal(t, []string{"a.txt"}, names(got), "parent %q", parent)
	}
}

func TestParseOnlyParentRowIsEmpty(t *testing.T) {
	page := `<table><tr><td class="name"><a href="../">Parent Directory</a></td><td class="type">Collection</td></tr></table>`
	got := Parse(page)
	require.NotNil(t, got)
	assert.Empty(t, got, "a recognised listing with only a parent row must not fall back")
}

func TestParseRowsWithoutTable(t *testing.T) {
	page := `<div class="listing">
  <div class="row"><span class="name"><a href="img/">img</a></span><span class="type">Collection</span></div>
  <div class="row"><span class="name"><a href="logo.png">logo.png</a></span><span class="type">image/png</span><span class="mtime">2024-01-02</span></div>
</div>`
	got := Parse(page)
	require.Len(t, got, 2)
	assert.True(t, got[0].IsDir)
	assert.False(t, got[1].IsDir)
	assert.Equal(t, "2024-01-02", got[1].Modified)
}

func TestParseRowWithoutTypeUsesHref(t *testing.T) {
	page := `<ul>
<li><span class="name"><a href="src/">src</a></span></li>
<li><span class="name"><a href="main.go">main.go</a></span></li>
</ul>`
	got := Parse(page)
	require.Len(t, got, 2)
	assert.True(t, got[0].IsDir)
	assert.False(t, got[1].IsDir)
}

func TestParseFallsBackToAnchors(t *testing.T) {
	page := `<html><body>
<h1>Index</h1>
<a href="../">Parent Directory</a>
<a href="?C=N;O=D">Name</a>
<a href="#top">top</a>
<a href="docs/">docs</a>
<a href="Makefile">Makefile</a>
<a href="readme.md"><b>readme.md</b></a>
<a href='a%20b.txt'></a>
</body></html>`
	got := Parse(page)
	require.Len(t, got, 4)
	assert.Equal(t, []string{"docs", "Makefile", "readme.md", "a b.txt"}, names(got))

	assert.True(t, got[0].IsDir, "trailing slash is a directory")
	assert.True(t, got[1].IsDir, "no dot in last segment is a directory")
	assert.False(t, got[2].IsDir)
	assert.False(t, got[3].IsDir)
}

func TestParseFallbackKeepsDuplicates(t *testing.T) {
	page := `<a href="x.txt">x.txt</a><a href="x.txt">x.txt</a>`
	assert.Len(t, Parse(page), 2)
}

func TestParseGarbageNeverPanics(t *testing.T) {
	inputs := []string{
		"<",
		"<<<>>>",
		"<a href=",
		`<a href="unterminated>broken`,
		"<table><tr><td class=name>",
		"\x00\x01\x02\xff\xfe",
		strings.Repeat("<div>", 5000),
		`<tr class="entry"><td class="name"></td></tr>`,
		"plain text, no markup at all",
	}
	for _, in := range inputs {
		assert.NotPanics(t, func() {
			got := Parse(in)
			assert.NotNil(t, got)
		}, "input %q", in)
	}
}

type panicStrategy struct{}

func (panicStrategy) Name() string { return "panic" }
func (panicStrategy) Parse(string) ([]types.RemoteEntry, error) {
	panic("boom")
}

type fixedStrategy struct {
	entries []types.RemoteEntry
	err     error
}

func (fixedStrategy) Name() string { return "fixed" }
func (s fixedStrategy) Parse(string) ([]types.RemoteEntry, error) {
	return s.entries, s.err
}

func TestParseWithRecoversPanics(t *testing.T) {
	want := []types.RemoteEntry{{Name: "ok"}}
	got := ParseWith("<html/>", panicStrategy{}, fixedStrategy{entries: want})
	assert.Equal(t, want, got)
}

func TestParseWithStrategyOrder(t *testing.T) {
	first := fixedStrategy{entries: []types.RemoteEntry{{Name: "first"}}}
	second := fixedStrategy{entries: []types.RemoteEntry{{Name: "second"}}}
	assert.Equal(t, "first", ParseWith("", first, second)[0].Name)

	failing := fixedStrategy{err: errors.New("nope")}
	assert.Equal(t, "second", ParseWith("", failing, second)[0].Name)
}

func TestParseWithAllFailing(t *testing.T) {
	got := ParseWith("x", fixedStrategy{err: ErrNoRows}, panicStrategy{})
	require.NotNil(t, got)
	assert.Empty(t, got)
}

func TestRowStrategyNoRows(t *testing.T) {
	_, err := RowStrategy{}.Parse(`<p>nothing here</p>`)
	assert.ErrorIs(t, err, ErrNoRows)
}
