package remote

import (
	"context"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/jackfish212/remotefs/internal/devserver"
	"github.com/jackfish212/remotefs/types"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRemote(t *testing.T) (*Client, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/alpha/docs/img", 0o755))
	require.NoError(t, afero.WriteFile(fs, "/alpha/docs/readme.md", []byte("# hello"), 0o644))

	srv := httptest.NewServer(devserver.New(fs, devserver.Options{Accounts: gin.Accounts{"ada": "pw"}}).Handler())
	t.Cleanup(srv.Close)

	c := New(types.Credentials{
		BaseURL:  srv.URL,
		Username: "ada",
		Password: "pw",
		Protocol: types.ProtocolHTTP,
		Project:  "alpha",
	}, WithHTTPClient(srv.Client()))
	return c, fs
}

func TestClientList(t *testing.T) {
	c, _ := setupRemote(t)
	entries, err := c.List(context.Background(), "docs")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "img", entries[0].Name)
	assert.True(t, entries[0].IsDir)
	assert.Equal(t, "readme.md", entries[1].Name)
	assert.False(t, entries[1].IsDir)
	size, ok := entries[1].SizeBytes()
	assert.True(t, ok)
	assert.Equal(t, int64(7), size)
}

func TestClientListProjectRoot(t *testing.T) {
	c, _ := setupRemote(t)
	entries, err := c.List(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "docs", entries[0].Name)
}

func TestClientListMissing(t *testing.T) {
	c, _ := setupRemote(t)
	_, err := c.List(context.Background(), "nope")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestClientWrongPasswordIsNotFound(t *testing.T) {
	c, _ := setupRemote(t)
	c.creds.Password = "wrong"
	_, err := c.List(context.Background(), "docs")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestClientReadBytes(t *testing.T) {
	c, _ := setupRemote(t)
	data, err := c.ReadBytes(context.Background(), "docs/readme.md")
	require.NoError(t, err)
	assert.Equal(t, "# hello", string(data))

	_, err = c.ReadBytes(context.Background(), "docs/missing.md")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestClientMutations(t *testing.T) {
	c, fs := setupRemote(t)
	ctx := context.Background()

	require.NoError(t, c.Mkdir(ctx, "reports", "docs"))
	ok, _ := afero.DirExists(fs, "/alpha/docs/reports")
	assert.True(t, ok, "mkdir should create the directory")

	require.NoError(t, c.Put(ctx, "q1 summary.txt", []byte("revenue up"), "docs/reports"))
	data, err := afero.ReadFile(fs, "/alpha/docs/reports/q1 summary.txt")
	require.NoError(t, err)
	assert.Equal(t, "revenue up", string(data))

	require.NoError(t, c.Rename(ctx, "q1 summary.txt", "q1 & q2.txt", "docs/reports"))
	ok, _ = afero.Exists(fs, "/alpha/docs/reports/q1 & q2.txt")
	assert.True(t, ok, "rename should move the file")

	require.NoError(t, c.Remove(ctx, "q1 & q2.txt", "docs/reports"))
	ok, _ = afero.Exists(fs, "/alpha/docs/reports/q1 & q2.txt")
	assert.False(t, ok, "remove should delete the file")
}

func TestClientMutationFailuresAreUnavailable(t *testing.T) {
	c, _ := setupRemote(t)
	ctx := context.Background()

	assert.ErrorIs(t, c.Mkdir(ctx, "x", "missing"), types.ErrUnavailable)
	assert.ErrorIs(t, c.Put(ctx, "x.txt", []byte("x"), "missing"), types.ErrUnavailable)
	assert.ErrorIs(t, c.Remove(ctx, "x.txt", "docs"), types.ErrUnavailable)
	assert.ErrorIs(t, c.Rename(ctx, "x.txt", "y.txt", "docs"), types.ErrUnavailable)
}

func TestClientTransportFailureIsLogged(t *testing.T) {
	hook := test.NewGlobal()
	defer hook.Reset()

	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c := New(types.Credentials{BaseURL: base, Username: "ada", Password: "pw"})
	_, err := c.List(context.Background(), "docs")
	require.ErrorIs(t, err, types.ErrTransport)
	assert.NotErrorIs(t, err, types.ErrNotFound)

	var found bool
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.ErrorLevel && e.Data["op"] == "list" {
			found = true
			assert.Contains(t, e.Message, "proxy")
		}
	}
	assert.True(t, found, "transport failure should be logged with guidance")
}

type captured struct {
	method, path, rawQuery string
	user, pass             string
	form                   map[string]string
	partType               string
	partData               string
}

func captureServer(t *testing.T) (*httptest.Server, *captured) {
	t.Helper()
	got := &captured{form: map[string]string{}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.method, got.path, got.rawQuery = r.Method, r.URL.EscapedPath(), r.URL.RawQuery
		got.user, got.pass, _ = r.BasicAuth()
		ct, params, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
		switch ct {
		case "application/x-www-form-urlencoded":
			_ = r.ParseForm()
			for k := range r.PostForm {
				got.form[k] = r.PostForm.Get(k)
			}
		case "multipart/form-data":
			mr := multipart.NewReader(r.Body, params["boundary"])
			for {
				p, err := mr.NextPart()
				if err != nil {
					break
				}
				data, _ := io.ReadAll(p)
				if p.FormName() == "file" {
					got.partType = p.Header.Get("Content-Type")
					got.partData = string(data)
					continue
				}
				got.form[p.FormName()] = string(data)
			}
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv, got
}

func TestClientWireFormat(t *testing.T) {
	srv, got := captureServer(t)
	ctx := context.Background()
	c := New(types.Credentials{BaseURL: srv.URL + "/", Username: "ada", Password: "pw", Project: "alpha"})

	_, err := c.List(ctx, "my docs")
	require.NoError(t, err)
	assert.Equal(t, http.MethodGet, got.method)
	assert.Equal(t, "/files/alpha/my%20docs/", got.path)
	assert.Equal(t, "ada", got.user)
	assert.Equal(t, "pw", got.pass)

	require.NoError(t, c.Mkdir(ctx, "new", "docs"))
	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, "/files/alpha/docs/", got.path)
	assert.Equal(t, map[string]string{"action": "mkcol", "name": "new"}, got.form)

	got.form = map[string]string{}
	require.NoError(t, c.Put(ctx, "a.json", []byte(`{"k":1}`), ""))
	assert.Equal(t, "/files/alpha/", got.path)
	assert.Equal(t, "put", got.form["action"])
	assert.Equal(t, "a.json", got.form["name"])
	assert.Equal(t, "application/json", got.partType)
	assert.Equal(t, `{"k":1}`, got.partData)

	require.NoError(t, c.Remove(ctx, "a.json", "docs"))
	assert.Equal(t, http.MethodGet, got.method)
	assert.Equal(t, "/files/alpha/docs/a.json/", got.path)
	assert.Equal(t, "action=delete", got.rawQuery)

	require.NoError(t, c.Rename(ctx, "a.json", "b c.json", "docs"))
	assert.Equal(t, "/files/alpha/docs/a.json", got.path)
	assert.Equal(t, "action=rename&newName=b+c.json", got.rawQuery)
}

func TestClientWebDAVScope(t *testing.T) {
	srv, got := captureServer(t)
	c := New(types.Credentials{BaseURL: srv.URL, Protocol: types.ProtocolWebDAV})
	_, err := c.List(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "/dav/", got.path)

	c = New(types.Credentials{BaseURL: srv.URL}, WithScope("/custom/"))
	_, err = c.List(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "/custom/x/", got.path)
}
