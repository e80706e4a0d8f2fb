// Package remote talks to the file server's browser-facing HTTP surface.
//
// The server has no listing API: directories are read by scraping the HTML
// page it renders for browsers, and mutations go through an action-query
// convention (POST forms and GET links carrying ?action=...). Every request
// carries HTTP Basic credentials.
package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/jackfish212/remotefs/listing"
	"github.com/jackfish212/remotefs/metrics"
	"github.com/jackfish212/remotefs/types"
	"github.com/sirupsen/logrus"
)

var _ types.Remote = (*Client)(nil)

// transportHint is appended to transport failure logs.
const transportHint = "check that the server is reachable from this host and that no proxy or cross-origin policy is blocking requests"

// ─── Client ───

// Client is bound to one set of credentials.
type Client struct {
	creds      types.Credentials
	scope      string
	client     *http.Client
	strategies []listing.Strategy
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for every request.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.client = c }
}

// WithScope overrides the URL scope segment derived from the protocol.
func WithScope(scope string) Option {
	return func(cl *Client) {
		if scope = strings.Trim(scope, "/"); scope != "" {
			cl.scope = scope
		}
	}
}

// WithStrategies replaces the listing parser strategies.
func WithStrategies(s ...listing.Strategy) Option {
	return func(cl *Client) { cl.strategies = s }
}

// New creates a Client for creds.
func New(creds types.Credentials, opts ...Option) *Client {
	c := &Client{
		creds:      creds,
		scope:      creds.Protocol.Scope(),
		client:     http.DefaultClient,
		strategies: listing.DefaultStrategies(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Credentials returns the credentials the client is bound to.
func (c *Client) Credentials() types.Credentials { return c.creds }

// ─── Operations ───

// List fetches and parses the listing page for dir.
func (c *Client) List(ctx context.Context, dir string) (entries []types.RemoteEntry, err error) {
	defer observe("list", time.Now(), &err)

	target := c.dirURL(dir)
	body, err := c.get(ctx, "list", target, types.ErrNotFound)
	if err != nil {
		return nil, err
	}
	entries = listing.ParseWith(string(body), c.strategies...)
	logrus.WithFields(logrus.Fields{"dir": dir, "entries": len(entries)}).Debug("remote: listed directory")
	return entries, nil
}

// ReadBytes fetches the raw content of a file.
func (c *Client) ReadBytes(ctx context.Context, path string) (data []byte, err error) {
	defer observe("read", time.Now(), &err)

	data, err = c.get(ctx, "read", c.itemURL(path), types.ErrNotFound)
	if err == nil {
		metrics.RecordDownload(len(data))
	}
	return data, err
}

// Mkdir creates directory name inside parent.
func (c *Client) Mkdir(ctx context.Context, name, parent string) (err error) {
	defer observe("mkdir", time.Now(), &err)

	form := url.Values{"action": {"mkcol"}, "name": {name}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.dirURL(parent), strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	_, err = c.do(req, "mkdir", types.ErrUnavailable)
	return err
}

// Put uploads data as file name inside parent, replacing any existing file.
func (c *Client) Put(ctx context.Context, name string, data []byte, parent string) (err error) {
	defer observe("put", time.Now(), &err)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("action", "put"); err != nil {
		return err
	}
	if err := mw.WriteField("name", name); err != nil {
		return err
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(name)))
	h.Set("Content-Type", mimetype.Detect(data).String())
	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	if _, err := part.Write(data); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.dirURL(parent), &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if _, err = c.do(req, "put", types.ErrUnavailable); err == nil {
		metrics.RecordUpload(len(data))
	}
	return err
}

// Remove deletes name inside parent.
func (c *Client) Remove(ctx context.Context, name, parent string) (err error) {
	defer observe("delete", time.Now(), &err)

	target := c.itemURL(joinRel(parent, name)) + "/?action=delete"
	_, err = c.get(ctx, "delete", target, types.ErrUnavailable)
	return err
}

// Rename renames oldName to newName inside parent.
func (c *Client) Rename(ctx context.Context, oldName, newName, parent string) (err error) {
	defer observe("rename", time.Now(), &err)

	target := c.itemURL(joinRel(parent, oldName)) + "?action=rename&newName=" + url.QueryEscape(newName)
	_, err = c.get(ctx, "rename", target, types.ErrUnavailable)
	return err
}

// ─── Transport ───

func (c *Client) get(ctx context.Context, op, target string, statusErr error) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	return c.do(req, op, statusErr)
}

// do sends req with credentials and maps a non-2xx status to statusErr.
func (c *Client) do(req *http.Request, op string, statusErr error) ([]byte, error) {
	req.SetBasicAuth(c.creds.Username, c.creds.Password)

	resp, err := c.client.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, ctxErr
		}
		logrus.WithFields(logrus.Fields{
			"op":    op,
			"url":   redact(req.URL),
			"error": err,
		}).Error("remote: request failed before a response was received; " + transportHint)
		return nil, fmt.Errorf("%w: %s %s: %w", types.ErrTransport, req.Method, redact(req.URL), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		logrus.WithFields(logrus.Fields{
			"op":     op,
			"url":    redact(req.URL),
			"status": resp.StatusCode,
		}).Debug("remote: non-success status")
		return nil, fmt.Errorf("%w: %s %s: %s", statusErr, req.Method, redact(req.URL), resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", types.ErrTransport, redact(req.URL), err)
	}
	return body, nil
}

func observe(op string, start time.Time, errp *error) {
	metrics.RecordRemote(op, start, *errp)
}

func escapeQuotes(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}

// redact drops any user info embedded in the URL.
func redact(u *url.URL) string {
	if u.User == nil {
		return u.String()
	}
	cp := *u
	cp.User = nil
	return cp.String()
}
