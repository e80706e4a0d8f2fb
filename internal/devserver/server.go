// Package devserver is a small file server that speaks the same browser
// oriented protocol as the production remote: HTML listings with classed
// cells, and mutations through ?action= links and forms. It backs the CLI's
// devserver command and the client tests.
package devserver

import (
	"errors"
	"html/template"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/jackfish212/remotefs/metrics"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

const listingTemplate = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Index of {{.Path}}</title></head>
<body>
<h1>Index of {{.Path}}</h1>
<table>
<tr><th>Name</th><th>Type</th><th>Size</th><th>Modified</th></tr>
{{- if .Parent}}
<tr class="entry"><td class="name"><a href="../">Parent Directory</a></td><td class="type">Collection</td><td class="size">-</td><td class="modified"></td></tr>
{{- end}}
{{- range .Entries}}
<tr class="entry"><td class="name"><a href="{{.Href}}">{{.Name}}</a></td><td class="type">{{.Type}}</td><td class="size">{{.Size}}</td><td class="modified">{{.Modified}}</td></tr>
{{- end}}
</table>
</body>
</html>
`

// Options configures a Server.
type Options struct {
	// Scope is the first path segment of every route (default "files").
	Scope string
	// Accounts enables Basic auth when non-empty.
	Accounts gin.Accounts
}

// Server serves an afero filesystem.
type Server struct {
	fs     afero.Fs
	opts   Options
	engine *gin.Engine
}

// New creates a Server over fsys. Paths inside fsys are absolute, the first
// segment acting as the project.
func New(fsys afero.Fs, opts Options) *Server {
	if opts.Scope == "" {
		opts.Scope = "files"
	}
	opts.Scope = strings.Trim(opts.Scope, "/")

	gin.SetMode(gin.ReleaseMode)
	s := &Server{fs: fsys, opts: opts, engine: gin.New()}
	s.engine.Use(gin.Recovery(), requestLogger())
	s.engine.SetHTMLTemplate(template.Must(template.New("listing").Parse(listingTemplate)))

	g := s.engine.Group("/" + opts.Scope)
	if len(opts.Accounts) > 0 {
		g.Use(gin.BasicAuth(opts.Accounts))
	}
	g.GET("/*path", s.handleGet)
	g.POST("/*path", s.handlePost)
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.engine }

// Run listens on addr until the listener fails.
func (s *Server) Run(addr string) error {
	logrus.WithFields(logrus.Fields{"addr": addr, "scope": s.opts.Scope}).Info("devserver: listening")
	return s.engine.Run(addr)
}

// ─── Handlers ───

func (s *Server) handleGet(c *gin.Context) {
	p := cleanPath(c.Param("path"))
	switch c.Query("action") {
	case "":
		s.serve(c, p)
	case "delete":
		s.remove(c, p)
	case "rename":
		s.rename(c, p, c.Query("newName"))
	default:
		c.String(http.StatusBadRequest, "unknown action")
	}
}

func (s *Server) handlePost(c *gin.Context) {
	dir := cleanPath(c.Param("path"))
	info, err := s.fs.Stat(dir)
	if err != nil || !info.IsDir() {
		c.String(http.StatusNotFound, "no such directory")
		return
	}
	switch c.PostForm("action") {
	case "mkcol":
		s.mkcol(c, dir, c.PostForm("name"))
	case "put":
		s.put(c, dir)
	default:
		c.String(http.StatusBadRequest, "unknown action")
	}
}

func (s *Server) serve(c *gin.Context, p string) {
	info, err := s.fs.Stat(p)
	if err != nil {
		c.String(statusFor(err), err.Error())
		return
	}
	if info.IsDir() {
		s.list(c, p)
		return
	}
	data, err := afero.ReadFile(s.fs, p)
	if err != nil {
		c.String(statusFor(err), err.Error())
		return
	}
	c.Data(http.StatusOK, mimetype.Detect(data).String(), data)
}

type listingRow struct {
	Name, Href, Type, Size, Modified string
}

func (s *Server) list(c *gin.Context, dir string) {
	infos, err := afero.ReadDir(s.fs, dir)
	if err != nil {
		c.String(statusFor(err), err.Error())
		return
	}
	rows := make([]listingRow, 0, len(infos))
	for _, fi := range infos {
		row := listingRow{
			Name:     fi.Name(),
			Href:     url.PathEscape(fi.Name()),
			Modified: fi.ModTime().UTC().Format("2006-01-02 15:04:05"),
		}
		if fi.IsDir() {
			row.Href += "/"
			row.Type = "Collection"
			row.Size = "-"
		} else {
			row.Type = typeByName(fi.Name())
			row.Size = humanize.Bytes(uint64(fi.Size()))
		}
		rows = append(rows, row)
	}
	c.HTML(http.StatusOK, "listing", gin.H{
		"Path":    dir,
		"Parent":  dir != "/",
		"Entries": rows,
	})
}

func (s *Server) mkcol(c *gin.Context, dir, name string) {
	if !validName(name) {
		c.String(http.StatusBadRequest, "invalid name")
		return
	}
	target := path.Join(dir, name)
	if _, err := s.fs.Stat(target); err == nil {
		c.String(http.StatusConflict, "already exists")
		return
	}
	if err := s.fs.Mkdir(target, 0o755); err != nil {
		c.String(statusFor(err), err.Error())
		return
	}
	logrus.WithField("path", target).Debug("devserver: created directory")
	c.String(http.StatusCreated, "created")
}

func (s *Server) put(c *gin.Context, dir string) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.String(http.StatusBadRequest, "missing file part")
		return
	}
	name := c.PostForm("name")
	if name == "" {
		name = fh.Filename
	}
	if !validName(name) {
		c.String(http.StatusBadRequest, "invalid name")
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}
	target := path.Join(dir, name)
	if info, err := s.fs.Stat(target); err == nil && info.IsDir() {
		c.String(http.StatusConflict, "is a directory")
		return
	}
	if err := afero.WriteFile(s.fs, target, data, 0o644); err != nil {
		c.String(statusFor(err), err.Error())
		return
	}
	logrus.WithFields(logrus.Fields{"path": target, "size": len(data)}).Debug("devserver: stored file")
	c.String(http.StatusCreated, "stored")
}

func (s *Server) remove(c *gin.Context, p string) {
	if p == "/" {
		c.String(http.StatusForbidden, "refusing to delete root")
		return
	}
	if _, err := s.fs.Stat(p); err != nil {
		c.String(statusFor(err), err.Error())
		return
	}
	if err := s.fs.RemoveAll(p); err != nil {
		c.String(statusFor(err), err.Error())
		return
	}
	logrus.WithField("path", p).Debug("devserver: deleted")
	c.String(http.StatusOK, "deleted")
}

func (s *Server) rename(c *gin.Context, p, newName string) {
	if p == "/" || !validName(newName) {
		c.String(http.StatusBadRequest, "invalid name")
		return
	}
	if _, err := s.fs.Stat(p); err != nil {
		c.String(statusFor(err), err.Error())
		return
	}
	target := path.Join(path.Dir(p), newName)
	if _, err := s.fs.Stat(target); err == nil {
		c.String(http.StatusConflict, "already exists")
		return
	}
	if err := s.fs.Rename(p, target); err != nil {
		c.String(statusFor(err), err.Error())
		return
	}
	logrus.WithFields(logrus.Fields{"from": p, "to": target}).Debug("devserver: renamed")
	c.String(http.StatusOK, "renamed")
}

// ─── Helpers ───

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		action := c.Query("action")
		if c.Request.Method == http.MethodPost {
			action = c.PostForm("action")
		}
		status := c.Writer.Status()
		metrics.RecordDevRequest(c.Request.Method, action, status)
		logrus.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"action":   action,
			"status":   status,
			"duration": time.Since(start),
		}).Debug("devserver: request")
	}
}

func cleanPath(p string) string {
	return path.Clean("/" + p)
}

func validName(name string) bool {
	return name != "" && name != "." && name != ".." && !strings.ContainsAny(name, `/\`)
}

func typeByName(name string) string {
	if t := mime.TypeByExtension(path.Ext(name)); t != "" {
		if i := strings.IndexByte(t, ';'); i >= 0 {
			t = t[:i]
		}
		return t
	}
	return "File"
}

func statusFor(err error) int {
	if errors.Is(err, os.ErrNotExist) {
		return http.StatusNotFound
	}
	if errors.Is(err, os.ErrPermission) {
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}
