package remotefs

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime"
	"time"
)

// DefaultVirtualPrefix is the staging namespace kept out of the remote.
const DefaultVirtualPrefix = "/.staging"

// InfoDir holds the synthesized files written by Configure.
const InfoDir = "/.remotefs"

// Configure seeds the overlay with read-only information files describing
// the build and the session the Facade is bound to:
//
//	/.remotefs/version      build and runtime details
//	/.remotefs/connection   the session's server, user and project as JSON
//
// InfoDir must be among the Facade's virtual prefixes.
func Configure(ctx context.Context, f *Facade, creds Credentials) error {
	if !f.IsVirtual(InfoDir) {
		return fmt.Errorf("%w: %s is not a virtual prefix", ErrNotSupported, InfoDir)
	}
	if err := f.WriteFile(ctx, InfoDir+"/version", []byte(GetVersionInfo().String()+"\n")); err != nil {
		return err
	}
	conn, err := json.MarshalIndent(struct {
		BaseURL  string   `json:"baseUrl"`
		Username string   `json:"username"`
		Protocol Protocol `json:"protocol"`
		Project  string   `json:"project,omitempty"`
		Facade   string   `json:"facade"`
	}{creds.BaseURL, creds.Username, creds.Protocol, creds.Project, f.ID()}, "", "  ")
	if err != nil {
		return err
	}
	return f.WriteFile(ctx, InfoDir+"/connection", append(conn, '\n'))
}

// ─── Version info ───

var (
	version   = "dev"
	buildDate = ""
	gitCommit = ""
)

type VersionInfo struct {
	Version   string
	BuildDate string
	GitCommit string
	GoVersion string
	Platform  string
}

func GetVersionInfo() VersionInfo {
	bd := buildDate
	if bd == "" {
		bd = time.Now().Format("2006-01-02")
	}
	return VersionInfo{
		Version:   version,
		BuildDate: bd,
		GitCommit: gitCommit,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

func (v VersionInfo) String() string {
	commit := v.GitCommit
	if commit != "" && len(commit) > 8 {
		commit = commit[:8]
	}
	if commit != "" {
		commit = " (" + commit + ")"
	}
	return fmt.Sprintf("remotefs version %s%s (Go %s, %s) built %s",
		v.Version, commit, v.GoVersion, v.Platform, v.BuildDate)
}
