package remotefs

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/jackfish212/remotefs/overlay"
)

func TestConfigure(t *testing.T) {
	remote := newFakeRemote()
	f := New(remote, overlay.New(), WithVirtualPrefixes(DefaultVirtualPrefix, InfoDir))
	ctx := context.Background()
	creds := Credentials{BaseURL: "https://files.example.com", Username: "ada", Password: "secret", Project: "alpha"}

	if err := Configure(ctx, f, creds); err != nil {
		t.Fatalf("Configure: %v", err)
	}

	data, err := f.ReadFile(ctx, InfoDir+"/version")
	if err != nil {
		t.Fatalf("ReadFile version: %v", err)
	}
	if !strings.Contains(string(data), "remotefs version") {
		t.Errorf("version = %q", data)
	}

	data, err = f.ReadFile(ctx, InfoDir+"/connection")
	if err != nil {
		t.Fatalf("ReadFile connection: %v", err)
	}
	if strings.Contains(string(data), "secret") {
		t.Error("connection info must not contain the password")
	}
	var info map[string]string
	if err := json.Unmarshal(data, &info); err != nil {
		t.Fatalf("connection is not JSON: %v", err)
	}
	if info["project"] != "alpha" || info["facade"] != f.ID() {
		t.Errorf("connection info = %v", info)
	}
	if len(remote.callLog()) != 0 {
		t.Errorf("Configure reached the remote: %v", remote.callLog())
	}
}

func TestConfigureRequiresVirtualInfoDir(t *testing.T) {
	f := New(newFakeRemote(), overlay.New())
	err := Configure(context.Background(), f, Credentials{})
	if !errors.Is(err, ErrNotSupported) {
		t.Errorf("expected ErrNotSupported, got %v", err)
	}
}

func TestVersionInfo(t *testing.T) {
	v := GetVersionInfo()
	if v.Version == "" || v.GoVersion == "" || v.Platform == "" {
		t.Errorf("incomplete version info: %+v", v)
	}
	v.GitCommit = "0123456789abcdef"
	if !strings.Contains(v.String(), "(01234567)") {
		t.Errorf("String() should abbreviate the commit: %q", v.String())
	}
}
