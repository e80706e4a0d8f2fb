package types

import (
	"fmt"
	"time"
)

// Source records which backing store produced an Entry.
type Source uint8

const (
	SourceRemote Source = iota
	SourceVirtual
)

func (s Source) String() string {
	if s == SourceVirtual {
		return "virtual"
	}
	return "remote"
}

// Entry is the unified descriptor returned by the facade for both remote
// and virtual files and directories.
type Entry struct {
	Name     string            // base name
	Path     string            // absolute path within the facade
	IsDir    bool              // true if directory
	Size     int64             // size in bytes, 0 when unknown
	MimeType string            // MIME type hint
	Modified time.Time         // last modification time, zero when unknown
	Source   Source            // remote or virtual
	Meta     map[string]string // raw listing attributes ("type", "href")
}

// String returns a formatted ls-style line for this entry.
func (e Entry) String() string {
	dirFlag := "-"
	name := e.Name
	if e.IsDir {
		dirFlag = "d"
		name += "/"
	}
	mark := ""
	if e.Source == SourceVirtual {
		mark = " [virtual]"
	}
	return fmt.Sprintf("%s %8d%s  %s", dirFlag, e.Size, mark, name)
}
