// Package listing turns the HTML directory pages served by the remote into
// structured entries.
//
// Parsing is an ordered list of strategies. Each strategy either returns
// entries or an error; the first success wins. The default list tries the
// classed-cell row layout first and falls back to a permissive anchor scan,
// so a page that is not a listing at all yields whatever links it holds and
// a page with no links yields an empty result. Parse never panics and never
// returns an error.
package listing

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackfish212/remotefs/metrics"
	"github.com/jackfish212/remotefs/types"
	"github.com/sirupsen/logrus"
)

// Strategy extracts entries from one listing page.
type Strategy interface {
	Name() string
	Parse(page string) ([]types.RemoteEntry, error)
}

// ErrNoRows is returned by a strategy that found nothing it recognises.
var ErrNoRows = errors.New("listing: no recognisable rows")

// DefaultStrategies is the order used by Parse.
func DefaultStrategies() []Strategy {
	return []Strategy{RowStrategy{}, AnchorStrategy{}}
}

// Parse extracts entries from page with the default strategies.
func Parse(page string) []types.RemoteEntry {
	return ParseWith(page, DefaultStrategies()...)
}

// ParseWith tries strategies in order and returns the first success. The
// result is never nil.
func ParseWith(page string, strategies ...Strategy) []types.RemoteEntry {
	for i, s := range strategies {
		entries, err := safeParse(s, page)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"strategy": s.Name(),
				"error":    err,
			}).Debug("listing: strategy failed")
			continue
		}
		if i > 0 {
			logrus.WithField("strategy", s.Name()).Debug("listing: parsed with fallback strategy")
		}
		metrics.ParsedWith(s.Name())
		if entries == nil {
			entries = []types.RemoteEntry{}
		}
		return entries
	}
	return []types.RemoteEntry{}
}

func safeParse(s Strategy, page string) (entries []types.RemoteEntry, err error) {
	defer func() {
		if r := recover(); r != nil {
			entries, err = nil, fmt.Errorf("listing: %s panicked: %v", s.Name(), r)
		}
	}()
	return s.Parse(page)
}

// isParentName reports whether a row names the parent directory.
func isParentName(name string) bool {
	name = strings.TrimSpace(name)
	switch name {
	case "..", "../", "←", "⬅", "↑", "⇐", "⬆", "<-", "«":
		return true
	}
	return strings.EqualFold(name, "Parent Directory")
}

// isDirType applies the server's type label convention.
func isDirType(label string) bool {
	label = strings.TrimSpace(label)
	return label == "Collection" || strings.Contains(strings.ToLower(label), "directory")
}
