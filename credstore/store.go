// Package credstore persists session credentials in two independent stores
// and reconciles them.
//
// The secure store is authoritative. When only one store holds credentials
// the other is back-filled; when both hold (possibly different) values the
// secure store's value is used and neither store is changed. Fields are never
// merged across stores.
package credstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackfish212/remotefs/types"
	"github.com/sirupsen/logrus"
)

// DefaultKey is the identifier credentials are stored under.
const DefaultKey = "remotefs.credentials"

// Store is a key-value slot holding one set of credentials.
type Store interface {
	Name() string
	// Load reports false when no credentials are stored.
	Load(ctx context.Context) (types.Credentials, bool, error)
	Save(ctx context.Context, c types.Credentials) error
	Clear(ctx context.Context) error
}

// Reconcile loads credentials from both stores and back-fills whichever
// is empty. A store that fails to load is treated as empty; an error is
// returned only when neither store could be read.
func Reconcile(ctx context.Context, secure, fallback Store) (types.Credentials, bool, error) {
	s, sok, serr := secure.Load(ctx)
	if serr != nil {
		logrus.WithFields(logrus.Fields{"store": secure.Name(), "error": serr}).Warn("credstore: load failed, treating store as empty")
		sok = false
	}
	f, fok, ferr := fallback.Load(ctx)
	if ferr != nil {
		logrus.WithFields(logrus.Fields{"store": fallback.Name(), "error": ferr}).Warn("credstore: load failed, treating store as empty")
		fok = false
	}
	if serr != nil && ferr != nil {
		return types.Credentials{}, false, errors.Join(serr, ferr)
	}

	switch {
	case sok && fok:
		if s != f {
			logrus.WithField("store", secure.Name()).Debug("credstore: stores disagree, using secure store")
		}
		return s, true, nil
	case sok:
		backfill(ctx, fallback, s)
		return s, true, nil
	case fok:
		backfill(ctx, secure, f)
		return f, true, nil
	}
	return types.Credentials{}, false, nil
}

func backfill(ctx context.Context, dst Store, c types.Credentials) {
	if err := dst.Save(ctx, c); err != nil {
		logrus.WithFields(logrus.Fields{"store": dst.Name(), "error": err}).Warn("credstore: back-fill failed")
		return
	}
	logrus.WithField("store", dst.Name()).Debug("credstore: back-filled credentials")
}

// SaveAll writes c to every store.
func SaveAll(ctx context.Context, c types.Credentials, stores ...Store) error {
	var errs []error
	for _, s := range stores {
		if err := s.Save(ctx, c); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// ClearAll clears every store.
func ClearAll(ctx context.Context, stores ...Store) error {
	var errs []error
	for _, s := range stores {
		if err := s.Clear(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}
