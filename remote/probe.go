package remote

import (
	"context"
	"io"
	"net/http"

	"github.com/jackfish212/remotefs/types"
	"github.com/sirupsen/logrus"
)

// Probe checks whether creds are accepted by the server.
//
// A 2xx answer is success and 401/403 (or any other status) is failure.
// A request that never gets a response counts as success: deployments that
// sit behind cross-origin restrictions cannot be probed, and the first real
// operation will surface the problem instead.
func Probe(ctx context.Context, creds types.Credentials, opts ...Option) (bool, error) {
	c := New(creds, opts...)
	target := c.root() + "/"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return false, err
	}
	req.SetBasicAuth(creds.Username, creds.Password)

	log := logrus.WithFields(logrus.Fields{"url": target, "user": creds.Username})
	resp, err := c.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
		log.WithField("error", err).Warn("remote: probe got no response, assuming credentials are valid; " + transportHint)
		return true, nil
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode <= 299:
		log.Debug("remote: probe succeeded")
		return true, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		log.WithField("status", resp.StatusCode).Warn("remote: credentials rejected")
		return false, nil
	default:
		log.WithField("status", resp.StatusCode).Warn("remote: probe failed")
		return false, nil
	}
}
