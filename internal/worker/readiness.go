package worker

import (
	"context"
	"crypto/tls"
	"net/http"
	"time"
)

// readinessChecker is the seam tests substitute a fake behind; the
// real implementation is readinessProbe.
type readinessChecker interface {
	ready(ctx context.Context, url string) bool
}

// readinessProbe issues a short-timeout GET against an instance's
// public URL, treating HTTP 200 as ready. TLS certificate errors are
// swallowed: the proxy may still be in the middle of issuing the
// certificate, and a cert error here does not mean the engine itself
// isn't up.
type readinessProbe struct {
	client *http.Client
}

func newReadinessProbe() *readinessProbe {
	return &readinessProbe{
		client: &http.Client{
			Timeout: 5 * time.Second,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec
			},
		},
	}
}

func (p *readinessProbe) ready(ctx context.Context, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
