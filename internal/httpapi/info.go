package httpapi

import (
	"net/http"
	"time"

	"enginefleet/internal/instance"
)

func (h *handlers) fetcher() versionsFetcher {
	if h.d.versions != nil {
		return h.d.versions
	}
	return newDockerHubVersions()
}

// health is the one public, unauthenticated endpoint: a liveness probe
// that also reports whether Redis and the container runtime are
// reachable, without requiring a bearer token to find out the service
// is up.
func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{"api": "ok"}

	if err := h.d.Jobs.Ping(r.Context()); err != nil {
		checks["redis"] = "error"
	} else {
		checks["redis"] = "ok"
	}

	if err := h.d.Runtime.HealthCheck(r.Context()); err != nil {
		checks["docker"] = "error"
	} else {
		checks["docker"] = "ok"
	}

	status := "ok"
	for _, v := range checks {
		if v != "ok" {
			status = "degraded"
			break
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    status,
		"checks":    checks,
		"timestamp": time.Now().Unix(),
	})
}

func (h *handlers) versions(w http.ResponseWriter, r *http.Request) {
	versions, err := h.fetcher().Fetch(r.Context())
	if err != nil || len(versions) == 0 {
		versions = []versionOption{{ID: "latest", Name: "Última versão (latest)"}}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"versions": versions})
}

// locations is a static list: this service only ever runs a single
// host, so there is exactly one location to offer.
func (h *handlers) locations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"locations": []map[string]interface{}{
			{"id": "default", "name": h.d.Cfg.BaseDomain, "active": true},
		},
	})
}

func (h *handlers) listInstances(w http.ResponseWriter, r *http.Request) {
	views, err := h.d.Manager.List(r.Context())
	if err != nil {
		writeAppErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"instances": views})
}

func (h *handlers) capacity(w http.ResponseWriter, r *http.Request) {
	capSnap, err := h.d.Manager.Capacity(r.Context())
	if err != nil {
		writeAppErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, capSnap)
}

// cleanupPreview augments every instance with the sweeper's own
// eviction arithmetic, so an operator can see what the next sweep
// would do without waiting for it to run.
func (h *handlers) cleanupPreview(w http.ResponseWriter, r *http.Request) {
	capSnap, err := h.d.Manager.Capacity(r.Context())
	if err != nil {
		writeAppErr(w, err)
		return
	}

	maxAge := h.d.Cfg.CleanupMaxAgeDays
	entries := make([]instance.CleanupPreviewEntry, 0, len(capSnap.Instances))
	for _, v := range capSnap.Instances {
		entry := instance.CleanupPreviewEntry{View: v}
		if v.AgeDays != nil {
			entry.WillBeDeleted = *v.AgeDays >= maxAge
			entry.DaysRemaining = maxAge - *v.AgeDays
			if entry.DaysRemaining < 0 {
				entry.DaysRemaining = 0
			}
		}
		entries = append(entries, entry)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"instances": entries})
}

func (h *handlers) systemInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.d.Runtime.Info(r.Context())
	if err != nil {
		writeAppErr(w, err)
		return
	}
	capSnap, err := h.d.Manager.Capacity(r.Context())
	if err != nil {
		writeAppErr(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"docker": map[string]interface{}{
			"version": info.ServerVersion,
		},
		"capacity":    capSnap,
		"ssl_enabled": h.d.Cfg.SSLEnabled,
		"protocol":    instance.Scheme(h.d.Cfg.SSLEnabled),
	})
}
