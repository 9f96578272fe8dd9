package httpapi

import (
	"net/http"
	"strconv"

	"enginefleet/internal/jobstore"

	"github.com/go-chi/chi/v5"
)

// listJobs reports every job the store still considers pending or
// running, deriving a progress summary from its event log — there is
// no separate job metadata table, the event log is the only record.
func (h *handlers) listJobs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ids, err := h.d.Jobs.List(ctx)
	if err != nil {
		writeAppErr(w, err)
		return
	}

	jobs := make([]map[string]interface{}, 0, len(ids))
	for _, jobID := range ids {
		state, err := h.d.Jobs.GetState(ctx, jobID)
		if err != nil || state == jobstore.StateUnknown {
			continue
		}
		events, err := h.d.Jobs.Since(ctx, jobID, 0)
		if err != nil {
			continue
		}

		var lastMessage, name string
		var progress interface{}
		if len(events) > 0 {
			last := events[len(events)-1]
			lastMessage, _ = last["message"].(string)
			progress = last["progress"]
		}
		for _, ev := range events {
			if n, ok := ev["name"].(string); ok && n != "" {
				name = n
				break
			}
		}

		jobs = append(jobs, map[string]interface{}{
			"job_id":       jobID,
			"state":        state,
			"progress":     progress,
			"last_message": lastMessage,
			"name":         name,
			"event_count":  len(events),
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"jobs": jobs})
}

// jobEvents returns the events recorded since index, cleaning up the
// job's keys early once it has reached a terminal state — the same
// thing a terminal SSE frame does, for callers that poll instead of
// stream.
func (h *handlers) jobEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	jobID := chi.URLParam(r, "job_id")

	since := 0
	if raw := r.URL.Query().Get("since"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			since = n
		}
	}

	state, err := h.d.Jobs.GetState(ctx, jobID)
	if err != nil {
		writeAppErr(w, err)
		return
	}
	if state == jobstore.StateUnknown {
		writeError(w, http.StatusNotFound, "Job não encontrado ou expirado")
		return
	}

	events, err := h.d.Jobs.Since(ctx, jobID, since)
	if err != nil {
		writeAppErr(w, err)
		return
	}
	if state == jobstore.StateComplete || state == jobstore.StateError {
		_ = h.d.Jobs.Shorten(ctx, jobID)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"state":      state,
		"events":     events,
		"next_index": since + len(events),
	})
}
