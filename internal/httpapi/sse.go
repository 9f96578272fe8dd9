package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"enginefleet/internal/jobstore"
	"enginefleet/internal/worker"

	"github.com/google/uuid"
)

// pollInterval is how often createInstanceStream re-checks the job
// store for new events — there is no push path from the worker to the
// HTTP layer, only the shared store both sides poll.
const pollInterval = 500 * time.Millisecond

// createInstanceStream is the SSE counterpart of enqueueInstance: it
// runs the same fast-fail validation and admission checks inline (so a
// doomed request never even reaches the queue), then follows the job's
// event log until a terminal event, a timeout, or the job disappearing
// from the store. A client disconnecting only stops this handler from
// reading further — the job itself is already the worker's problem by
// the time the first event is queued.
func (h *handlers) createInstanceStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	emit := func(v interface{}) {
		data, _ := json.Marshal(v)
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	}

	q := r.URL.Query()
	name, version, err := validateIntake("create-instance-stream", q.Get("name"), q.Get("version"), h.d.Cfg.DefaultEngineVersion)
	if err != nil {
		emit(map[string]string{"status": "error", "message": errDetail(err)})
		return
	}
	location := q.Get("location")
	if location == "" {
		location = "default"
	}

	ctx := r.Context()
	capSnap, err := h.d.Manager.Capacity(ctx)
	if err != nil {
		emit(map[string]string{"status": "error", "message": errDetail(err)})
		return
	}
	if !capSnap.CanCreate {
		emit(map[string]string{"status": "error", "message": fmt.Sprintf(
			"VPS sem recursos. %d/%d instâncias ativas.", capSnap.ActiveInstances, capSnap.MaxInstances)})
		return
	}
	exists, err := h.d.Manager.Exists(ctx, name)
	if err != nil {
		emit(map[string]string{"status": "error", "message": errDetail(err)})
		return
	}
	if exists {
		emit(map[string]string{"status": "error", "message": fmt.Sprintf("Instância '%s' já existe", name)})
		return
	}

	jobID := uuid.NewString()
	if err := h.d.Jobs.Init(ctx, jobID); err != nil {
		emit(map[string]string{"status": "error", "message": errDetail(err)})
		return
	}

	payload, _ := jsonMarshal(worker.Payload{JobID: jobID, Name: name, Version: version, Location: location})
	if err := h.d.Queue.Publish(ctx, payload); err != nil {
		emit(map[string]string{"status": "error", "message": fmt.Sprintf("Erro ao enfileirar job: %v", err)})
		return
	}

	h.followJob(ctx, jobID, emit)
}

func (h *handlers) followJob(ctx context.Context, jobID string, emit func(interface{})) {
	index := 0
	deadline := time.Now().Add(h.d.Cfg.SSEMaxDuration)

	for {
		events, err := h.d.Jobs.Since(ctx, jobID, index)
		if err == nil {
			for _, ev := range events {
				emit(ev)
				index++
				if status, _ := ev["status"].(string); status == "complete" || status == "error" {
					_ = h.d.Jobs.Shorten(ctx, jobID)
					return
				}
			}
		}

		if time.Now().After(deadline) {
			emit(map[string]string{"status": "error", "message": "Timeout: criação demorou mais do tempo limite"})
			_ = h.d.Jobs.Shorten(ctx, jobID)
			return
		}

		state, err := h.d.Jobs.GetState(ctx, jobID)
		if err == nil && state == jobstore.StateUnknown {
			emit(map[string]string{"status": "error", "message": "Job perdido ou expirado"})
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(pollInterval):
		}
	}
}
