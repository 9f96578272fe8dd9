package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"enginefleet/internal/apperr"
	"enginefleet/internal/instance"
	"enginefleet/internal/utils"
	"enginefleet/internal/worker"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type createRequest struct {
	Name     string `json:"name"`
	Version  string `json:"version"`
	Location string `json:"location"`
}

// checkAdmission runs the two fast-fail checks every create path
// shares — capacity, then duplicate — before anything is enqueued or
// built, so a client gets an immediate, specific rejection instead of
// waiting on a job that was doomed from the start.
func (h *handlers) checkAdmission(w http.ResponseWriter, r *http.Request, name string) bool {
	ctx := r.Context()

	capSnap, err := h.d.Manager.Capacity(ctx)
	if err != nil {
		writeAppErr(w, err)
		return false
	}
	if !capSnap.CanCreate {
		writeAppErr(w, apperr.Capacity("intake", fmt.Errorf(
			"VPS sem recursos. %d/%d instâncias ativas.", capSnap.ActiveInstances, capSnap.MaxInstances)))
		return false
	}

	exists, err := h.d.Manager.Exists(ctx, name)
	if err != nil {
		writeAppErr(w, err)
		return false
	}
	if exists {
		writeAppErr(w, apperr.Duplicate("intake", fmt.Errorf("Instância '%s' já existe", name)))
		return false
	}
	return true
}

// enqueueInstance validates and admission-checks synchronously, then
// hands the actual build off to the worker and returns immediately —
// the async path a client follows via GET /job/{id}/events.
func (h *handlers) enqueueInstance(w http.ResponseWriter, r *http.Request) {
	var body createRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "corpo da requisição inválido")
		return
	}

	name, version, err := validateIntake("enqueue-instance", body.Name, body.Version, h.d.Cfg.DefaultEngineVersion)
	if err != nil {
		writeAppErr(w, err)
		return
	}
	if !h.checkAdmission(w, r, name) {
		return
	}
	if body.Location == "" {
		body.Location = "default"
	}

	jobID := uuid.NewString()
	ctx := r.Context()
	if err := h.d.Jobs.Init(ctx, jobID); err != nil {
		writeAppErr(w, apperr.New("enqueue-instance", apperr.KindRuntimeTransient, err))
		return
	}

	payload, err := jsonMarshal(worker.Payload{JobID: jobID, Name: name, Version: version, Location: body.Location})
	if err != nil {
		writeAppErr(w, apperr.New("enqueue-instance", apperr.KindRuntimeTransient, err))
		return
	}
	if err := h.d.Queue.Publish(ctx, payload); err != nil {
		writeAppErr(w, apperr.New("enqueue-instance", apperr.KindRuntimeTransient, fmt.Errorf("erro ao enfileirar job: %w", err)))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"job_id": jobID, "name": name})
}

// createInstance builds the instance synchronously and returns once
// the container is running — no readiness wait, no job tracking. It
// exists for callers that would rather block than poll.
func (h *handlers) createInstance(w http.ResponseWriter, r *http.Request) {
	var body createRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "corpo da requisição inválido")
		return
	}

	name, version, err := validateIntake("create-instance", body.Name, body.Version, h.d.Cfg.DefaultEngineVersion)
	if err != nil {
		writeAppErr(w, err)
		return
	}
	if !h.checkAdmission(w, r, name) {
		return
	}

	ctx := r.Context()
	key, err := utils.GenerateEncryptionKey()
	if err != nil {
		writeAppErr(w, apperr.New("create-instance", apperr.KindRuntimeTransient, err))
		return
	}
	c, err := h.d.Manager.Create(ctx, name, version, key, time.Now())
	if err != nil {
		writeAppErr(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"instance_id":      name,
		"url":              instance.URL(name, h.d.Cfg.BaseDomain, instance.Scheme(h.d.Cfg.SSLEnabled)),
		"status":           c.Status,
		"location":         "default",
		"container_status": "running",
	})
}

func (h *handlers) deleteInstance(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := h.d.Manager.Remove(r.Context(), name); err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("Instância '%s' não encontrada", name))
			return
		}
		writeAppErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":     "Instância excluída com sucesso",
		"instance_id": name,
	})
}

func (h *handlers) instanceStatus(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	ctx := r.Context()

	c, err := h.d.Manager.Get(ctx, name)
	if err != nil {
		writeNotFound(w, err, "Instância não encontrada")
		return
	}

	stats, err := h.d.Runtime.StatsOnce(ctx, c.Name)
	if err != nil {
		stats = dockerStatsZero()
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"instance_id": name,
		"status":      c.Status,
		"url":         instance.URL(name, h.d.Cfg.BaseDomain, instance.Scheme(h.d.Cfg.SSLEnabled)),
		"location":    "default",
		"version":     versionOf(c.Image),
		"memory": map[string]interface{}{
			"usage_mb": bytesToMB(stats.MemUsageBytes),
			"limit_mb": bytesToMB(stats.MemLimitBytes),
		},
	})
}

const restartTimeout = 15 * time.Second

func (h *handlers) restartInstance(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := h.d.Manager.Restart(r.Context(), name, restartTimeout); err != nil {
		writeNotFound(w, err, "Instância não encontrada")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"message": "Instância reiniciada", "instance_id": name})
}

type versionRequest struct {
	Version string `json:"version"`
}

func (h *handlers) resetInstance(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	var body versionRequest
	_ = decodeJSON(r, &body)
	if body.Version == "" {
		body.Version = "latest"
	}

	if _, err := h.d.Manager.Reset(r.Context(), name, body.Version); err != nil {
		writeNotFound(w, err, "Instância não encontrada")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":     "Instância resetada",
		"instance_id": name,
		"url":         instance.URL(name, h.d.Cfg.BaseDomain, instance.Scheme(h.d.Cfg.SSLEnabled)),
	})
}

func (h *handlers) updateVersion(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	var body versionRequest
	_ = decodeJSON(r, &body)
	if body.Version == "" {
		body.Version = "latest"
	}

	if _, err := h.d.Manager.Rebuild(r.Context(), name, body.Version); err != nil {
		writeNotFound(w, err, "Instância não encontrada")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":     fmt.Sprintf("Versão atualizada para %s", body.Version),
		"instance_id": name,
	})
}

const maxLogTail = 200

func (h *handlers) instanceLogs(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	tail := queryInt(r, "tail", 50)
	if tail > maxLogTail {
		tail = maxLogTail
	}

	logs, err := h.d.Manager.Logs(r.Context(), name, tail)
	if err != nil {
		writeNotFound(w, err, "Instância não encontrada")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"instance_id": name, "logs": logs})
}

func writeNotFound(w http.ResponseWriter, err error, detail string) {
	if apperr.Is(err, apperr.KindNotFound) {
		writeError(w, http.StatusNotFound, detail)
		return
	}
	writeAppErr(w, err)
}
