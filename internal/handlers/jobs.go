package handlers

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/xelth-com/magebridge/internal/services/scheduler"
)

func (r *Router) listJobs(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, http.StatusOK, scheduler.Jobs())
}

// runJob runs one batch job for one channel and waits for it to finish
func (r *Router) runJob(w http.ResponseWriter, req *http.Request) {
	ch, ok := r.channel(w, req)
	if !ok {
		return
	}
	if r.scheduler == nil {
		respondError(w, http.StatusServiceUnavailable, "Scheduler not available")
		return
	}

	job := mux.Vars(req)["job"]
	err := r.scheduler.RunChannelJob(req.Context(), ch, job)
	switch {
	case errors.Is(err, scheduler.ErrUnknownJob):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, scheduler.ErrBusy):
		respondError(w, http.StatusConflict, err.Error())
	case err != nil:
		r.upstreamError(w, req, "Job failed", err)
	default:
		respondJSON(w, http.StatusOK, map[string]string{"job": job, "status": "done"})
	}
}

// runJobAll runs one batch job for every active channel
func (r *Router) runJobAll(w http.ResponseWriter, req *http.Request) {
	if r.scheduler == nil {
		respondError(w, http.StatusServiceUnavailable, "Scheduler not available")
		return
	}

	job := mux.Vars(req)["job"]
	err := r.scheduler.RunJob(req.Context(), job)
	switch {
	case errors.Is(err, scheduler.ErrUnknownJob):
		respondError(w, http.StatusNotFound, err.Error())
	case err != nil:
		r.log.Warn("Job failed on some channels", zap.String("job", job), zap.Error(err))
		respondJSON(w, http.StatusMultiStatus, map[string]string{"job": job, "status": "partial", "error": err.Error()})
	default:
		respondJSON(w, http.StatusOK, map[string]string{"job": job, "status": "done"})
	}
}
