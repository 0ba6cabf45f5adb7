// Package handler implements the read API's HTTP handlers: live metrics,
// downsampled history, the anomaly-status summary, heartbeat ingestion,
// and the operator mutation endpoints (thresholds, suspend/resume,
// alert suppression, anomaly resolution).
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/creamcroissant/monitord/internal/alert"
	"github.com/creamcroissant/monitord/internal/collector"
	"github.com/creamcroissant/monitord/internal/repository"
	"github.com/creamcroissant/monitord/internal/sshexec"
	"github.com/creamcroissant/monitord/internal/status"
)

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Warn("failed to encode response JSON", "error", err)
	}
}

func respondError(w http.ResponseWriter, code int, message string) {
	respondJSON(w, code, map[string]any{"error": message})
}

// respondNotFound writes the standard NOT_FOUND shape used whenever a
// {id} path param fails to resolve to a known host or anomaly.
func respondNotFound(w http.ResponseWriter, what string) {
	respondError(w, http.StatusNotFound, what+" not found")
}

// respondFromErr maps a component error into the HTTP status/kind table
// from spec §7: STORE_ERROR/CACHE_ERROR/CONFIG_ERROR -> 500/400,
// not-found sentinels -> 404, everything else -> 500/INTERNAL. Cache
// failures never reach here; components already downgrade them to
// warnings and read through to the store.
func respondFromErr(w http.ResponseWriter, err error) {
	if errors.Is(err, repository.ErrNotFound) {
		respondNotFound(w, "resource")
		return
	}

	var sshErr *sshexec.Error
	if errors.As(err, &sshErr) {
		switch sshErr.Kind {
		case sshexec.KindAuthFailed:
			respondError(w, http.StatusForbidden, err.Error())
		case sshexec.KindTimeout, sshexec.KindUnreachable:
			respondError(w, http.StatusGatewayTimeout, err.Error())
		default:
			respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	var collErr *collector.Error
	if errors.As(err, &collErr) {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var alertErr *alert.Error
	if errors.As(err, &alertErr) {
		switch alertErr.Kind {
		case alert.KindConfigError:
			respondError(w, http.StatusBadRequest, err.Error())
		default:
			respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	var statusErr *status.Error
	if errors.As(err, &statusErr) {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondError(w, http.StatusInternalServerError, err.Error())
}

func decodeJSON(r *http.Request, dest any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dest)
}
