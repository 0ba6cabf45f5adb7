package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/creamcroissant/monitord/internal/repository"
)

// resolveHost loads the host named by the {id} route param, accepting
// either a numeric host ID or a host name so operators can script against
// either form. Writes the error response itself and returns ok=false when
// resolution fails.
func resolveHost(w http.ResponseWriter, r *http.Request, store repository.Store) (*repository.Host, bool) {
	raw := chi.URLParam(r, "id")
	if raw == "" {
		respondError(w, http.StatusBadRequest, "host id is required")
		return nil, false
	}

	ctx := r.Context()
	if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
		host, err := store.Hosts().FindByID(ctx, id)
		if err != nil {
			handleHostLookupErr(w, err)
			return nil, false
		}
		return host, true
	}

	host, err := store.Hosts().FindByName(ctx, raw)
	if err != nil {
		handleHostLookupErr(w, err)
		return nil, false
	}
	return host, true
}

func handleHostLookupErr(w http.ResponseWriter, err error) {
	if err == repository.ErrNotFound {
		respondNotFound(w, "host")
		return
	}
	respondFromErr(w, err)
}

// resolveAnomalyID parses the {id} route param as the numeric anomaly ID;
// anomalies, unlike hosts, have no name to fall back to.
func resolveAnomalyID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "anomaly id must be numeric")
		return 0, false
	}
	return id, true
}

func actorFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(actorContextKey{}).(string); ok && v != "" {
		return v
	}
	return "api"
}

// actorContextKey tags the operator identity attached to a request by
// upstream auth middleware, if any is configured; absent one, mutation
// handlers attribute audit events to the generic "api" actor.
type actorContextKey struct{}
