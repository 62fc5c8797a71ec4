package main

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/lustrefs/manager/pkg/api"
	"github.com/lustrefs/manager/pkg/document"
	"github.com/lustrefs/manager/pkg/logger"
)

// newMux wires the minimal HTTP binding to api.Manager. spec.md section 6
// specifies only the Manager interface itself and scopes the HTTP/GraphQL
// surface out as an external collaborator; this handler exists so the
// daemon is reachable at all during local development, not as that
// surface's implementation. No HTTP framework appears anywhere in the
// retrieved pack, so this stays on net/http rather than reaching for one.
func newMux(mgr api.Manager, log *logger.Logger) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /commands", func(w http.ResponseWriter, r *http.Request) {
		doc, err := document.Parse(r.Body)
		if err != nil {
			writeError(w, log, http.StatusBadRequest, err)
			return
		}

		id, err := mgr.Run(r.Context(), doc)
		if err != nil {
			writeError(w, log, http.StatusUnprocessableEntity, err)
			return
		}

		writeJSON(w, log, http.StatusAccepted, map[string]int64{"command_id": id})
	})

	mux.HandleFunc("GET /commands/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil {
			writeError(w, log, http.StatusBadRequest, err)
			return
		}

		plan, state, err := mgr.Query(r.Context(), id)
		if err != nil {
			writeError(w, log, http.StatusNotFound, err)
			return
		}

		writeJSON(w, log, http.StatusOK, map[string]interface{}{"plan": plan, "state": state.String()})
	})

	mux.HandleFunc("POST /commands/{id}/cancel", func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil {
			writeError(w, log, http.StatusBadRequest, err)
			return
		}

		if err := mgr.Cancel(r.Context(), id); err != nil {
			writeError(w, log, http.StatusNotFound, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	})

	return mux
}

func writeJSON(w http.ResponseWriter, log *logger.Logger, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warnw("failed to write json response", "err", err)
	}
}

func writeError(w http.ResponseWriter, log *logger.Logger, status int, err error) {
	log.Debugw("request failed", "status", status, "err", err)
	writeJSON(w, log, status, map[string]string{"error": strings.TrimSpace(err.Error())})
}
