package api

import (
	"net/http"

	"github.com/holocron/tracker/tracker"
)

// Dump handles GET /api/dump: every role, script and game with nested roles.
func (h *Handler) Dump(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var snap tracker.Snapshot
	err := h.Store.WithTx(ctx, func(tx tracker.Tx) error {
		var err error
		snap, err = tracker.Export(ctx, tx)
		return err
	})
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDumpDTO(snap))
}

// Load handles POST /api/load. The document is imported in one transaction;
// any failure leaves the store untouched.
func (h *Handler) Load(w http.ResponseWriter, r *http.Request) {
	var req LoadRequest
	if !decodeBody(w, r, &req) {
		return
	}
	snap, err := req.toDomain()
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}

	ctx := r.Context()
	var sum tracker.ImportSummary
	err = h.Store.WithTx(ctx, func(tx tracker.Tx) error {
		var err error
		sum, err = tracker.Import(ctx, tx, snap)
		return err
	})
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	h.Log.InfoContext(ctx, "dump loaded",
		"roles", sum.Roles, "scripts", sum.Scripts, "games", sum.Games)
	writeJSON(w, http.StatusCreated, sum)
}

// Stats handles GET /api/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var st tracker.Stats
	err := h.Store.WithTx(ctx, func(tx tracker.Tx) error {
		var err error
		st, err = tracker.LoadStats(ctx, tx)
		return err
	})
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// Health handles GET /healthz.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Ping(r.Context()); err != nil {
		h.Log.ErrorContext(r.Context(), "health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
