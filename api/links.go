package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/holocron/tracker/tracker"
)

// =============================================================================
// RAW LINKS
// =============================================================================

// CreateLink handles POST /api/{games|scripts}/roles. The row is inserted
// as given: a second link between the same owner and role is accepted.
func (h *Handler) CreateLink(kind tracker.OwnerKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LinkRequest
		if !decodeBody(w, r, &req) {
			return
		}
		a, err := req.toDomain(kind)
		if err != nil {
			h.writeStoreError(w, r, err)
			return
		}
		ctx := r.Context()
		err = h.Store.WithTx(ctx, func(tx tracker.Tx) error {
			a, err = tracker.Links(tx, kind).Create(ctx, a)
			return err
		})
		if err != nil {
			h.writeStoreError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, toLinkDTO(kind, a))
	}
}

// CreateLinks handles POST /api/{games|scripts}/roles/bulk.
func (h *Handler) CreateLinks(kind tracker.OwnerKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var reqs []LinkRequest
		if !decodeBody(w, r, &reqs) {
			return
		}
		var verr tracker.ValidationError
		links := make([]tracker.Association, len(reqs))
		for i, req := range reqs {
			links[i] = req.collect(strconv.Itoa(i)+".", kind, &verr)
		}
		if err := verr.Err(); err != nil {
			h.writeStoreError(w, r, err)
			return
		}

		ctx := r.Context()
		err := h.Store.WithTx(ctx, func(tx tracker.Tx) error {
			var err error
			links, err = tracker.Links(tx, kind).CreateBulk(ctx, links)
			return err
		})
		if err != nil {
			h.writeStoreError(w, r, err)
			return
		}
		dtos := make([]LinkDTO, len(links))
		for i, a := range links {
			dtos[i] = toLinkDTO(kind, a)
		}
		writeJSON(w, http.StatusCreated, ListResponse[LinkDTO]{Result: dtos})
	}
}

// =============================================================================
// RECONCILE
// =============================================================================

// SetScriptRoles handles POST /api/scripts/{id}/roles.
func (h *Handler) SetScriptRoles(w http.ResponseWriter, r *http.Request) {
	setRoles(h, w, r, tracker.OwnerScript, scriptResource)
}

// SetGameRoles handles POST /api/games/{id}/roles.
func (h *Handler) SetGameRoles(w http.ResponseWriter, r *http.Request) {
	setRoles(h, w, r, tracker.OwnerGame, gameResource)
}

// setRoles reconciles the owner's links to the body's role names, then
// re-reads the owner in the same transaction. A missing owner answers 404
// and rolls the reconciliation back.
func setRoles[T, Req, DTO any](h *Handler, w http.ResponseWriter, r *http.Request, kind tracker.OwnerKind, res resource[T, Req, DTO]) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var names RoleNames
	if !decodeBody(w, r, &names) {
		return
	}
	if names == nil {
		writeJSON(w, http.StatusBadRequest, invalidSchema().Messages())
		return
	}

	ctx := r.Context()
	result := tracker.Result{Kind: kind, OwnerID: id}
	var dto DTO
	err := h.Store.WithTx(ctx, func(tx tracker.Tx) error {
		var err error
		result, err = tracker.ReconcileRoles(ctx, tx, kind, id, names)
		if err != nil {
			return err
		}
		owner, err := res.repo(tx).Get(ctx, id)
		if err != nil {
			return err
		}
		dto, err = res.render(ctx, tx, owner)
		return err
	})
	h.Metrics.ObserveReconcile(result, err)

	var nf *tracker.NotFoundError
	if errors.As(err, &nf) {
		writeNotFound(w)
		return
	}
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	h.Log.DebugContext(ctx, "roles reconciled",
		"owner", kind, "id", id,
		"added", len(result.Added), "removed", len(result.Removed), "kept", len(result.Kept))
	writeJSON(w, http.StatusOK, dto)
}
