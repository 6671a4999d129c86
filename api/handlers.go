/*
handlers.go - HTTP API handlers for the play-record tracker

PURPOSE:
  Exposes scripts, roles and games via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to package tracker.

ENDPOINTS:
  Scripts / Roles / Games (same shape for each):
    GET    /api/scripts              List, {"result": [...]}
    POST   /api/scripts              Create one
    POST   /api/scripts/bulk         Create many, all or nothing
    GET    /api/scripts/{id}         Get one
    PUT    /api/scripts/{id}         Replace one
    DELETE /api/scripts/{id}         Delete one (absent id is a no-op)

  Role membership (see links.go):
    POST   /api/scripts/{id}/roles   Reconcile to a list of role names
    POST   /api/scripts/roles        Raw link row
    POST   /api/scripts/roles/bulk   Raw link rows
    (same under /api/games)

  Data (see data.go):
    GET    /api/dump, POST /api/load, GET /api/stats

REQUEST FLOW:
  1. Parse and validate the body (dto.go)
  2. Open one transaction (Store.WithTx)
  3. Call repositories / reconciler, shape the response inside the tx
  4. Commit, then serialize

ERROR HANDLING:
  - 400: ValidationError, Conflict, Integrity, UnknownRole (field map)
  - 404: "Resource not found" on GET and after reconcile
  - 500: {"error": "internal error"}, details logged only

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/holocron/tracker/metrics"
	"github.com/holocron/tracker/tracker"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store   tracker.Store
	Metrics *metrics.Metrics
	Log     *slog.Logger
}

// NewHandler creates a new handler with the given store.
func NewHandler(store tracker.Store, m *metrics.Metrics, log *slog.Logger) *Handler {
	if m == nil {
		m = metrics.New()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Handler{Store: store, Metrics: m, Log: log}
}

// =============================================================================
// RESOURCES - One descriptor per entity, shared handler bodies
// =============================================================================

// resource describes how one entity type moves between HTTP and the store.
type resource[T any, Req any, DTO any] struct {
	repo   func(tracker.Tx) tracker.Repository[T]
	decode func(Req) (T, error)
	// render runs inside the transaction so nested roles are read
	// consistently with the entity.
	render func(ctx context.Context, tx tracker.Tx, v T) (DTO, error)
}

var scriptResource = resource[tracker.Script, ScriptRequest, ScriptDTO]{
	repo:   func(tx tracker.Tx) tracker.Repository[tracker.Script] { return tx.Scripts() },
	decode: ScriptRequest.toDomain,
	render: func(ctx context.Context, tx tracker.Tx, s tracker.Script) (ScriptDTO, error) {
		roles, err := tx.ScriptRoles().RolesOf(ctx, s.ID)
		return toScriptDTO(s, roles), err
	},
}

var roleResource = resource[tracker.Role, RoleRequest, RoleDTO]{
	repo:   func(tx tracker.Tx) tracker.Repository[tracker.Role] { return tx.Roles() },
	decode: RoleRequest.toDomain,
	render: func(_ context.Context, _ tracker.Tx, r tracker.Role) (RoleDTO, error) {
		return toRoleDTO(r), nil
	},
}

var gameResource = resource[tracker.Game, GameRequest, GameDTO]{
	repo:   func(tx tracker.Tx) tracker.Repository[tracker.Game] { return tx.Games() },
	decode: GameRequest.toDomain,
	render: func(ctx context.Context, tx tracker.Tx, g tracker.Game) (GameDTO, error) {
		roles, err := tx.GameRoles().RolesOf(ctx, g.ID)
		return toGameDTO(g, roles), err
	},
}

func renderAll[T, DTO any](ctx context.Context, tx tracker.Tx, vs []T, render func(context.Context, tracker.Tx, T) (DTO, error)) ([]DTO, error) {
	out := make([]DTO, len(vs))
	for i, v := range vs {
		dto, err := render(ctx, tx, v)
		if err != nil {
			return nil, err
		}
		out[i] = dto
	}
	return out, nil
}

// list handles GET /api/{resource}.
func list[T, Req, DTO any](h *Handler, res resource[T, Req, DTO]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var dtos []DTO
		err := h.Store.WithTx(ctx, func(tx tracker.Tx) error {
			vs, err := res.repo(tx).List(ctx)
			if err != nil {
				return err
			}
			dtos, err = renderAll(ctx, tx, vs, res.render)
			return err
		})
		if err != nil {
			h.writeStoreError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, ListResponse[DTO]{Result: dtos})
	}
}

// get handles GET /api/{resource}/{id}.
func get[T, Req, DTO any](h *Handler, res resource[T, Req, DTO]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(w, r)
		if !ok {
			return
		}
		ctx := r.Context()
		var dto DTO
		err := h.Store.WithTx(ctx, func(tx tracker.Tx) error {
			v, err := res.repo(tx).Get(ctx, id)
			if err != nil {
				return err
			}
			dto, err = res.render(ctx, tx, v)
			return err
		})
		if tracker.IsNotFound(err) {
			writeNotFound(w)
			return
		}
		if err != nil {
			h.writeStoreError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, dto)
	}
}

// create handles POST /api/{resource}.
func create[T, Req, DTO any](h *Handler, res resource[T, Req, DTO]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req Req
		if !decodeBody(w, r, &req) {
			return
		}
		v, err := res.decode(req)
		if err != nil {
			h.writeStoreError(w, r, err)
			return
		}
		ctx := r.Context()
		var dto DTO
		err = h.Store.WithTx(ctx, func(tx tracker.Tx) error {
			created, err := res.repo(tx).Create(ctx, v)
			if err != nil {
				return err
			}
			dto, err = res.render(ctx, tx, created)
			return err
		})
		if err != nil {
			h.writeStoreError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, dto)
	}
}

// createBulk handles POST /api/{resource}/bulk.
func createBulk[T, Req, DTO any](h *Handler, res resource[T, Req, DTO]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var reqs []Req
		if !decodeBody(w, r, &reqs) {
			return
		}
		vs := make([]T, 0, len(reqs))
		var verr tracker.ValidationError
		for i, req := range reqs {
			v, err := res.decode(req)
			var ve *tracker.ValidationError
			if errors.As(err, &ve) {
				for field, msgs := range ve.Fields {
					for _, m := range msgs {
						verr.Add(strconv.Itoa(i)+"."+field, m)
					}
				}
				continue
			}
			vs = append(vs, v)
		}
		if err := verr.Err(); err != nil {
			h.writeStoreError(w, r, err)
			return
		}

		ctx := r.Context()
		var dtos []DTO
		err := h.Store.WithTx(ctx, func(tx tracker.Tx) error {
			created, err := res.repo(tx).CreateBulk(ctx, vs)
			if err != nil {
				return err
			}
			dtos, err = renderAll(ctx, tx, created, res.render)
			return err
		})
		if err != nil {
			h.writeStoreError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, ListResponse[DTO]{Result: dtos})
	}
}

// update handles PUT /api/{resource}/{id}. A missing id answers 400 with
// the id message map rather than 404.
func update[T, Req, DTO any](h *Handler, res resource[T, Req, DTO]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(w, r)
		if !ok {
			return
		}
		var req Req
		if !decodeBody(w, r, &req) {
			return
		}
		v, err := res.decode(req)
		if err != nil {
			h.writeStoreError(w, r, err)
			return
		}
		ctx := r.Context()
		var dto DTO
		err = h.Store.WithTx(ctx, func(tx tracker.Tx) error {
			updated, err := res.repo(tx).Update(ctx, id, v)
			if err != nil {
				return err
			}
			dto, err = res.render(ctx, tx, updated)
			return err
		})
		if err != nil {
			h.writeStoreError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, dto)
	}
}

// remove handles DELETE /api/{resource}/{id}.
func remove[T, Req, DTO any](h *Handler, res resource[T, Req, DTO]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(w, r)
		if !ok {
			return
		}
		ctx := r.Context()
		err := h.Store.WithTx(ctx, func(tx tracker.Tx) error {
			return res.repo(tx).Delete(ctx, id)
		})
		if err != nil {
			h.writeStoreError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

func writeNotFound(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	w.Write([]byte("Resource not found"))
}

// writeStoreError renders a domain error. Client errors carry their message
// map; anything else is logged and hidden.
func (h *Handler) writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	var me tracker.MessageError
	if errors.As(err, &me) && (tracker.IsClientError(err) || tracker.IsNotFound(err)) {
		writeJSON(w, http.StatusBadRequest, me.Messages())
		return
	}
	h.Log.ErrorContext(r.Context(), "request failed", "error", err, "path", r.URL.Path)
	writeError(w, http.StatusInternalServerError, "internal error")
}

// parseID reads the {id} route parameter. Non-numeric ids cannot match a row.
func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeNotFound(w)
		return 0, false
	}
	return id, true
}

// decodeBody decodes the JSON body into dst, answering 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil {
		return true
	}
	var verr *tracker.ValidationError
	if !errors.As(err, &verr) {
		verr = &tracker.ValidationError{}
		verr.Add("_schema", msgInvalidInput)
	}
	writeJSON(w, http.StatusBadRequest, verr.Messages())
	return false
}
