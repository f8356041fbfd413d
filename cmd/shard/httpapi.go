package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dreamware/torusdb/internal/shard"
	"github.com/dreamware/torusdb/internal/terrors"
	"github.com/dreamware/torusdb/internal/types"
)

// apiServer exposes shard.API over plain HTTP+JSON: a thin harness so
// the RPC surface is observable end-to-end from cmd/, not a full
// bidirectional RPC framework (out of scope per §1).
type apiServer struct {
	shard  shard.API
	logger zerolog.Logger
}

func (a *apiServer) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", a.handleHealth)
	mux.HandleFunc("/entities/", a.handleEntity)
	mux.HandleFunc("/traverse", a.handleTraverse)
	mux.HandleFunc("/traverseBack", a.handleTraverseBack)
	mux.HandleFunc("/pathTraverse", a.handlePathTraverse)
	mux.HandleFunc("/query", a.handleQuery)
	mux.HandleFunc("/batch/get", a.handleBatchGet)
	mux.HandleFunc("/batch/create", a.handleBatchCreate)
	mux.HandleFunc("/batch/execute", a.handleBatchExecute)
	return mux
}

func (a *apiServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(struct {
		Status string `json:"status"`
	}{Status: "ok"})
}

func (a *apiServer) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.logger.Error().Err(err).Msg("failed to encode response")
	}
}

func (a *apiServer) writeError(w http.ResponseWriter, err error) {
	var verr *terrors.ValidationError
	var nerr *terrors.NotFoundError
	var cerr *terrors.ConflictError
	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &verr):
		status = http.StatusBadRequest
	case errors.As(err, &nerr):
		status = http.StatusNotFound
	case errors.As(err, &cerr):
		status = http.StatusConflict
	case errors.Is(err, terrors.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, terrors.ErrForbidden):
		status = http.StatusForbidden
	}
	a.writeJSON(w, status, struct {
		Error string `json:"error"`
	}{Error: err.Error()})
}

func (a *apiServer) handleEntity(w http.ResponseWriter, r *http.Request) {
	id := types.EntityId(strings.TrimPrefix(r.URL.Path, "/entities/"))
	ctx := r.Context()

	switch r.Method {
	case http.MethodGet:
		entity, ok, err := a.shard.GetEntity(ctx, id)
		if err != nil {
			a.writeError(w, err)
			return
		}
		if !ok {
			a.writeJSON(w, http.StatusOK, nil)
			return
		}
		a.writeJSON(w, http.StatusOK, struct {
			ID     types.EntityId                  `json:"id"`
			Fields map[types.Predicate]jsonObject `json:"fields"`
		}{ID: entity.ID, Fields: toJSONFields(entity.Fields)})

	case http.MethodPost:
		var body struct {
			Fields map[types.Predicate]jsonObject `json:"fields"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			a.writeError(w, terrors.NewValidation("body", err.Error()))
			return
		}
		if err := a.shard.CreateEntity(ctx, id, fromJSONFields(body.Fields)); err != nil {
			a.writeError(w, err)
			return
		}
		a.writeJSON(w, http.StatusCreated, struct{}{})

	case http.MethodPatch:
		var body struct {
			Fields map[types.Predicate]jsonObject `json:"fields"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			a.writeError(w, terrors.NewValidation("body", err.Error()))
			return
		}
		if err := a.shard.UpdateEntity(ctx, id, fromJSONFields(body.Fields)); err != nil {
			a.writeError(w, err)
			return
		}
		a.writeJSON(w, http.StatusOK, struct{}{})

	case http.MethodDelete:
		if err := a.shard.DeleteEntity(ctx, id); err != nil {
			a.writeError(w, err)
			return
		}
		a.writeJSON(w, http.StatusOK, struct{}{})

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func traversalOptionsFromQuery(q map[string][]string) shard.TraversalOptions {
	opts := shard.TraversalOptions{}
	if v, ok := q["maxDepth"]; ok && len(v) > 0 {
		opts.MaxDepth, _ = strconv.Atoi(v[0])
	}
	if v, ok := q["limit"]; ok && len(v) > 0 {
		opts.Limit, _ = strconv.Atoi(v[0])
	}
	if v, ok := q["cursor"]; ok && len(v) > 0 {
		opts.Cursor = v[0]
	}
	return opts
}

func (a *apiServer) handleTraverse(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	start := types.EntityId(query.Get("start"))
	predicate := types.Predicate(query.Get("predicate"))
	result, err := a.shard.Traverse(r.Context(), start, predicate, traversalOptionsFromQuery(query))
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, result)
}

func (a *apiServer) handleTraverseBack(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	target := types.EntityId(query.Get("target"))
	predicate := types.Predicate(query.Get("predicate"))
	result, err := a.shard.TraverseBack(r.Context(), target, predicate, traversalOptionsFromQuery(query))
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, result)
}

func (a *apiServer) handlePathTraverse(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	start := types.EntityId(query.Get("start"))
	var path []types.Predicate
	for _, p := range strings.Split(query.Get("path"), ",") {
		if p != "" {
			path = append(path, types.Predicate(p))
		}
	}
	result, err := a.shard.PathTraverse(r.Context(), start, path, traversalOptionsFromQuery(query))
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, result)
}

func (a *apiServer) handleQuery(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	q := query.Get("q")
	opts := shard.QueryOptions{Cursor: query.Get("cursor")}
	if v := query.Get("limit"); v != "" {
		opts.Limit, _ = strconv.Atoi(v)
	}
	result, err := a.shard.Query(r.Context(), q, opts)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, result)
}

func (a *apiServer) handleBatchGet(w http.ResponseWriter, r *http.Request) {
	var body struct {
		IDs []types.EntityId `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		a.writeError(w, terrors.NewValidation("body", err.Error()))
		return
	}
	items := a.shard.BatchGet(r.Context(), body.IDs)
	a.writeJSON(w, http.StatusOK, items)
}

func (a *apiServer) handleBatchCreate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Entities []struct {
			ID     types.EntityId                  `json:"id"`
			Fields map[types.Predicate]jsonObject `json:"fields"`
		} `json:"entities"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		a.writeError(w, terrors.NewValidation("body", err.Error()))
		return
	}
	entities := make([]shard.EntityInput, len(body.Entities))
	for i, e := range body.Entities {
		entities[i] = shard.EntityInput{ID: e.ID, Fields: fromJSONFields(e.Fields)}
	}
	items := a.shard.BatchCreate(r.Context(), entities)
	a.writeJSON(w, http.StatusOK, items)
}

func (a *apiServer) handleBatchExecute(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Ops []struct {
			Kind   shard.OpKind                     `json:"kind"`
			ID     types.EntityId                  `json:"id"`
			Fields map[types.Predicate]jsonObject `json:"fields"`
		} `json:"ops"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		a.writeError(w, terrors.NewValidation("body", err.Error()))
		return
	}
	ops := make([]shard.Op, len(body.Ops))
	for i, op := range body.Ops {
		ops[i] = shard.Op{Kind: op.Kind, ID: op.ID, Fields: fromJSONFields(op.Fields)}
	}
	items := a.shard.BatchExecute(r.Context(), ops)
	a.writeJSON(w, http.StatusOK, items)
}
