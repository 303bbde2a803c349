package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	airerrors "github.com/airset-dev/airset/internal/errors"
	"github.com/airset-dev/airset/pkg/store"
	"github.com/airset-dev/airset/pkg/tree"
	"github.com/go-chi/chi/v5"
)

// StoreInfo summarizes one registered store.
type StoreInfo struct {
	Name        string `json:"name"`
	UpdateCount uint64 `json:"updateCount"`
	Mounted     bool   `json:"mounted"`
	Subscribers int    `json:"subscribers"`
	Pending     int    `json:"pending"`
}

// Snapshot is the current state of a store.
type Snapshot struct {
	Name        string `json:"name"`
	UpdateCount uint64 `json:"updateCount"`
	Data        any    `json:"data"`
}

// UpdateResult reports the outcome of a PUT.
type UpdateResult struct {
	Changed     bool        `json:"changed"`
	UpdateCount uint64      `json:"updateCount"`
	Paths       []tree.Path `json:"paths"`
}

// Diff lists the paths changed by the last commit.
type Diff struct {
	UpdateCount uint64      `json:"updateCount"`
	Paths       []tree.Path `json:"paths"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"stores": len(s.Names()),
	})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	names := s.Names()
	infos := make([]StoreInfo, 0, len(names))
	for _, name := range names {
		st, ok := s.Store(name)
		if !ok {
			continue
		}
		infos = append(infos, StoreInfo{
			Name:        name,
			UpdateCount: st.UpdateCount(),
			Mounted:     st.Mounted(),
			Subscribers: st.Subscribers(),
			Pending:     st.Pending(),
		})
	}
	writeJSON(w, http.StatusOK, infos)
}

// storeFor resolves the {name} URL parameter, writing a 404 when unknown.
func (s *Server) storeFor(w http.ResponseWriter, r *http.Request) (string, *entry, bool) {
	name := chi.URLParam(r, "name")
	e, ok := s.lookup(name)
	if !ok {
		writeError(w, http.StatusNotFound, airerrors.New("E080").
			WithDetail(fmt.Sprintf("No store named %q is registered.", name)).
			WithSuggestion("GET /stores lists the registered stores"))
		return name, nil, false
	}
	return name, e, true
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	name, e, ok := s.storeFor(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, snapshot(name, e.store))
}

func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	_, e, ok := s.storeFor(w, r)
	if !ok {
		return
	}

	var body any
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.config.MaxBodySize))
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		writeError(w, status, airerrors.New("E082").Wrap(err))
		return
	}

	// The document is merged by a one-task run so that it queues behind
	// other runs of the store and passes through its middleware.
	incoming := tree.FromAny(body)
	tc, err := e.store.Run(r.Context(), func(tc *store.TaskContext) error {
		tc.Data = incoming
		return nil
	})
	if err != nil {
		writeError(w, runStatus(err), err)
		return
	}

	st := e.store
	result := UpdateResult{Changed: tc.Updated, UpdateCount: st.UpdateCount(), Paths: []tree.Path{}}
	if tc.Updated {
		result.Paths = nonNil(tree.Changes(tc.PrevData, st.Data(), nil))
	}
	writeJSON(w, http.StatusOK, result)
}

// runStatus maps a Run error to an HTTP status.
func runStatus(err error) int {
	switch {
	case errors.Is(err, store.ErrDestroyed):
		return http.StatusGone
	case errors.Is(err, store.ErrRunCancelled):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (s *Server) handleDiff(w http.ResponseWriter, r *http.Request) {
	_, e, ok := s.storeFor(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, diff(e.store))
}

func snapshot(name string, st *store.Store) Snapshot {
	return Snapshot{
		Name:        name,
		UpdateCount: st.UpdateCount(),
		Data:        tree.ToAny(st.Data()),
	}
}

func diff(st *store.Store) Diff {
	d := Diff{UpdateCount: st.UpdateCount(), Paths: []tree.Path{}}
	if prev := st.PrevData(); prev != nil {
		d.Paths = nonNil(tree.Changes(prev, st.Data(), nil))
	}
	return d
}

func nonNil(paths []tree.Path) []tree.Path {
	if paths == nil {
		return []tree.Path{}
	}
	return paths
}
