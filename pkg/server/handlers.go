package server

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/focus-dev/focus/internal/errors"
	"github.com/focus-dev/focus/pkg/binding"
	"github.com/focus-dev/focus/pkg/snapshot"
	"github.com/focus-dev/focus/pkg/store"
)

// StoreInfo describes a store in GET /stores.
type StoreInfo struct {
	Identifier string   `json:"identifier"`
	Properties []string `json:"properties"`
}

// StoreContent is the body of GET /stores/{id}.
type StoreContent struct {
	StoreInfo
	Values map[string]any            `json:"values"`
	Errors map[string]map[string]any `json:"errors"`
	Status map[string]store.Status   `json:"status"`
}

func (s *Server) handleListStores(w http.ResponseWriter, r *http.Request) {
	out := make([]StoreInfo, 0)
	for _, id := range s.workspace.StoreIDs() {
		st, _ := s.workspace.Store(id)
		out = append(out, StoreInfo{Identifier: id, Properties: st.Definition().Names()})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetStore(w http.ResponseWriter, r *http.Request) {
	st, err := s.store(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	names := st.Definition().Names()
	content := StoreContent{
		StoreInfo: StoreInfo{Identifier: st.Identifier(), Properties: names},
		Values:    make(map[string]any, len(names)),
		Errors:    make(map[string]map[string]any),
		Status:    make(map[string]store.Status, len(names)),
	}
	for _, property := range names {
		content.Values[property] = st.Value(property)
		if e := st.Error(property); e != nil {
			content.Errors[property] = e
		}
		content.Status[property] = st.Status(property)
	}
	writeJSON(w, http.StatusOK, content)
}

func (s *Server) handleSetValue(w http.ResponseWriter, r *http.Request) {
	st, err := s.store(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var value any
	if err := decodeBody(r, &value); err != nil {
		s.writeError(w, err)
		return
	}
	if err := st.Set(chi.URLParam(r, "property"), value); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetError(w http.ResponseWriter, r *http.Request) {
	st, err := s.store(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var errObj map[string]any
	if err := decodeBody(r, &errObj); err != nil {
		s.writeError(w, err)
		return
	}
	if err := st.SetError(chi.URLParam(r, "property"), errObj); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.store(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var status store.Status
	if err := decodeBody(r, &status); err != nil {
		s.writeError(w, err)
		return
	}
	if err := st.SetStatus(chi.URLParam(r, "property"), status); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListComponents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.workspace.ComponentNames())
}

// handleState derives the state on demand. The presence of the "only"
// parameter selects the filtered derivation, even when it is empty.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	b, err := s.component(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if !r.URL.Query().Has("only") {
		writeJSON(w, http.StatusOK, b.DeriveState())
		return
	}
	var only []string
	for _, p := range strings.Split(r.URL.Query().Get("only"), ",") {
		if p = strings.TrimSpace(p); p != "" {
			only = append(only, p)
		}
	}
	writeJSON(w, http.StatusOK, b.DeriveFilteredState(only))
}

func (s *Server) handleErrors(w http.ResponseWriter, r *http.Request) {
	b, err := s.component(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b.DeriveErrorState())
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	b, err := s.component(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", "error", err)
		return
	}

	name := b.Name()
	s.hubs[name].serve(conn,
		Message{Type: messageState, Component: name, State: b.State()},
		Message{Type: messageErrors, Component: name, State: b.DeriveErrorState()},
	)
}

// SnapshotSaved is the body of POST /snapshots.
type SnapshotSaved struct {
	Name string `json:"name"`
}

func (s *Server) handleSaveSnapshot(w http.ResponseWriter, r *http.Request) {
	name, err := snapshot.Save(r.Context(), s.snapshots, s.workspace.Capture())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.logger.Info("snapshot saved", "snapshot", name)
	writeJSON(w, http.StatusCreated, SnapshotSaved{Name: name})
}

func (s *Server) handleRestoreSnapshot(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	snap, err := snapshot.Load(r.Context(), s.snapshots, name)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.workspace.Restore(snap); err != nil {
		s.writeError(w, err)
		return
	}
	s.logger.Info("snapshot restored", "snapshot", name)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) store(r *http.Request) (*store.CoreStore, error) {
	id := chi.URLParam(r, "id")
	st, ok := s.workspace.Store(id)
	if !ok {
		return nil, errors.New("F004").WithDetailf("store %q", id)
	}
	return st, nil
}

func (s *Server) component(r *http.Request) (*binding.Binding, error) {
	name := chi.URLParam(r, "name")
	b, ok := s.workspace.Component(name)
	if !ok {
		return nil, errors.New("F003").WithDetailf("component %q", name)
	}
	return b, nil
}

func decodeBody(r *http.Request, v any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.New("F005").Wrap(err)
	}
	return nil
}

// statusFor maps error codes to HTTP status codes.
var statusFor = map[string]int{
	"F001": http.StatusUnprocessableEntity,
	"F002": http.StatusUnprocessableEntity,
	"F003": http.StatusNotFound,
	"F004": http.StatusNotFound,
	"F005": http.StatusBadRequest,
	"F010": http.StatusBadGateway,
	"F011": http.StatusBadRequest,
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	var fe *errors.FocusError
	if !stderrors.As(err, &fe) {
		fe = errors.Newf(errors.CategoryServer, "internal error").Wrap(err)
	}
	status, ok := statusFor[fe.Code]
	if !ok {
		status = http.StatusInternalServerError
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	writeJSON(w, status, fe)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
