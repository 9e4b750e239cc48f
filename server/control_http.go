package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/PavelAgarkov/halt-pkg/readiness_barrier"
	"github.com/PavelAgarkov/halt-pkg/registry"
	"github.com/PavelAgarkov/halt-pkg/utils"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/mux"
)

// ControlAPI отдаёт состояние remote-ов и принимает команды
// pause/resume/stop по HTTP. Одни и те же хэндлеры вешаются и на chi,
// и на gorilla роутер.
type ControlAPI struct {
	remotes registry.RemoteRegistry
	barrier readiness_barrier.ReadinessBarrierInterface
}

func NewControlAPI(remotes registry.RemoteRegistry, barrier readiness_barrier.ReadinessBarrierInterface) *ControlAPI {
	if remotes == nil {
		panic("server.NewControlAPI: nil registry")
	}
	return &ControlAPI{remotes: remotes, barrier: barrier}
}

type paramFunc func(r *http.Request, key string) string

func chiParam(r *http.Request, key string) string { return chi.URLParam(r, key) }
func muxParam(r *http.Request, key string) string { return mux.Vars(r)[key] }

func (api *ControlAPI) RegisterChiRoutes(s *HTTPServerChi) {
	s.Router.Get("/halt/remotes", api.listRemotes)
	s.Router.Get("/halt/remotes/{name}", api.remoteState(chiParam))
	s.Router.Post("/halt/remotes/{name}/{op}", api.applyRemote(chiParam))
	s.Router.Get("/halt/groups", api.listGroups)
	s.Router.Get("/halt/groups/{group}", api.groupState(chiParam))
	s.Router.Post("/halt/groups/{group}/{op}", api.applyGroup(chiParam))
	s.Router.Post("/halt/all/{op}", api.applyAll(chiParam))
	if api.barrier != nil {
		s.Router.Get("/readyz", api.readyz)
	}
}

func (api *ControlAPI) RegisterMuxRoutes(s *HTTPServer) {
	s.Router.HandleFunc("/halt/remotes", api.listRemotes).Methods(http.MethodGet)
	s.Router.HandleFunc("/halt/remotes/{name}", api.remoteState(muxParam)).Methods(http.MethodGet)
	s.Router.HandleFunc("/halt/remotes/{name}/{op}", api.applyRemote(muxParam)).Methods(http.MethodPost)
	s.Router.HandleFunc("/halt/groups", api.listGroups).Methods(http.MethodGet)
	s.Router.HandleFunc("/halt/groups/{group}", api.groupState(muxParam)).Methods(http.MethodGet)
	s.Router.HandleFunc("/halt/groups/{group}/{op}", api.applyGroup(muxParam)).Methods(http.MethodPost)
	s.Router.HandleFunc("/halt/all/{op}", api.applyAll(muxParam)).Methods(http.MethodPost)
	if api.barrier != nil {
		s.Router.HandleFunc("/readyz", api.readyz).Methods(http.MethodGet)
	}
}

type remoteStatus struct {
	Name  string `json:"name"`
	State string `json:"state"`
}

type groupStatus struct {
	Group   string            `json:"group"`
	Members map[string]string `json:"members"`
}

type applyResult struct {
	Target  string `json:"target"`
	Op      string `json:"op"`
	Changed int    `json:"changed"`
	State   string `json:"state,omitempty"`
}

type errorBody struct {
	Error string `json:"error"`
}

func (api *ControlAPI) listRemotes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"remotes": utils.StringMap(api.remotes.Snapshot())})
}

func (api *ControlAPI) remoteState(param paramFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := param(r, "name")
		remote, ok := api.remotes.Get(name)
		if !ok {
			writeJSON(w, http.StatusNotFound, errorBody{Error: "remote not found: " + name})
			return
		}
		writeJSON(w, http.StatusOK, remoteStatus{Name: name, State: remote.State().String()})
	}
}

func (api *ControlAPI) applyRemote(param paramFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := param(r, "name")
		op, err := registry.ParseOp(param(r, "op"))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
			return
		}

		changed, err := api.remotes.Apply(op, name)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, registry.ErrNotFound) {
				status = http.StatusNotFound
			}
			writeJSON(w, status, errorBody{Error: err.Error()})
			return
		}

		result := applyResult{Target: name, Op: op.String()}
		if changed {
			result.Changed = 1
		}
		if remote, ok := api.remotes.Get(name); ok {
			result.State = remote.State().String()
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func (api *ControlAPI) listGroups(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"groups": api.remotes.Groups()})
}

func (api *ControlAPI) groupState(param paramFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		group := param(r, "group")
		members := api.remotes.Members(group)
		if members == nil {
			writeJSON(w, http.StatusNotFound, errorBody{Error: "group not found: " + group})
			return
		}

		states := make(map[string]string, len(members))
		for _, name := range members {
			if remote, ok := api.remotes.Get(name); ok {
				states[name] = remote.State().String()
			}
		}
		writeJSON(w, http.StatusOK, groupStatus{Group: group, Members: states})
	}
}

func (api *ControlAPI) applyGroup(param paramFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		group := param(r, "group")
		op, err := registry.ParseOp(param(r, "op"))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
			return
		}

		changed, err := api.remotes.ApplyGroup(op, group)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, registry.ErrNotFound) {
				status = http.StatusNotFound
			}
			writeJSON(w, status, errorBody{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, applyResult{Target: group, Op: op.String(), Changed: changed})
	}
}

func (api *ControlAPI) applyAll(param paramFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		op, err := registry.ParseOp(param(r, "op"))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
			return
		}

		changed := api.remotes.ApplyAll(op)
		writeJSON(w, http.StatusOK, applyResult{Target: "all", Op: op.String(), Changed: changed})
	}
}

func (api *ControlAPI) readyz(w http.ResponseWriter, r *http.Request) {
	if api.barrier.IsReady() {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
		return
	}
	writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
