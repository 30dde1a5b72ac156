// Package viewer serves decoded models over HTTP for previewing: model
// listings, posed bone state, rendered frames and a live pose stream.
package viewer

import (
	"bytes"
	"encoding/json"
	"image/png"
	"io"
	"net/http"
	"os"
	"strconv"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"skel-runtime/internal/anim"
	"skel-runtime/internal/batch"
	"skel-runtime/internal/library"
	"skel-runtime/internal/logging"
	"skel-runtime/internal/skeleton"
)

// MaxFrameSize bounds the size query parameter of rendered frames.
const MaxFrameSize = 4096

// Server answers preview requests for the models of a library. Render.Atlas
// supplies the page images; models must already be bound to it.
type Server struct {
	Library *library.Library
	Render  batch.Config
	FPS     int
	// AccessLog receives one line per request; nil means stdout.
	AccessLog io.Writer

	sessions *sessions
}

func New(lib *library.Library, render batch.Config, fps int) *Server {
	return &Server{Library: lib, Render: render, FPS: fps, sessions: newSessions()}
}

// Handler returns the routed, logged handler tree.
func (s *Server) Handler() http.Handler {
	if s.sessions == nil {
		s.sessions = newSessions()
	}
	r := mux.NewRouter()
	gz := func(f http.HandlerFunc) http.Handler { return handlers.CompressHandler(f) }

	api := r.PathPrefix("/api").Subrouter()
	api.Handle("/models", gz(s.handleModels)).Methods(http.MethodGet)
	api.Handle("/models/{name}", gz(s.handleModel)).Methods(http.MethodGet)
	api.Handle("/models/{name}/pose", gz(s.handlePose)).Methods(http.MethodGet)
	api.HandleFunc("/models/{name}/frame.webp", s.handleFrame).Methods(http.MethodGet)
	// The stream upgrades the connection and must not sit behind compression.
	api.HandleFunc("/models/{name}/stream", s.handleStream).Methods(http.MethodGet)
	api.Handle("/sessions", gz(s.handleSessions)).Methods(http.MethodGet)
	api.HandleFunc("/atlas.png", s.handleAtlas).Methods(http.MethodGet)

	out := s.AccessLog
	if out == nil {
		out = os.Stdout
	}
	h := handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(r)
	return handlers.LoggingHandler(out, h)
}

// ListenAndServe serves Handler on addr.
func (s *Server) ListenAndServe(addr string) error {
	logging.Info("starting preview server", "addr", addr, "models", s.Library.Len())
	return http.ListenAndServe(addr, s.Handler())
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		writeError(w, http.StatusInternalServerError, errors.Wrapf(err, "Failed to marshal"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(data); err != nil {
		logging.Warn("write response", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	type jError struct {
		Error string `json:"error"`
	}
	logging.Debug("request failed", "status", status, "err", err)
	data, _ := json.Marshal(&jError{Error: err.Error()})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func statusOf(err error) int {
	if errors.Is(err, skeleton.ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusBadRequest
}

func (s *Server) model(w http.ResponseWriter, r *http.Request) (*skeleton.Data, bool) {
	name := mux.Vars(r)["name"]
	data, ok := s.Library.Get(name)
	if !ok {
		writeError(w, http.StatusNotFound, errors.Errorf("model %q not loaded", name))
		return nil, false
	}
	return data, true
}

func floatParam(r *http.Request, key string, def float64) (float64, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 32)
	if err != nil {
		return 0, errors.Errorf("param %q is not a number", key)
	}
	return f, nil
}

func intParam(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.Errorf("param %q is not integer", key)
	}
	return n, nil
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Library.Names())
}

func (s *Server) handleModel(w http.ResponseWriter, r *http.Request) {
	data, ok := s.model(w, r)
	if !ok {
		return
	}
	writeJSON(w, Summarize(data))
}

// posed instantiates data and poses it from the skin, anim and t query
// parameters. Playback loops.
func posed(data *skeleton.Data, r *http.Request) (*skeleton.Instance, string, float32, error) {
	t, err := floatParam(r, "t", 0)
	if err != nil {
		return nil, "", 0, err
	}
	inst := data.Instantiate()
	if skin := r.URL.Query().Get("skin"); skin != "" {
		if err := inst.SetSkin(skin); err != nil {
			return nil, "", 0, err
		}
	}
	name := r.URL.Query().Get("anim")
	if err := anim.PoseAt(inst, name, float32(t), true); err != nil {
		return nil, "", 0, err
	}
	return inst, name, float32(t), nil
}

func (s *Server) handlePose(w http.ResponseWriter, r *http.Request) {
	data, ok := s.model(w, r)
	if !ok {
		return
	}
	inst, name, t, err := posed(data, r)
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	writeJSON(w, Snapshot(inst, name, t))
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	data, ok := s.model(w, r)
	if !ok {
		return
	}
	inst, _, _, err := posed(data, r)
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	cfg := s.Render
	size, err := intParam(r, "size", cfg.Render.Size)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if size <= 0 || size > MaxFrameSize {
		writeError(w, http.StatusBadRequest, errors.Errorf("size %d out of range", size))
		return
	}
	cfg.Render.Size = size

	var buf bytes.Buffer
	if err := batch.EncodeWebP(&buf, batch.RenderInstance(cfg, inst, nil)); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "image/webp")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(buf.Bytes())
}

func (s *Server) handleAtlas(w http.ResponseWriter, r *http.Request) {
	if s.Render.Atlas == nil {
		writeError(w, http.StatusNotFound, errors.New("no atlas loaded"))
		return
	}
	pages := s.Render.Atlas.PageImages()
	page, err := intParam(r, "page", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if page < 0 || page >= len(pages) || pages[page] == nil {
		writeError(w, http.StatusNotFound, errors.Errorf("atlas page %d not found", page))
		return
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, pages[page]); err != nil {
		writeError(w, http.StatusInternalServerError, errors.Wrapf(err, "Failed to encode png"))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(buf.Bytes())
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.sessions.list())
}
