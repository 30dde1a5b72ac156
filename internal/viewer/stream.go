package viewer

import (
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"skel-runtime/internal/anim"
	"skel-runtime/internal/logging"
	"skel-runtime/internal/skeleton"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
	maxFPS     = 120
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Command is a client message on a stream. Empty fields are left alone.
type Command struct {
	Animation *string  `json:"anim,omitempty"`
	Loop      *bool    `json:"loop,omitempty"`
	TimeScale *float32 `json:"timescale,omitempty"`
	Skin      *string  `json:"skin,omitempty"`
}

type SessionInfo struct {
	ID        string    `json:"id"`
	Model     string    `json:"model"`
	Animation string    `json:"animation,omitempty"`
	Started   time.Time `json:"started"`
}

type sessions struct {
	mu   sync.Mutex
	open map[uuid.UUID]*SessionInfo
}

func newSessions() *sessions {
	return &sessions{open: make(map[uuid.UUID]*SessionInfo)}
}

func (ss *sessions) add(info *SessionInfo) uuid.UUID {
	id := uuid.New()
	info.ID = id.String()
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.open[id] = info
	return id
}

func (ss *sessions) remove(id uuid.UUID) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	delete(ss.open, id)
}

func (ss *sessions) setAnimation(id uuid.UUID, name string) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	if info, ok := ss.open[id]; ok {
		info.Animation = name
	}
}

func (ss *sessions) list() []SessionInfo {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	out := make([]SessionInfo, 0, len(ss.open))
	for _, info := range ss.open {
		out = append(out, *info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Started.Before(out[j].Started) })
	return out
}

// stream plays one model for one connection. Only the writer goroutine
// touches the instance and the animation state.
type stream struct {
	id    uuid.UUID
	conn  *websocket.Conn
	inst  *skeleton.Instance
	state *anim.State
	name  string
	dt    float32
	// frames stops the stream after that many poses when positive.
	frames int

	events   []EventPose
	commands chan Command
	done     chan struct{}
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	data, ok := s.model(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	fps, err := intParam(r, "fps", s.FPS)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if fps <= 0 {
		fps = 30
	}
	fps = min(fps, maxFPS)
	frames, err := intParam(r, "frames", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	st := &stream{
		inst:     data.Instantiate(),
		state:    anim.New(data),
		name:     q.Get("anim"),
		dt:       1 / float32(fps),
		frames:   frames,
		commands: make(chan Command, 8),
		done:     make(chan struct{}),
	}
	if skin := q.Get("skin"); skin != "" {
		if err := st.inst.SetSkin(skin); err != nil {
			writeError(w, statusOf(err), err)
			return
		}
	}
	if st.name != "" {
		if _, err := st.state.SetAnimation(0, st.name, q.Get("loop") != "false"); err != nil {
			writeError(w, statusOf(err), err)
			return
		}
	}
	st.listen()

	st.id = s.sessions.add(&SessionInfo{Model: data.Name, Animation: st.name, Started: time.Now()})
	defer s.sessions.remove(st.id)
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn("stream upgrade", "session", st.id, "err", err)
		return
	}
	st.conn = conn
	logging.Info("stream opened", "session", st.id, "model", data.Name, "anim", st.name, "fps", fps)

	go st.readPump()
	st.writePump(s.sessions)
	logging.Info("stream closed", "session", st.id)
}

// readPump forwards client commands until the connection fails, then
// closes the command channel.
func (st *stream) readPump() {
	defer close(st.commands)
	for {
		_, msg, err := st.conn.ReadMessage()
		if err != nil {
			return
		}
		var cmd Command
		if err := json.Unmarshal(msg, &cmd); err != nil {
			logging.Debug("stream command", "session", st.id, "err", err)
			continue
		}
		select {
		case st.commands <- cmd:
		case <-st.done:
			return
		}
	}
}

func (st *stream) apply(cmd Command, ss *sessions) error {
	if cmd.Skin != nil {
		if err := st.inst.SetSkin(*cmd.Skin); err != nil {
			return err
		}
	}
	if cmd.TimeScale != nil {
		st.state.TimeScale = *cmd.TimeScale
	}
	if cmd.Animation != nil {
		loop := true
		if cmd.Loop != nil {
			loop = *cmd.Loop
		}
		if *cmd.Animation == "" {
			st.state.ClearChannels()
		} else if _, err := st.state.SetAnimation(0, *cmd.Animation, loop); err != nil {
			return err
		}
		st.name = *cmd.Animation
		ss.setAnimation(st.id, st.name)
	}
	return nil
}

func (st *stream) listen() {
	st.state.Listener = anim.Funcs{
		OnEvent: func(_ int, _ *anim.Entry, ev skeleton.Event) {
			st.events = append(st.events, eventPose(ev))
		},
	}
}

// pose applies the current state and takes every event fired since the
// previous pose, including those fired by Update when a one-shot finished.
func (st *stream) pose() Pose {
	st.inst.SetToSetupPose()
	st.state.Apply(st.inst)
	st.inst.UpdateWorldTransform()

	var t float32
	if e := st.state.Current(0); e != nil {
		t = e.Time
	}
	p := Snapshot(st.inst, st.name, t)
	p.Session = st.id.String()
	p.Events = append(p.Events, st.events...)
	st.events = st.events[:0]
	return p
}

func (st *stream) send(v interface{}) error {
	st.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return st.conn.WriteJSON(v)
}

func (st *stream) writePump(ss *sessions) {
	ticker := time.NewTicker(time.Duration(float64(time.Second) * float64(st.dt)))
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		ping.Stop()
		close(st.done)
		st.conn.Close()
	}()

	sent := 0
	if err := st.send(st.pose()); err != nil {
		return
	}
	sent++
	for st.frames <= 0 || sent < st.frames {
		select {
		case cmd, ok := <-st.commands:
			if !ok {
				return
			}
			if err := st.apply(cmd, ss); err != nil {
				if err := st.send(map[string]string{"error": errors.Wrap(err, "command").Error()}); err != nil {
					return
				}
			}
		case <-ticker.C:
			st.state.Update(st.dt)
			if err := st.send(st.pose()); err != nil {
				logging.Debug("stream write", "session", st.id, "err", err)
				return
			}
			sent++
		case <-ping.C:
			st.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := st.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
	st.conn.SetWriteDeadline(time.Now().Add(writeWait))
	st.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
