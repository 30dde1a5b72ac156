package viewer

import (
	"encoding/json"
	"image/png"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/image/webp"

	"skel-runtime/internal/anim"
	"skel-runtime/internal/batch"
	"skel-runtime/internal/library"
	"skel-runtime/internal/raster"
	"skel-runtime/internal/skel"
	"skel-runtime/internal/skel/skeltest"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	packed := skeltest.Atlas(t)
	data, err := skel.Decode(skeltest.Minimal(), skel.WithName("hero"))
	if err != nil {
		t.Fatal(err)
	}
	if err := data.BindAtlas(packed); err != nil {
		t.Fatal(err)
	}
	lib := library.New()
	lib.Add("hero", data)

	s := New(lib, batch.Config{Atlas: packed, Render: raster.Options{Size: 32, Supersample: 1}}, 60)
	s.AccessLog = io.Discard
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, srv *httptest.Server, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(srv.URL + path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func getJSON(t *testing.T, srv *httptest.Server, path string, v interface{}) {
	t.Helper()
	resp := get(t, srv, path)
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("GET %s: %d %s", path, resp.StatusCode, body)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatal(err)
	}
}

func TestModels(t *testing.T) {
	srv := newTestServer(t)

	var names []string
	getJSON(t, srv, "/api/models", &names)
	if len(names) != 1 || names[0] != "hero" {
		t.Errorf("names = %v", names)
	}

	var sum Summary
	getJSON(t, srv, "/api/models/hero", &sum)
	if !sum.Bound || len(sum.Bones) != 2 || sum.Skins[0] != "default" {
		t.Errorf("summary = %+v", sum)
	}
	if len(sum.Animations) != 1 || sum.Animations[0].Name != "walk" || sum.Animations[0].Duration != 1 {
		t.Errorf("animations = %+v", sum.Animations)
	}
}

func TestPose(t *testing.T) {
	srv := newTestServer(t)

	var p Pose
	getJSON(t, srv, "/api/models/hero/pose?anim=walk&t=0.5", &p)
	if p.Animation != "walk" || p.Time != 0.5 {
		t.Errorf("pose header = %+v", p)
	}
	if got := p.Bones[1].Rotation; math.Abs(float64(got-45)) > 1e-3 {
		t.Errorf("child rotation = %v, want 45", got)
	}
	// Looping playback wraps.
	getJSON(t, srv, "/api/models/hero/pose?anim=walk&t=1.5", &p)
	if got := p.Bones[1].Rotation; math.Abs(float64(got-45)) > 1e-3 {
		t.Errorf("looped rotation = %v, want 45", got)
	}
	if p.Slots[0].Attachment != "body" || p.Bones[1].World[4] != 10 {
		t.Errorf("slot %+v bone %+v", p.Slots[0], p.Bones[1])
	}
}

func TestErrors(t *testing.T) {
	srv := newTestServer(t)
	for _, tc := range []struct {
		path   string
		status int
	}{
		{"/api/models/nobody", http.StatusNotFound},
		{"/api/models/hero/pose?anim=run", http.StatusNotFound},
		{"/api/models/hero/pose?t=soon", http.StatusBadRequest},
		{"/api/models/hero/pose?skin=alt", http.StatusNotFound},
		{"/api/models/hero/frame.webp?size=0", http.StatusBadRequest},
		{"/api/models/hero/frame.webp?size=99999", http.StatusBadRequest},
		{"/api/atlas.png?page=3", http.StatusNotFound},
	} {
		resp := get(t, srv, tc.path)
		if resp.StatusCode != tc.status {
			t.Errorf("GET %s: %d, want %d", tc.path, resp.StatusCode, tc.status)
		}
	}
}

func TestFrame(t *testing.T) {
	srv := newTestServer(t)
	resp := get(t, srv, "/api/models/hero/frame.webp?anim=walk&t=0.25&size=16")
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/webp" {
		t.Fatalf("status %d type %q", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	img, err := webp.Decode(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 16 || b.Dy() != 16 {
		t.Errorf("frame = %v", b)
	}
}

func TestAtlas(t *testing.T) {
	srv := newTestServer(t)
	resp := get(t, srv, "/api/atlas.png")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	img, err := png.Decode(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() < 64 || b.Dy() < 32 {
		t.Errorf("atlas = %v", b)
	}
}

func dial(t *testing.T, srv *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func TestStreamFrames(t *testing.T) {
	srv := newTestServer(t)
	conn := dial(t, srv, "/api/models/hero/stream?anim=walk&fps=100&frames=3")

	var session string
	last := float32(-1)
	for i := 0; i < 3; i++ {
		var p Pose
		if err := conn.ReadJSON(&p); err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		if p.Session == "" || (session != "" && p.Session != session) {
			t.Errorf("frame %d session %q", i, p.Session)
		}
		session = p.Session
		if p.Time <= last {
			t.Errorf("frame %d time %v after %v", i, p.Time, last)
		}
		last = p.Time
	}
	if _, _, err := conn.ReadMessage(); !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Errorf("after last frame: %v", err)
	}
}

func TestStreamCommands(t *testing.T) {
	srv := newTestServer(t)
	conn := dial(t, srv, "/api/models/hero/stream?fps=100")

	var sessions []SessionInfo
	getJSON(t, srv, "/api/sessions", &sessions)
	if len(sessions) != 1 || sessions[0].Model != "hero" {
		t.Fatalf("sessions = %+v", sessions)
	}

	if err := conn.WriteJSON(map[string]string{"anim": "run"}); err != nil {
		t.Fatal(err)
	}
	if !readUntil(t, conn, func(m map[string]interface{}) bool { return m["error"] != nil }) {
		t.Error("no error for unknown animation")
	}

	if err := conn.WriteJSON(map[string]string{"anim": "walk"}); err != nil {
		t.Fatal(err)
	}
	if !readUntil(t, conn, func(m map[string]interface{}) bool { return m["animation"] == "walk" }) {
		t.Error("animation not switched")
	}
}

func readUntil(t *testing.T, conn *websocket.Conn, match func(map[string]interface{}) bool) bool {
	t.Helper()
	for i := 0; i < 200; i++ {
		var m map[string]interface{}
		if err := conn.ReadJSON(&m); err != nil {
			t.Fatal(err)
		}
		if match(m) {
			return true
		}
	}
	return false
}

func TestStreamPoseKeepsFinishingEvents(t *testing.T) {
	data, err := skel.Decode(skeltest.Minimal(), skel.WithName("hero"))
	if err != nil {
		t.Fatal(err)
	}
	st := &stream{inst: data.Instantiate(), state: anim.New(data), name: "walk"}
	st.listen()
	if _, err := st.state.SetAnimation(0, "walk", false); err != nil {
		t.Fatal(err)
	}

	st.state.Update(0.25)
	if p := st.pose(); len(p.Events) != 0 {
		t.Fatalf("events at 0.25 = %+v", p.Events)
	}

	// Passes the end in one step: "hit" at 0.5 fires inside Update.
	st.state.Update(1)
	p := st.pose()
	if len(p.Events) != 1 || p.Events[0].Name != "hit" {
		t.Errorf("events = %+v, want hit", p.Events)
	}
	if got := p.Bones[1].Rotation; math.Abs(float64(got-90)) > 1e-3 {
		t.Errorf("child rotation = %v, want the last key 90", got)
	}

	if p := st.pose(); len(p.Events) != 0 {
		t.Errorf("events delivered twice: %+v", p.Events)
	}
}
