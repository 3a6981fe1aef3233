package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pthm-cable/biome/config"
	"github.com/pthm-cable/biome/game"
)

func newTestServer(t *testing.T) (*game.Game, *game.Control, *httptest.Server) {
	t.Helper()
	cfg := config.MustDefaults()
	cfg.Seed = 3
	cfg.Parallel.Workers = 1
	cfg.Population.Initial = config.InitialCounts{Herbivore: 5, Carnivore: 2, Omnivore: 1}
	cfg.Food.Initial = 10
	cfg.Recompute()

	g, err := game.New(cfg, game.Options{})
	if err != nil {
		t.Fatalf("game.New: %v", err)
	}
	t.Cleanup(func() { g.Close() })

	ctl := game.NewControl()
	ts := httptest.NewServer(New(g, ctl, cfg).Handler())
	t.Cleanup(ts.Close)
	return g, ctl, ts
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func readMsg(t *testing.T, conn *websocket.Conn) Outbound {
	t.Helper()
	var msg Outbound
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

// readUntil skips frame messages until one of the wanted type arrives.
func readUntil(t *testing.T, conn *websocket.Conn, typ string) Outbound {
	t.Helper()
	for {
		msg := readMsg(t, conn)
		if msg.Type == typ {
			return msg
		}
	}
}

func TestWS_ConfigThenFrames(t *testing.T) {
	g, _, ts := newTestServer(t)
	conn := dial(t, ts)

	msg := readMsg(t, conn)
	if msg.Type != TypeConfig {
		t.Fatalf("first message type = %q, want %q", msg.Type, TypeConfig)
	}
	if msg.Width != g.Config().World.Width || msg.Height != g.Config().World.Height {
		t.Errorf("config size = %vx%v", msg.Width, msg.Height)
	}

	// The subscription exists once the config message has been sent.
	if err := g.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}
	frame := readUntil(t, conn, TypeFrame)
	if frame.Frame == nil {
		t.Fatal("frame message without frame")
	}
	if frame.Frame.Tick != 1 {
		t.Errorf("tick = %d, want 1", frame.Frame.Tick)
	}
	if got := frame.Frame.Herbivores + frame.Frame.Carnivores + frame.Frame.Omnivores; got != len(frame.Frame.Beings) {
		t.Errorf("kind counts sum to %d, beings = %d", got, len(frame.Frame.Beings))
	}
}

func TestWS_Control(t *testing.T) {
	_, ctl, ts := newTestServer(t)
	conn := dial(t, ts)
	readMsg(t, conn)

	if err := conn.WriteJSON(Inbound{Type: TypePause}); err != nil {
		t.Fatal(err)
	}
	if ack := readUntil(t, conn, TypeAck); !ack.Paused {
		t.Error("ack after pause should report paused")
	}
	if !ctl.Paused() {
		t.Error("control not paused")
	}

	if err := conn.WriteJSON(Inbound{Type: TypeToggle}); err != nil {
		t.Fatal(err)
	}
	if ack := readUntil(t, conn, TypeAck); ack.Paused {
		t.Error("ack after toggle should report running")
	}

	if err := conn.WriteJSON(Inbound{Type: "bogus"}); err != nil {
		t.Fatal(err)
	}
	if msg := readUntil(t, conn, TypeError); !strings.Contains(msg.Error, "bogus") {
		t.Errorf("error = %q", msg.Error)
	}

	if err := conn.WriteJSON(Inbound{Type: TypeStop}); err != nil {
		t.Fatal(err)
	}
	readUntil(t, conn, TypeAck)
	select {
	case <-ctl.Done():
	default:
		t.Error("control not stopped")
	}
}

func TestFrameEndpoint(t *testing.T) {
	g, _, ts := newTestServer(t)
	if err := g.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}

	resp, err := http.Get(ts.URL + "/frame")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var f game.Frame
	if err := json.NewDecoder(resp.Body).Decode(&f); err != nil {
		t.Fatal(err)
	}
	if f.Tick != 1 {
		t.Errorf("tick = %d, want 1", f.Tick)
	}
	if len(f.Beings) != g.Population() {
		t.Errorf("beings = %d, want %d", len(f.Beings), g.Population())
	}
}
