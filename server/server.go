// Package server streams simulation frames to websocket clients and accepts
// pause, resume and stop requests from them.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pthm-cable/biome/config"
	"github.com/pthm-cable/biome/game"
)

// FrameSource publishes frames. *game.Game implements it.
type FrameSource interface {
	Frame() *game.Frame
	Subscribe(buf int) (<-chan *game.Frame, func())
}

// Message types exchanged with clients.
const (
	TypeConfig = "config"
	TypeFrame  = "frame"
	TypeAck    = "ack"
	TypeError  = "error"

	TypePause  = "pause"
	TypeResume = "resume"
	TypeToggle = "toggle"
	TypeStop   = "stop"
)

// Outbound is a message sent to a client.
type Outbound struct {
	Type   string      `json:"type"`
	Width  float64     `json:"width,omitempty"`
	Height float64     `json:"height,omitempty"`
	Frame  *game.Frame `json:"frame,omitempty"`
	Paused bool        `json:"paused"`
	Error  string      `json:"error,omitempty"`
}

// Inbound is a control message received from a client.
type Inbound struct {
	Type string `json:"type"`
}

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// client serializes writes to one connection.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) send(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

// Server serves /ws (frame stream and control) and /frame (latest frame).
type Server struct {
	src         FrameSource
	ctl         *game.Control
	width       float64
	height      float64
	frameBuffer int
	mux         *http.ServeMux
}

// New creates a server for src. ctl receives client control requests.
func New(src FrameSource, ctl *game.Control, cfg *config.Config) *Server {
	s := &Server{
		src:         src,
		ctl:         ctl,
		width:       cfg.World.Width,
		height:      cfg.World.Height,
		frameBuffer: cfg.Server.FrameBuffer,
		mux:         http.NewServeMux(),
	}
	s.mux.HandleFunc("/ws", s.handleWS)
	s.mux.HandleFunc("/frame", s.handleFrame)
	return s
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.mux}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	slog.Info("server started", "addr", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	f := s.src.Frame()
	if f == nil {
		http.Error(w, "no frame yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(f); err != nil {
		slog.Error("frame encode", "error", err)
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}
	c := &client{conn: conn}
	defer conn.Close()

	frames, unsubscribe := s.src.Subscribe(s.frameBuffer)
	defer unsubscribe()

	if err := c.send(Outbound{Type: TypeConfig, Width: s.width, Height: s.height, Paused: s.ctl.Paused()}); err != nil {
		return
	}

	// Writer: frames queue in the subscription buffer and are dropped when
	// it is full, so a slow client only loses frames.
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for f := range frames {
			if err := c.send(Outbound{Type: TypeFrame, Frame: f, Paused: s.ctl.Paused()}); err != nil {
				slog.Debug("client send error", "error", err)
				conn.Close()
				return
			}
		}
	}()

	for {
		var msg Inbound
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		reply := s.control(msg)
		if err := c.send(reply); err != nil {
			break
		}
	}

	unsubscribe()
	<-writerDone
}

// control applies a client request and returns the reply.
func (s *Server) control(msg Inbound) Outbound {
	switch msg.Type {
	case TypePause:
		s.ctl.Pause()
	case TypeResume:
		s.ctl.Resume()
	case TypeToggle:
		s.ctl.TogglePause()
	case TypeStop:
		s.ctl.Stop()
	default:
		return Outbound{Type: TypeError, Error: "unknown message type " + msg.Type, Paused: s.ctl.Paused()}
	}
	slog.Info("client control", "type", msg.Type)
	return Outbound{Type: TypeAck, Paused: s.ctl.Paused()}
}
