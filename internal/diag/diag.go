// Package diag implements an optional, off-by-default introspection server
// that polls the index generation every 200ms and broadcasts a message over
// WebSocket when it has changed (several changes within one interval yield
// one message); WebSocket connections are rate-limited the same way the
// teacher bounds its API routes. This is a
// supplemented, read-only observability feature (SPEC_FULL.md §10.3): it
// adds no file-picking behavior of its own.
package diag

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rybkr/fffpicker/internal/picker"
)

const (
	writeWait            = 10 * time.Second
	pingPeriod           = 30 * time.Second
	broadcastChannelSize = 16
)

// Update is one broadcast message: the state of the index at the moment a
// snapshot was published.
type Update struct {
	Generation uint64 `json:"generation"`
	TotalFiles int    `json:"total_files"`
	Scanning   bool   `json:"scanning"`
}

// Server serves a minimal JSON+WebSocket feed of Update messages.
type Server struct {
	addr        string
	p           *picker.Picker
	logger      *slog.Logger
	rateLimiter *rateLimiter
	upgrader    websocket.Upgrader

	httpServer *http.Server

	clientsMu sync.RWMutex
	clients   map[*websocket.Conn]*sync.Mutex

	broadcast chan Update

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New constructs a Server that will poll p for generation changes and
// serve them at addr. It does not start listening until Start is called.
func New(addr string, p *picker.Picker, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		addr:        addr,
		p:           p,
		logger:      logger,
		rateLimiter: newRateLimiter(20, 40, time.Second),
		upgrader:    websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024},
		clients:     make(map[*websocket.Conn]*sync.Mutex),
		broadcast:   make(chan Update, broadcastChannelSize),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start begins serving and blocks until the server exits or the context is
// canceled via Shutdown.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/ws", s.rateLimiter.middleware(s.handleWebSocket))

	s.httpServer = &http.Server{
		Addr:         s.addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	s.wg.Add(1)
	go s.handleBroadcast()

	s.wg.Add(1)
	go s.pollGenerations()

	s.logger.Info("diagnostics server starting", "addr", "http://"+s.addr)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully tears the server down.
func (s *Server) Shutdown() {
	if s.httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("diagnostics server shutdown error", "err", err)
		}
	}

	s.cancel()
	s.rateLimiter.Close()
	s.wg.Wait()

	s.clientsMu.Lock()
	for conn := range s.clients {
		_ = conn.Close()
	}
	s.clients = make(map[*websocket.Conn]*sync.Mutex)
	s.clientsMu.Unlock()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// pollGenerations watches for generation changes in the index and queues a
// broadcast whenever one is observed. Polling (rather than an internal index
// hook) keeps diag fully decoupled from the index/watcher locking
// discipline.
func (s *Server) pollGenerations() {
	defer s.wg.Done()

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	var lastGen uint64
	first := true

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			gen := s.p.Generation()
			if first || gen != lastGen {
				first = false
				lastGen = gen
				progress := s.p.GetScanProgress()
				s.queueBroadcast(Update{
					Generation: gen,
					TotalFiles: progress.TotalFiles,
					Scanning:   progress.IsScanning,
				})
			}
		}
	}
}

func (s *Server) queueBroadcast(u Update) {
	select {
	case s.broadcast <- u:
	default:
		s.logger.Warn("diagnostics broadcast channel full, dropping update")
	}
}

func (s *Server) handleBroadcast() {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case u := <-s.broadcast:
			s.sendToAllClients(u)
		}
	}
}

func (s *Server) sendToAllClients(u Update) {
	s.clientsMu.RLock()
	snapshot := make(map[*websocket.Conn]*sync.Mutex, len(s.clients))
	for conn, mu := range s.clients {
		snapshot[conn] = mu
	}
	s.clientsMu.RUnlock()

	var failed []*websocket.Conn
	for conn, mu := range snapshot {
		mu.Lock()
		err := conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err == nil {
			err = conn.WriteJSON(u)
		}
		mu.Unlock()
		if err != nil {
			failed = append(failed, conn)
		}
	}

	if len(failed) > 0 {
		s.clientsMu.Lock()
		for _, conn := range failed {
			delete(s.clients, conn)
			_ = conn.Close()
		}
		s.clientsMu.Unlock()
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "err", err)
		return
	}

	writeMu := &sync.Mutex{}
	s.clientsMu.Lock()
	s.clients[conn] = writeMu
	s.clientsMu.Unlock()

	progress := s.p.GetScanProgress()
	initial := Update{Generation: s.p.Generation(), TotalFiles: progress.TotalFiles, Scanning: progress.IsScanning}
	writeMu.Lock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = conn.WriteJSON(initial)
	writeMu.Unlock()

	done := make(chan struct{})
	go s.clientReadPump(conn, done)
	s.clientWritePump(conn, done, writeMu)
}

func (s *Server) clientReadPump(conn *websocket.Conn, done chan struct{}) {
	defer close(done)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) clientWritePump(conn *websocket.Conn, done chan struct{}, writeMu *sync.Mutex) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	defer func() {
		s.clientsMu.Lock()
		delete(s.clients, conn)
		s.clientsMu.Unlock()
		_ = conn.Close()
	}()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			writeMu.Lock()
			err := conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err == nil {
				err = conn.WriteMessage(websocket.PingMessage, nil)
			}
			writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}
