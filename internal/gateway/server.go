package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/agromesh/realtime-gateway/internal/bridge"
	"github.com/agromesh/realtime-gateway/internal/config"
	"github.com/agromesh/realtime-gateway/internal/dispatch"
	"github.com/agromesh/realtime-gateway/internal/room"
	"github.com/agromesh/realtime-gateway/internal/session"
	"github.com/agromesh/realtime-gateway/internal/token"
)

// writeWait is the write deadline for outbound frames and control
// messages.
const writeWait = 5 * time.Second

// maxProtocolFaults is how many malformed or unknown frames a session
// may send before it is closed.
const maxProtocolFaults = 10

// Bus reports upstream health for the readiness endpoint and stats.
type Bus interface {
	Connected() bool
	Stats() bridge.Stats
}

// Server serves the WebSocket endpoint and the admin surface on one
// listener.
type Server struct {
	cfg        *config.GatewayConfig
	verifier   *token.Verifier
	index      *room.Index
	registry   *session.Registry
	dispatcher *dispatch.Dispatcher
	bus        Bus
	logger     *slog.Logger

	httpServer *http.Server
	upgrader   websocket.Upgrader

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	started        time.Time
	inboundFrames  atomic.Int64
	outboundFrames atomic.Int64
	authFailures   atomic.Int64
}

// NewServer wires the gateway surface over the shared core components.
func NewServer(
	cfg *config.GatewayConfig,
	verifier *token.Verifier,
	index *room.Index,
	registry *session.Registry,
	dispatcher *dispatch.Dispatcher,
	bus Bus,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		cfg:        cfg,
		verifier:   verifier,
		index:      index,
		registry:   registry,
		dispatcher: dispatcher,
		bus:        bus,
		logger:     logger,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	// Replaced by Start; set here so Handler works standalone.
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.started = time.Now()
	return s
}

// Handler returns the combined WebSocket + admin handler. Exposed for
// tests.
func (s *Server) Handler() http.Handler {
	return s.routes()
}

// Start binds the listener and begins serving. A bind failure is a
// startup failure the caller turns into exit code 1.
func (s *Server) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.started = time.Now()
	addr := fmt.Sprintf(":%d", s.cfg.Server.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("bind %s: %w", addr, err)
	}

	s.httpServer = &http.Server{
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server failed", "error", err)
		}
	}()

	s.logger.Info("gateway listening",
		"addr", addr,
		"ws_path", s.cfg.Server.WSPath,
	)
	return nil
}

// Stop closes every session, flushes within the drain window, and shuts
// the listener down.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping gateway")

	if s.cancel != nil {
		s.cancel()
	}
	for _, sess := range s.registry.All() {
		sess.BeginClose(websocket.CloseGoingAway, "server shutting down")
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn("session drain timed out")
	}

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc(s.cfg.Server.WSPath, s.handleWS)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)
	mux.HandleFunc("GET /stats", s.handleStats)
	mux.HandleFunc("GET /stats/tenant/{id}", s.handleTenantStats)
	mux.HandleFunc("POST /broadcast", s.handleAdminBroadcast)
	mux.HandleFunc("DELETE /connections/{id}", s.handleDisconnect)
	return mux
}

// checkOrigin enforces ALLOWED_ORIGINS. An empty list falls back to
// same-origin (and non-browser clients without an Origin header).
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	allowed := s.cfg.Server.AllowedOrigins
	if len(allowed) == 0 {
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return strings.EqualFold(u.Host, r.Host)
	}

	for _, a := range allowed {
		if a == "*" || strings.EqualFold(a, origin) {
			return true
		}
	}
	return false
}

// bearerToken extracts the credential from the Authorization header or,
// as a deprecated fallback, the token query parameter.
func bearerToken(r *http.Request) (credential string, legacy bool) {
	if h := r.Header.Get("Authorization"); h != "" {
		if tok, ok := strings.CutPrefix(h, "Bearer "); ok {
			return tok, false
		}
	}
	if tok := r.URL.Query().Get("token"); tok != "" {
		return tok, true
	}
	return "", false
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	tenantHint := r.URL.Query().Get("tenant_id")
	credential, legacy := bearerToken(r)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("upgrade rejected", "remote", r.RemoteAddr, "error", err)
		return
	}

	conn.SetReadLimit(s.cfg.Limits.MaxFrameBytes)
	// The whole handshake, verification included, must finish inside
	// the auth deadline.
	conn.SetReadDeadline(time.Now().Add(s.cfg.Limits.AuthDeadline))

	identity, terr := s.authenticate(credential, tenantHint)
	if terr != nil {
		s.authFailures.Add(1)
		code := CloseAuthFailed
		if terr.Kind == token.KindTenantMismatch {
			code = CloseTenantMismatch
		}
		s.logger.Warn("authentication failed",
			"kind", terr.Kind.String(),
			"tenant_hint", tenantHint,
			"remote", r.RemoteAddr,
		)
		closeAndDrop(conn, code, terr.Kind.String())
		return
	}
	if legacy {
		s.logger.Warn("credential accepted from query parameter (deprecated)",
			"tenant", identity.Tenant,
			"subject", identity.Subject,
		)
	}

	sess := session.New(identity, session.Config{
		QueueDepth:     s.cfg.Limits.OutboundQueueDepth,
		DropThreshold:  s.cfg.Limits.SlowConsumerThreshold,
		DropWindow:     s.cfg.Limits.SlowConsumerWindow,
		BroadcastRate:  s.cfg.Limits.BroadcastRatePerSec,
		BroadcastBurst: s.cfg.Limits.BroadcastBurst,
	})

	if err := s.registry.Register(sess); err != nil {
		s.logger.Warn("session rejected",
			"tenant", identity.Tenant,
			"error", err,
		)
		closeAndDrop(conn, CloseTenantCapacity, "tenant capacity exceeded")
		return
	}
	sess.Authenticate()

	// Credential expiry ends the session even if it stays active.
	if !identity.Expiry.IsZero() {
		expiry := time.AfterFunc(time.Until(identity.Expiry), func() {
			sess.BeginClose(CloseAuthFailed, "token expired")
		})
		defer expiry.Stop()
	}

	s.logger.Info("session opened",
		"session_id", sess.ID,
		"tenant", identity.Tenant,
		"subject", identity.Subject,
	)

	s.wg.Add(1)
	go s.writePump(sess, conn)
	s.readLoop(sess, conn)
}

// authenticate resolves the session identity. Anonymous mode skips the
// verifier entirely and mints a short-lived anonymous identity.
func (s *Server) authenticate(credential, tenantHint string) (token.Identity, *token.Error) {
	if s.cfg.Auth.AllowAnonymous {
		tenant := tenantHint
		if tenant == "" {
			tenant = "default"
		}
		return token.Identity{
			Subject: "anon-" + uuid.NewString()[:8],
			Tenant:  tenant,
			Expiry:  time.Now().Add(24 * time.Hour),
		}, nil
	}

	if credential == "" {
		return token.Identity{}, &token.Error{
			Kind: token.KindMalformed,
			Err:  errors.New("credential required"),
		}
	}

	identity, err := s.verifier.Verify(credential, tenantHint)
	if err != nil {
		var terr *token.Error
		if errors.As(err, &terr) {
			return token.Identity{}, terr
		}
		return token.Identity{}, &token.Error{Kind: token.KindMalformed, Err: err}
	}
	return identity, nil
}

// readLoop parses inbound frames until the session closes. Runs on the
// HTTP handler goroutine.
func (s *Server) readLoop(sess *session.Session, conn *websocket.Conn) {
	idle := s.cfg.Limits.IdleTimeout

	conn.SetPongHandler(func(string) error {
		sess.Touch()
		return conn.SetReadDeadline(time.Now().Add(idle))
	})
	conn.SetReadDeadline(time.Now().Add(idle))

	faults := 0
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			switch {
			case errors.Is(err, websocket.ErrReadLimit):
				s.sendError(sess, errBadFrame, "frame exceeds size limit")
				sess.BeginClose(websocket.CloseMessageTooBig, "frame too large")
			case isTimeout(err):
				sess.BeginClose(CloseIdleTimeout, "idle timeout")
			default:
				sess.BeginClose(websocket.CloseNormalClosure, "")
			}
			return
		}

		sess.Touch()
		conn.SetReadDeadline(time.Now().Add(idle))
		s.inboundFrames.Add(1)
		if s.handleFrame(sess, data) {
			faults++
			if faults >= maxProtocolFaults {
				sess.BeginClose(websocket.ClosePolicyViolation, "too many protocol errors")
				return
			}
		}

		select {
		case <-sess.Closing():
			return
		default:
		}
	}
}

// writePump is the session's single writer: it drains the outbound
// queue in FIFO order, keeps the connection alive with pings, and
// performs the Closing -> Closed transition.
func (s *Server) writePump(sess *session.Session, conn *websocket.Conn) {
	defer s.wg.Done()

	pingInterval := s.cfg.Limits.IdleTimeout / 3
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-sess.Closing():
			s.finishClose(sess, conn)
			return

		case <-s.ctx.Done():
			sess.BeginClose(websocket.CloseGoingAway, "server shutting down")
			s.finishClose(sess, conn)
			return

		case <-ticker.C:
			conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))

		case <-sess.Queue.Wake():
			if !s.drainQueue(sess, conn) {
				sess.BeginClose(websocket.CloseNormalClosure, "write failure")
				s.finishClose(sess, conn)
				return
			}
		}
	}
}

func (s *Server) drainQueue(sess *session.Session, conn *websocket.Conn) bool {
	for {
		f, ok := sess.Queue.Pop()
		if !ok {
			return true
		}
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, f.Data); err != nil {
			return false
		}
		s.outboundFrames.Add(1)
	}
}

// finishClose flushes buffered frames inside the drain window, sends
// the close frame, releases the transport, and removes every index
// entry before the session is marked Closed.
func (s *Server) finishClose(sess *session.Session, conn *websocket.Conn) {
	deadline := time.Now().Add(s.cfg.Limits.DrainWindow)
	for time.Now().Before(deadline) {
		f, ok := sess.Queue.Pop()
		if !ok {
			break
		}
		conn.SetWriteDeadline(deadline)
		if err := conn.WriteMessage(websocket.TextMessage, f.Data); err != nil {
			break
		}
		s.outboundFrames.Add(1)
	}

	code, reason := sess.CloseCode()
	conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason),
		time.Now().Add(time.Second),
	)
	conn.Close()

	s.registry.Deregister(sess.ID)
	sess.MarkClosed()

	s.logger.Info("session closed",
		"session_id", sess.ID,
		"tenant", sess.Identity.Tenant,
		"code", code,
		"reason", reason,
		"drops", sess.Drops(),
	)
}

// closeAndDrop rejects a connection that never became a session.
func closeAndDrop(conn *websocket.Conn, code int, reason string) {
	conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason),
		time.Now().Add(time.Second),
	)
	conn.Close()
}

func isTimeout(err error) bool {
	var nerr net.Error
	return errors.As(err, &nerr) && nerr.Timeout()
}
