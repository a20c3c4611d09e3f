package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"

	"github.com/agromesh/realtime-gateway/internal/bridge"
	"github.com/agromesh/realtime-gateway/internal/config"
	"github.com/agromesh/realtime-gateway/internal/dispatch"
	"github.com/agromesh/realtime-gateway/internal/room"
	"github.com/agromesh/realtime-gateway/internal/session"
	"github.com/agromesh/realtime-gateway/internal/token"
)

const testSigningKey = "gateway-test-signing-key"

type fakeBus struct{ connected bool }

func (b *fakeBus) Connected() bool { return b.connected }

func (b *fakeBus) Stats() bridge.Stats { return bridge.Stats{Connected: b.connected} }

type testGateway struct {
	server     *Server
	http       *httptest.Server
	bus        *fakeBus
	registry   *session.Registry
	dispatcher *dispatch.Dispatcher
}

func newTestGateway(t *testing.T, mutate func(*config.GatewayConfig)) *testGateway {
	t.Helper()
	t.Setenv("BUS_URL", "nats://localhost:4222")
	t.Setenv("TOKEN_SIGNING_KEY", testSigningKey)

	cfg, err := config.LoadAndValidate("")
	if err != nil {
		t.Fatalf("LoadAndValidate: %v", err)
	}
	if mutate != nil {
		mutate(cfg)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	index := room.NewIndex(cfg.Limits.MaxSubsPerSession)
	registry := session.NewRegistry(index, cfg.Limits.MaxSessionsPerTenant, logger)
	disp := dispatch.New(index, registry, cfg.Limits.DispatchBuffer, logger)
	if err := disp.Start(context.Background()); err != nil {
		t.Fatalf("start dispatcher: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		disp.Stop(ctx)
	})

	bus := &fakeBus{connected: true}
	srv := NewServer(cfg, token.NewVerifier([]byte(testSigningKey)), index, registry, disp, bus, logger)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &testGateway{server: srv, http: ts, bus: bus, registry: registry, dispatcher: disp}
}

func (g *testGateway) wsURL(query string) string {
	u := "ws" + strings.TrimPrefix(g.http.URL, "http") + "/ws"
	if query != "" {
		u += "?" + query
	}
	return u
}

func signTestToken(t *testing.T, tenant, subject string, exp time.Time) string {
	t.Helper()
	claims := jwt.MapClaims{"sub": subject, "exp": exp.Unix()}
	if tenant != "" {
		claims["tenant"] = tenant
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSigningKey))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func dial(t *testing.T, g *testGateway, query string, header http.Header) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(g.wsURL(query), header)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func dialAuthed(t *testing.T, g *testGateway, tenant, subject string) *websocket.Conn {
	t.Helper()
	tok := signTestToken(t, tenant, subject, time.Now().Add(time.Hour))
	h := http.Header{"Authorization": []string{"Bearer " + tok}}
	return dial(t, g, "tenant_id="+tenant, h)
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("decode frame %q: %v", data, err)
	}
	return m
}

func sendFrame(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	if err := conn.WriteJSON(v); err != nil {
		t.Fatalf("write frame: %v", err)
	}
}

// expectClose reads until the peer closes, skipping any data frames that
// were flushed first.
func expectClose(t *testing.T, conn *websocket.Conn, wantCode int) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		_, _, err := conn.ReadMessage()
		if err == nil {
			continue
		}
		var ce *websocket.CloseError
		if !errors.As(err, &ce) {
			t.Fatalf("read error = %v, want close %d", err, wantCode)
		}
		if ce.Code != wantCode {
			t.Errorf("close code = %d, want %d", ce.Code, wantCode)
		}
		return
	}
}

func subscribe(t *testing.T, conn *websocket.Conn, topics ...string) map[string]any {
	t.Helper()
	sendFrame(t, conn, map[string]any{"type": "subscribe", "topics": topics})
	ack := readFrame(t, conn)
	if ack["type"] != "subscribed" {
		t.Fatalf("ack type = %v, want subscribed", ack["type"])
	}
	return ack
}

func TestAuthHappyPath(t *testing.T) {
	g := newTestGateway(t, nil)
	conn := dialAuthed(t, g, "farm-a", "user-1")

	ack := subscribe(t, conn, "field.F001.ndvi")
	accepted := ack["accepted"].([]any)
	if len(accepted) != 1 || accepted[0] != "field.F001.ndvi" {
		t.Errorf("accepted = %v, want [field.F001.ndvi]", accepted)
	}

	if got := g.registry.TenantCount("farm-a"); got != 1 {
		t.Errorf("tenant session count = %d, want 1", got)
	}
}

func TestAuthMissingToken(t *testing.T) {
	g := newTestGateway(t, nil)
	conn := dial(t, g, "tenant_id=farm-a", nil)
	expectClose(t, conn, CloseAuthFailed)
}

func TestAuthBadSignature(t *testing.T) {
	g := newTestGateway(t, nil)
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-1", "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("some-other-key"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	conn := dial(t, g, "tenant_id=farm-a", http.Header{"Authorization": []string{"Bearer " + tok}})
	expectClose(t, conn, CloseAuthFailed)
}

func TestAuthTenantMismatch(t *testing.T) {
	g := newTestGateway(t, nil)
	tok := signTestToken(t, "farm-a", "user-1", time.Now().Add(time.Hour))
	conn := dial(t, g, "tenant_id=farm-b", http.Header{"Authorization": []string{"Bearer " + tok}})
	expectClose(t, conn, CloseTenantMismatch)
}

func TestAuthQueryParamFallback(t *testing.T) {
	g := newTestGateway(t, nil)
	tok := signTestToken(t, "farm-a", "user-1", time.Now().Add(time.Hour))
	conn := dial(t, g, "tenant_id=farm-a&token="+tok, nil)
	subscribe(t, conn, "field.F001.ndvi")
}

func TestAnonymousMode(t *testing.T) {
	g := newTestGateway(t, func(cfg *config.GatewayConfig) {
		cfg.Auth.AllowAnonymous = true
	})
	conn := dial(t, g, "tenant_id=farm-a", nil)
	subscribe(t, conn, "field.F001.ndvi")

	if got := g.registry.TenantCount("farm-a"); got != 1 {
		t.Errorf("tenant session count = %d, want 1", got)
	}
}

func TestTokenExpiryClosesSession(t *testing.T) {
	g := newTestGateway(t, nil)
	tok := signTestToken(t, "farm-a", "user-1", time.Now().Add(300*time.Millisecond))
	conn := dial(t, g, "tenant_id=farm-a", http.Header{"Authorization": []string{"Bearer " + tok}})
	expectClose(t, conn, CloseAuthFailed)
}

func TestTenantCapacity(t *testing.T) {
	g := newTestGateway(t, func(cfg *config.GatewayConfig) {
		cfg.Limits.MaxSessionsPerTenant = 1
	})
	first := dialAuthed(t, g, "farm-a", "user-1")
	subscribe(t, first, "field.F001.ndvi")

	second := dialAuthed(t, g, "farm-a", "user-2")
	expectClose(t, second, CloseTenantCapacity)

	// A different tenant is unaffected.
	other := dialAuthed(t, g, "farm-b", "user-3")
	subscribe(t, other, "field.F002.ndvi")
}

func TestSubscribePartialFailure(t *testing.T) {
	g := newTestGateway(t, nil)
	conn := dialAuthed(t, g, "farm-a", "user-1")

	sendFrame(t, conn, map[string]any{"type": "subscribe", "topics": []string{
		"field.F001.ndvi",
		"tenant.farm-b.alerts", // other tenant
		"field.*.ndvi",         // wildcard not in last position
		"",
	}})
	ack := readFrame(t, conn)

	accepted := ack["accepted"].([]any)
	failed := ack["failed"].([]any)
	if len(accepted) != 1 || accepted[0] != "field.F001.ndvi" {
		t.Errorf("accepted = %v, want [field.F001.ndvi]", accepted)
	}
	if len(failed) != 3 {
		t.Fatalf("failed = %v, want 3 entries", failed)
	}

	reasons := make(map[string]string)
	for _, f := range failed {
		entry := f.(map[string]any)
		reasons[entry["topic"].(string)] = entry["reason"].(string)
	}
	if reasons["tenant.farm-b.alerts"] != "forbidden" {
		t.Errorf("cross-tenant reason = %q, want forbidden", reasons["tenant.farm-b.alerts"])
	}
	if reasons["field.*.ndvi"] != "invalid_topic" {
		t.Errorf("wildcard reason = %q, want invalid_topic", reasons["field.*.ndvi"])
	}
}

func TestSubscriptionCap(t *testing.T) {
	g := newTestGateway(t, func(cfg *config.GatewayConfig) {
		cfg.Limits.MaxSubsPerSession = 3 // two taken by auto-subscriptions
	})
	conn := dialAuthed(t, g, "farm-a", "user-1")

	subscribe(t, conn, "field.F001.ndvi")

	sendFrame(t, conn, map[string]any{"type": "subscribe", "topics": []string{"field.F002.ndvi"}})
	ack := readFrame(t, conn)
	failed := ack["failed"].([]any)
	if len(failed) != 1 {
		t.Fatalf("failed = %v, want 1 entry", failed)
	}
	if reason := failed[0].(map[string]any)["reason"]; reason != "limit_exceeded" {
		t.Errorf("reason = %v, want limit_exceeded", reason)
	}
}

func TestEventDelivery(t *testing.T) {
	g := newTestGateway(t, nil)
	conn := dialAuthed(t, g, "farm-a", "user-1")
	subscribe(t, conn, "field.F001.>")

	recipients := g.dispatcher.Dispatch(dispatch.Event{
		Topic:      "field.F001.ndvi",
		EventType:  "field.ndvi",
		Payload:    json.RawMessage(`{"value":0.82}`),
		IngestTime: time.Now().UTC(),
	})
	if recipients != 1 {
		t.Fatalf("recipients = %d, want 1", recipients)
	}

	ev := readFrame(t, conn)
	if ev["type"] != "event" {
		t.Errorf("type = %v, want event", ev["type"])
	}
	if ev["topic"] != "field.F001.ndvi" {
		t.Errorf("topic = %v, want field.F001.ndvi", ev["topic"])
	}
	if ev["event_type"] != "field.ndvi" {
		t.Errorf("event_type = %v, want field.ndvi", ev["event_type"])
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	g := newTestGateway(t, nil)
	conn := dialAuthed(t, g, "farm-a", "user-1")
	subscribe(t, conn, "field.F001.ndvi")

	sendFrame(t, conn, map[string]any{"type": "unsubscribe", "topics": []string{"field.F001.ndvi"}})
	ack := readFrame(t, conn)
	if ack["type"] != "unsubscribed" {
		t.Fatalf("ack type = %v, want unsubscribed", ack["type"])
	}

	recipients := g.dispatcher.Dispatch(dispatch.Event{
		Topic:     "field.F001.ndvi",
		EventType: "field.ndvi",
		Payload:   json.RawMessage(`{}`),
	})
	if recipients != 0 {
		t.Errorf("recipients after unsubscribe = %d, want 0", recipients)
	}
}

func TestClientBroadcast(t *testing.T) {
	g := newTestGateway(t, nil)
	sender := dialAuthed(t, g, "farm-a", "user-a")
	receiver := dialAuthed(t, g, "farm-a", "user-b")
	subscribe(t, sender, "chat.room1")
	subscribe(t, receiver, "chat.room1")

	sendFrame(t, sender, map[string]any{
		"type":    "broadcast",
		"room":    "chat.room1",
		"message": map[string]any{"text": "hello"},
	})

	ev := readFrame(t, receiver)
	if ev["type"] != "event" {
		t.Fatalf("type = %v, want event", ev["type"])
	}
	if ev["event_type"] != "chat.message" {
		t.Errorf("event_type = %v, want chat.message", ev["event_type"])
	}
	if ev["subject"] != "user-a" {
		t.Errorf("subject = %v, want user-a", ev["subject"])
	}
}

func TestBroadcastNotSubscribed(t *testing.T) {
	g := newTestGateway(t, nil)
	conn := dialAuthed(t, g, "farm-a", "user-1")

	sendFrame(t, conn, map[string]any{
		"type":    "broadcast",
		"room":    "chat.room1",
		"message": map[string]any{"text": "hello"},
	})
	errFrame := readFrame(t, conn)
	if errFrame["type"] != "error" || errFrame["code"] != errNotSubscribed {
		t.Errorf("frame = %v, want error/not_subscribed", errFrame)
	}
}

func TestBroadcastRateLimit(t *testing.T) {
	g := newTestGateway(t, func(cfg *config.GatewayConfig) {
		cfg.Limits.BroadcastRatePerSec = 1
		cfg.Limits.BroadcastBurst = 1
	})
	conn := dialAuthed(t, g, "farm-a", "user-1")
	subscribe(t, conn, "chat.room1")

	for range 2 {
		sendFrame(t, conn, map[string]any{
			"type":    "broadcast",
			"room":    "chat.room1",
			"message": map[string]any{"text": "hi"},
		})
	}

	// First broadcast fans back to the sender; the second is refused.
	sawLimit := false
	for range 2 {
		f := readFrame(t, conn)
		if f["type"] == "error" && f["code"] == errRateLimited {
			sawLimit = true
		}
	}
	if !sawLimit {
		t.Error("second broadcast was not rate limited")
	}
}

func TestPingPong(t *testing.T) {
	g := newTestGateway(t, nil)
	conn := dialAuthed(t, g, "farm-a", "user-1")

	sendFrame(t, conn, map[string]any{"type": "ping"})
	pong := readFrame(t, conn)
	if pong["type"] != "pong" {
		t.Errorf("type = %v, want pong", pong["type"])
	}
	if pong["timestamp"] == nil {
		t.Error("pong carries no timestamp")
	}
}

func TestTypingIndicator(t *testing.T) {
	g := newTestGateway(t, nil)
	a := dialAuthed(t, g, "farm-a", "user-a")
	b := dialAuthed(t, g, "farm-a", "user-b")
	subscribe(t, a, "chat.room1")
	subscribe(t, b, "chat.room1")

	sendFrame(t, a, map[string]any{"type": "typing", "room": "chat.room1", "typing": true})

	ev := readFrame(t, b)
	if ev["event_type"] != "chat.typing" {
		t.Fatalf("event_type = %v, want chat.typing", ev["event_type"])
	}
	data := ev["data"].(map[string]any)
	if data["subject"] != "user-a" || data["typing"] != true {
		t.Errorf("payload = %v, want subject user-a typing true", data)
	}
}

func TestMalformedAndUnknownFrames(t *testing.T) {
	g := newTestGateway(t, nil)
	conn := dialAuthed(t, g, "farm-a", "user-1")

	if err := conn.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatalf("write: %v", err)
	}
	f := readFrame(t, conn)
	if f["code"] != errBadFrame {
		t.Errorf("code = %v, want %s", f["code"], errBadFrame)
	}

	sendFrame(t, conn, map[string]any{"type": "bogus"})
	f = readFrame(t, conn)
	if f["code"] != errUnknownType {
		t.Errorf("code = %v, want %s", f["code"], errUnknownType)
	}

	// Faults do not end the session.
	subscribe(t, conn, "field.F001.ndvi")
}

func TestRepeatedProtocolFaultsCloseSession(t *testing.T) {
	g := newTestGateway(t, nil)
	conn := dialAuthed(t, g, "farm-a", "user-1")

	for range maxProtocolFaults {
		sendFrame(t, conn, map[string]any{"type": "bogus"})
	}
	expectClose(t, conn, websocket.ClosePolicyViolation)
}

func TestIdleTimeout(t *testing.T) {
	g := newTestGateway(t, func(cfg *config.GatewayConfig) {
		cfg.Limits.IdleTimeout = 300 * time.Millisecond
	})
	conn := dialAuthed(t, g, "farm-a", "user-1")
	// Swallow server pings so nothing refreshes the idle clock.
	conn.SetPingHandler(func(string) error { return nil })

	expectClose(t, conn, CloseIdleTimeout)
}

func TestHealthz(t *testing.T) {
	g := newTestGateway(t, nil)
	resp, err := http.Get(g.http.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["service"] != "realtime-gateway" {
		t.Errorf("service = %v, want realtime-gateway", body["service"])
	}
}

func TestReadyzReflectsBusState(t *testing.T) {
	g := newTestGateway(t, nil)

	resp, err := http.Get(g.http.URL + "/readyz")
	if err != nil {
		t.Fatalf("GET /readyz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	g.bus.connected = false
	resp, err = http.Get(g.http.URL + "/readyz")
	if err != nil {
		t.Fatalf("GET /readyz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status with bus down = %d, want 503", resp.StatusCode)
	}
}

func TestStatsEndpoint(t *testing.T) {
	g := newTestGateway(t, nil)
	conn := dialAuthed(t, g, "farm-a", "user-1")
	subscribe(t, conn, "field.F001.ndvi")

	resp, err := http.Get(g.http.URL + "/stats")
	if err != nil {
		t.Fatalf("GET /stats: %v", err)
	}
	defer resp.Body.Close()

	var body struct {
		Sessions session.Stats `json:"sessions"`
		Frames   frameCounters `json:"frames"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Sessions.TotalSessions != 1 {
		t.Errorf("total sessions = %d, want 1", body.Sessions.TotalSessions)
	}
	if body.Frames.InboundTotal < 1 {
		t.Errorf("inbound frames = %d, want >= 1", body.Frames.InboundTotal)
	}
}

func TestTenantStats(t *testing.T) {
	g := newTestGateway(t, nil)
	conn := dialAuthed(t, g, "farm-a", "user-1")
	subscribe(t, conn, "field.F001.ndvi")

	resp, err := http.Get(g.http.URL + "/stats/tenant/farm-a")
	if err != nil {
		t.Fatalf("GET tenant stats: %v", err)
	}
	defer resp.Body.Close()

	var body struct {
		Tenant      string              `json:"tenant"`
		Connections int                 `json:"connections"`
		Sessions    []tenantSessionInfo `json:"sessions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Connections != 1 || len(body.Sessions) != 1 {
		t.Fatalf("connections = %d sessions = %d, want 1/1", body.Connections, len(body.Sessions))
	}
	if body.Sessions[0].Subject != "user-1" {
		t.Errorf("subject = %q, want user-1", body.Sessions[0].Subject)
	}
	// Auto-subscriptions plus the explicit one.
	if got := len(body.Sessions[0].Subscriptions); got != 3 {
		t.Errorf("subscriptions = %d, want 3", got)
	}
}

func TestAdminBroadcastToTenant(t *testing.T) {
	g := newTestGateway(t, nil)
	conn := dialAuthed(t, g, "farm-a", "user-1")
	subscribe(t, conn, "field.F001.ndvi") // wait until fully registered

	req := `{"tenant_id":"farm-a","message":{"text":"maintenance at noon"}}`
	resp, err := http.Post(g.http.URL+"/broadcast", "application/json", strings.NewReader(req))
	if err != nil {
		t.Fatalf("POST /broadcast: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body struct {
		Recipients int `json:"recipients"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Recipients != 1 {
		t.Errorf("recipients = %d, want 1", body.Recipients)
	}

	ev := readFrame(t, conn)
	if ev["event_type"] != "admin.broadcast" {
		t.Errorf("event_type = %v, want admin.broadcast", ev["event_type"])
	}
	if ev["priority"] != "high" {
		t.Errorf("priority = %v, want high", ev["priority"])
	}
}

func TestAdminBroadcastTargetValidation(t *testing.T) {
	g := newTestGateway(t, nil)

	bodies := []string{
		`{"message":{"a":1}}`,                            // no target
		`{"tenant_id":"t1","user_id":"u1","message":{}}`, // two targets
		`{"tenant_id":"t1"}`,                             // no message
		`{"room":"bogus..topic","message":{"a":1}}`,      // invalid room
	}
	for _, b := range bodies {
		resp, err := http.Post(g.http.URL+"/broadcast", "application/json", strings.NewReader(b))
		if err != nil {
			t.Fatalf("POST /broadcast: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("body %s: status = %d, want 400", b, resp.StatusCode)
		}
	}
}

func TestAdminDisconnect(t *testing.T) {
	g := newTestGateway(t, nil)
	conn := dialAuthed(t, g, "farm-a", "user-1")
	subscribe(t, conn, "field.F001.ndvi")

	sessions := g.registry.ByTenant("farm-a")
	if len(sessions) != 1 {
		t.Fatalf("sessions = %d, want 1", len(sessions))
	}

	req, _ := http.NewRequest(http.MethodDelete, g.http.URL+"/connections/"+sessions[0].ID, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE connection: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	expectClose(t, conn, CloseForcedDisconnect)

	req, _ = http.NewRequest(http.MethodDelete, g.http.URL+"/connections/no-such-session", nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE unknown connection: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status for unknown id = %d, want 404", resp.StatusCode)
	}
}

func TestCheckOrigin(t *testing.T) {
	g := newTestGateway(t, func(cfg *config.GatewayConfig) {
		cfg.Server.AllowedOrigins = []string{"https://app.example.com"}
	})

	tests := []struct {
		origin string
		want   bool
	}{
		{"", true}, // non-browser clients
		{"https://app.example.com", true},
		{"https://evil.example.com", false},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		if tt.origin != "" {
			r.Header.Set("Origin", tt.origin)
		}
		if got := g.server.checkOrigin(r); got != tt.want {
			t.Errorf("checkOrigin(%q) = %v, want %v", tt.origin, got, tt.want)
		}
	}
}
