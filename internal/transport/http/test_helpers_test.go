package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/courierchat/courier-server/internal/auth"
	"github.com/courierchat/courier-server/internal/config"
	"github.com/courierchat/courier-server/internal/core"
	"github.com/courierchat/courier-server/internal/proto"
	"github.com/courierchat/courier-server/internal/store/sqlite"
)

// testServer bundles everything a transport test needs.
type testServer struct {
	ts       *httptest.Server
	store    *sqlite.SQLiteStore
	registry *core.Registry
	auth     *auth.Service
}

func startTestServer(t *testing.T) *testServer {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	logger := zerolog.Nop()
	jwtConfig := &auth.JWTConfig{
		Secret:   []byte("test-secret-change-me"),
		Issuer:   "test",
		Audience: "test",
		TTL:      time.Hour,
	}
	authService := auth.NewService(st, jwtConfig, auth.NewLogMailer(&logger, "http://localhost"), 15*time.Minute)

	registry := core.NewRegistry()
	router := core.NewRouter(st, st, registry, &logger)

	cfg := &config.Config{
		Addr:              ":0",
		ReadHeaderTimeout: time.Second,
		ShutdownTimeout:   time.Second,
		MaxMessageBytes:   1 << 20,
	}
	server := NewServer(authService, registry, router, st, cfg, &logger)

	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return &testServer{ts: ts, store: st, registry: registry, auth: authService}
}

// registerUser creates an account through the REST API and returns its token.
func (s *testServer) registerUser(t *testing.T, username string) string {
	t.Helper()

	body, _ := json.Marshal(RegisterRequest{
		Username: username,
		Email:    username + "@example.com",
		Password: "password123",
	})
	resp, err := s.ts.Client().Post(s.ts.URL+"/api/register", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("register %s: %v", username, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 201 {
		t.Fatalf("register %s: unexpected status %d", username, resp.StatusCode)
	}

	var authResp AuthResponse
	if err := json.NewDecoder(resp.Body).Decode(&authResp); err != nil {
		t.Fatalf("decode register response: %v", err)
	}
	return authResp.Token
}

// dialWS opens an authenticated WebSocket connection.
func (s *testServer) dialWS(ctx context.Context, t *testing.T, token string) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + s.ts.URL[len("http"):] + "/ws?token=" + token
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial ws: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

// readUntilType reads frames until one of the wanted type arrives, skipping
// unrelated events (presence churn from other test clients).
func readUntilType(ctx context.Context, t *testing.T, conn *websocket.Conn, wanted string) proto.Outbound {
	t.Helper()

	for {
		var outbound proto.Outbound
		if err := wsjson.Read(ctx, conn, &outbound); err != nil {
			t.Fatalf("read waiting for %q: %v", wanted, err)
		}
		if outbound.Type == wanted {
			return outbound
		}
	}
}

// decodeData re-marshals the envelope's data field into the given value.
func decodeData(t *testing.T, outbound proto.Outbound, v any) {
	t.Helper()

	raw, err := json.Marshal(outbound.Data)
	if err != nil {
		t.Fatalf("marshal outbound data: %v", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		t.Fatalf("unmarshal outbound data: %v", err)
	}
}

func sendPrivateMessage(ctx context.Context, t *testing.T, conn *websocket.Conn, to, content string) {
	t.Helper()

	payload, _ := json.Marshal(proto.PrivateMessageData{Content: content, ReceiverUsername: to})
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: proto.InboundTypeMessage, Data: payload}); err != nil {
		t.Fatalf("send private message: %v", err)
	}
}
