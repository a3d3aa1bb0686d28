package http

import (
	"bytes"
	"context"
	"encoding/json"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/coinchat-server/internal/auth"
	"github.com/vovakirdan/coinchat-server/internal/config"
	"github.com/vovakirdan/coinchat-server/internal/core"
	"github.com/vovakirdan/coinchat-server/internal/log"
	"github.com/vovakirdan/coinchat-server/internal/proto"
	"github.com/vovakirdan/coinchat-server/internal/service/economy"
	"github.com/vovakirdan/coinchat-server/internal/service/history"
	"github.com/vovakirdan/coinchat-server/internal/store/sqlite"
)

type testServer struct {
	ts  *httptest.Server
	hub *core.Hub
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Addr = ":0"
	cfg.StartingCoins = 100
	cfg.UnlockCost = 10
	return cfg
}

func startTestServer(t *testing.T, cfg config.Config) *testServer {
	t.Helper()

	st, err := sqlite.NewWithSetup(":memory:", sqlite.ApplySchema, sqlite.WithStartingCoins(cfg.StartingCoins))
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	logger := log.Nop()
	authService := auth.NewService(st, &auth.JWTConfig{
		Secret:   []byte("test-secret"),
		Issuer:   "test",
		Audience: "test",
		TTL:      time.Hour,
	})
	econ := economy.New(st, cfg.UnlockCost, cfg.StoreTimeout, logger)
	hist := history.New(st, history.Options{Timeout: cfg.StoreTimeout})

	hub := core.NewHub(core.Dependencies{
		Auth:    authService,
		Economy: econ,
		History: hist,
	}, core.Options{MaxMessageBytes: int(cfg.MaxMessageBytes)}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()

	server := NewServer(Deps{
		Hub:     hub,
		Auth:    authService,
		Users:   st,
		Wallet:  econ,
		History: hist,
	}, cfg, logger)

	ts := httptest.NewServer(server.Handler)
	t.Cleanup(func() {
		ts.Close()
		cancel()
		<-done
	})

	return &testServer{ts: ts, hub: hub}
}

func (s *testServer) postJSON(t *testing.T, path string, body any) *stdhttp.Response {
	t.Helper()

	payload, _ := json.Marshal(body)
	resp, err := s.ts.Client().Post(s.ts.URL+path, "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("post %s: %v", path, err)
	}
	return resp
}

func (s *testServer) get(t *testing.T, path, token string) *stdhttp.Response {
	t.Helper()

	req, _ := stdhttp.NewRequest(stdhttp.MethodGet, s.ts.URL+path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.ts.Client().Do(req)
	if err != nil {
		t.Fatalf("get %s: %v", path, err)
	}
	return resp
}

// register creates an account over REST and returns its token and id.
func (s *testServer) register(t *testing.T, username string) (string, int64) {
	t.Helper()

	resp := s.postJSON(t, "/api/register", CredentialsRequest{Username: username, Password: "secret123"})
	defer resp.Body.Close()
	if resp.StatusCode != stdhttp.StatusCreated {
		t.Fatalf("register %s: unexpected status %d", username, resp.StatusCode)
	}
	var out AuthResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode register response: %v", err)
	}
	return out.Token, out.User.ID
}

func (s *testServer) dial(t *testing.T, ctx context.Context, query string) *websocket.Conn {
	t.Helper()

	wsURL := strings.Replace(s.ts.URL, "http", "ws", 1) + "/ws" + query
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

// connect dials with a query token and waits for the authenticated event.
func (s *testServer) connect(t *testing.T, ctx context.Context, token string) *websocket.Conn {
	t.Helper()

	conn := s.dial(t, ctx, "?token="+token)
	readEvent(t, ctx, conn, proto.EventAuthenticated, nil)
	return conn
}

func send(t *testing.T, ctx context.Context, conn *websocket.Conn, typ string, data any) {
	t.Helper()

	payload, _ := json.Marshal(data)
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Data: payload}); err != nil {
		t.Fatalf("send %s: %v", typ, err)
	}
}

type rawOutbound struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

// readEvent reads until an event named name arrives and decodes its data into v.
func readEvent(t *testing.T, ctx context.Context, conn *websocket.Conn, name string, v any) {
	t.Helper()

	for {
		var out rawOutbound
		if err := wsjson.Read(ctx, conn, &out); err != nil {
			t.Fatalf("waiting for %s: %v", name, err)
		}
		if out.Type != proto.OutboundTypeEvent || out.Event != name {
			continue
		}
		if v != nil {
			if err := json.Unmarshal(out.Data, v); err != nil {
				t.Fatalf("unmarshal %s: %v", name, err)
			}
		}
		return
	}
}

// readError reads until an error envelope arrives.
func readError(t *testing.T, ctx context.Context, conn *websocket.Conn) *proto.Error {
	t.Helper()

	for {
		var out rawOutbound
		if err := wsjson.Read(ctx, conn, &out); err != nil {
			t.Fatalf("waiting for error: %v", err)
		}
		if out.Type == proto.OutboundTypeError {
			return out.Error
		}
	}
}
