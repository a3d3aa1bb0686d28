package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/coinchat-server/internal/proto"
)

type authResponse struct {
	Token string     `json:"token"`
	User  proto.User `json:"user"`
	Coins int64      `json:"coins"`
}

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	base := flag.String("base", "http://localhost:8080", "server base URL")
	user := flag.String("user", "tester", "username to log in (registered when missing)")
	password := flag.String("password", "tester-password", "password")
	text := flag.String("text", "hello from smoke test", "lobby message to send")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	auth, err := login(ctx, *base, *user, *password)
	if err != nil {
		return err
	}
	fmt.Printf("Logged in: id=%d user=%s coins=%d\n", auth.User.ID, auth.User.Username, auth.Coins)

	wsURL := strings.Replace(*base, "http", "ws", 1) + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	mustSend := func(typ string, data any) error {
		payload, marshalErr := json.Marshal(data)
		if marshalErr != nil {
			return fmt.Errorf("marshal %s: %w", typ, marshalErr)
		}
		if err := wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Data: payload}); err != nil {
			return fmt.Errorf("send %s: %w", typ, err)
		}
		return nil
	}

	if err := mustSend(proto.InboundTypeAuthenticate, proto.AuthenticateData{Token: auth.Token, Protocol: proto.ProtocolVersion}); err != nil {
		return err
	}

	for {
		var outbound struct {
			Type  string          `json:"type"`
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data"`
			Error *proto.Error    `json:"error"`
		}
		if err := wsjson.Read(ctx, conn, &outbound); err != nil {
			return fmt.Errorf("read: %w", err)
		}

		if outbound.Type == proto.OutboundTypeError && outbound.Error != nil {
			return fmt.Errorf("server error: %s: %s", outbound.Error.Code, outbound.Error.Msg)
		}
		fmt.Printf("Received outbound: type=%s event=%s\n", outbound.Type, outbound.Event)

		switch outbound.Event {
		case proto.EventAuthenticated:
			var evt proto.EventAuthenticatedData
			if err := json.Unmarshal(outbound.Data, &evt); err == nil {
				fmt.Printf("Authenticated: online=%v unlocked=%v degraded=%t\n", evt.Online, evt.Unlocked, evt.Degraded)
			}
			if err := mustSend(proto.InboundTypeSendMessage, proto.SendMessageData{Room: "lobby", Body: *text}); err != nil {
				return err
			}
		case proto.EventNewMessage:
			var evt proto.EventMessage
			if err := json.Unmarshal(outbound.Data, &evt); err != nil {
				return fmt.Errorf("unmarshal message: %w", err)
			}
			fmt.Printf("Message: id=%d from=%s body=%q at=%s\n", evt.ID, evt.SenderUsername, evt.Body, evt.CreatedAt)
			if evt.SenderID == auth.User.ID {
				return nil
			}
		case proto.EventStatus:
			var evt proto.StatusData
			if err := json.Unmarshal(outbound.Data, &evt); err == nil {
				fmt.Printf("Status: user=%d %s\n", evt.UserID, evt.Status)
			}
		}
	}
}

// login tries /api/login and falls back to /api/register for a fresh account.
func login(ctx context.Context, base, user, password string) (*authResponse, error) {
	out, status, err := postCredentials(ctx, base+"/api/login", user, password)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized {
		out, status, err = postCredentials(ctx, base+"/api/register", user, password)
		if err != nil {
			return nil, err
		}
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return nil, fmt.Errorf("authenticate %s: status %d", user, status)
	}
	return out, nil
}

func postCredentials(ctx context.Context, url, user, password string) (*authResponse, int, error) {
	body, _ := json.Marshal(map[string]string{"username": user, "password": password})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("post %s: %w", url, err)
	}
	defer resp.Body.Close()

	var out authResponse
	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated {
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return nil, resp.StatusCode, fmt.Errorf("decode %s: %w", url, err)
		}
	}
	return &out, resp.StatusCode, nil
}
