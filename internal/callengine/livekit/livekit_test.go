package livekit

import (
	"context"
	"testing"

	"github.com/livekit/protocol/auth"
)

func TestGenerateJoinInfo(t *testing.T) {
	engine := New("devkey", "devsecret-devsecret-devsecret-00", "ws://localhost:7880")

	info, err := engine.GenerateJoinInfo(context.Background(), "Lounge", 7, "dora")
	if err != nil {
		t.Fatalf("generate join info: %v", err)
	}
	if info.RoomName != "coinchat-voice-lounge" || info.Identity != "user-7" {
		t.Fatalf("unexpected join info: %+v", info)
	}

	verifier, err := auth.ParseAPIToken(info.Token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if verifier.Identity() != "user-7" {
		t.Fatalf("unexpected token identity %q", verifier.Identity())
	}
	if verifier.APIKey() != "devkey" {
		t.Fatalf("unexpected api key %q", verifier.APIKey())
	}
}

func TestGenerateJoinInfoRejectsEmptyRoom(t *testing.T) {
	engine := New("k", "s", "ws://x")
	if _, err := engine.GenerateJoinInfo(context.Background(), "  ", 1, "a"); err == nil {
		t.Fatalf("expected error for empty room")
	}
}
