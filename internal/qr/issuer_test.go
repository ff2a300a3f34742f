package qr

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestIssue_TokenShape(t *testing.T) {
	issuedAt := time.Date(2025, 10, 21, 10, 0, 0, 0, time.UTC)
	issuer := NewIssuerWithWindow(ValidityWindow, func() time.Time { return issuedAt })

	token := issuer.Issue("customer-1")

	parts := strings.Split(token.Value, ":")
	if len(parts) != 3 {
		t.Fatalf("Expected 3 token parts, got %d (%s)", len(parts), token.Value)
	}
	if parts[0] != "customer-1" {
		t.Errorf("Expected customer id prefix, got %s", parts[0])
	}

	millis, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		t.Fatalf("Expected millis timestamp, got %s", parts[1])
	}
	if millis != issuedAt.UnixMilli() {
		t.Errorf("Expected %d, got %d", issuedAt.UnixMilli(), millis)
	}

	if len(parts[2]) != 16 {
		t.Errorf("Expected 16-char random suffix, got %q", parts[2])
	}

	if !token.ExpiresAt.Equal(issuedAt.Add(ValidityWindow)) {
		t.Errorf("Expected expiry %v, got %v", issuedAt.Add(ValidityWindow), token.ExpiresAt)
	}
}

func TestIssue_TokensAreUnique(t *testing.T) {
	issuer := NewIssuer()

	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		token := issuer.Issue("customer-1")
		if seen[token.Value] {
			t.Fatalf("Duplicate token issued: %s", token.Value)
		}
		seen[token.Value] = true
	}
}

func TestAutoRefresh_ReissuesEachWindow(t *testing.T) {
	issuer := NewIssuerWithWindow(10*time.Millisecond, nil)

	var mu sync.Mutex
	var tokens []Token

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		issuer.AutoRefresh(ctx, "customer-1", func(tok Token) {
			mu.Lock()
			tokens = append(tokens, tok)
			mu.Unlock()
		})
		close(done)
	}()

	time.Sleep(60 * time.Millisecond)
	cancel()
	<-done

	mu.Lock()
	defer mu.Unlock()

	if len(tokens) < 3 {
		t.Fatalf("Expected at least 3 issued tokens, got %d", len(tokens))
	}
	for i := 1; i < len(tokens); i++ {
		if tokens[i].Value == tokens[i-1].Value {
			t.Error("Auto-refresh reissued the same token")
		}
	}
}

func TestPayload_FromToken(t *testing.T) {
	issuer := NewIssuer()
	token := issuer.Issue("customer-1")

	p := issuer.Payload("customer-1", "Ana", token)
	if !p.Complete() {
		t.Fatal("Expected complete payload from issued token")
	}
	if p.Token != token.Value || p.DisplayName != "Ana" {
		t.Errorf("Unexpected payload: %+v", p)
	}
}

func TestRenderPNG(t *testing.T) {
	issuer := NewIssuer()
	token := issuer.Issue("customer-1")

	encoded, err := Encode(issuer.Payload("customer-1", "Ana", token))
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	png, err := RenderPNG(encoded, 0)
	if err != nil {
		t.Fatalf("RenderPNG failed: %v", err)
	}
	if len(png) == 0 {
		t.Error("Expected non-empty PNG data")
	}
	// PNG signature
	if len(png) < 8 || png[1] != 'P' || png[2] != 'N' || png[3] != 'G' {
		t.Error("Expected PNG signature in rendered image")
	}
}
