package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestInMemoryCache_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	c := NewInMemoryCache()

	if err := c.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	val, err := c.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(val) != "v" {
		t.Errorf("Expected v, got %s", val)
	}

	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := c.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
}

func TestInMemoryCache_Expiry(t *testing.T) {
	ctx := context.Background()
	c := NewInMemoryCache()

	if err := c.Set(ctx, "k", []byte("v"), 5*time.Millisecond); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	time.Sleep(15 * time.Millisecond)

	if _, err := c.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after TTL, got %v", err)
	}
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	c := NewInMemoryCache()

	type profile struct {
		ID     string `json:"id"`
		Points int64  `json:"points"`
	}

	in := profile{ID: "abc", Points: 125}
	if err := SetJSON(ctx, c, "customer:abc", in, time.Minute); err != nil {
		t.Fatalf("SetJSON failed: %v", err)
	}

	var out profile
	if err := GetJSON(ctx, c, "customer:abc", &out); err != nil {
		t.Fatalf("GetJSON failed: %v", err)
	}
	if out != in {
		t.Errorf("Expected %+v, got %+v", in, out)
	}

	if err := GetJSON(ctx, c, "missing", &out); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
