package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

func TestConnectPingsServer(t *testing.T) {
	server := miniredis.RunT(t)
	client, err := Connect(context.Background(), server.Addr(), "", 0)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer client.Close()

	if err := client.Client.Set(context.Background(), "k", "v", 0).Err(); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got, _ := server.Get("k"); got != "v" {
		t.Fatalf("expected value stored on server, got %q", got)
	}
}

func TestConnectFailsWhenServerIsDown(t *testing.T) {
	server := miniredis.RunT(t)
	addr := server.Addr()
	server.Close()

	if _, err := Connect(context.Background(), addr, "", 0); err == nil {
		t.Fatalf("expected ping failure")
	}
}

func TestConnectRequiresAddr(t *testing.T) {
	if _, err := Connect(context.Background(), "", "", 0); err == nil {
		t.Fatalf("expected missing addr error")
	}
}
