package websocket

import (
	"testing"
	"time"
)

func TestCloseStopsRunLoop(t *testing.T) {
	h := NewHub()
	done := make(chan struct{})
	go func() {
		h.Run()
		close(done)
	}()

	h.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Close")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	h := NewHub()
	go h.Run()

	h.Close()
	h.Close()
}

func TestCloseDisconnectsClients(t *testing.T) {
	h := NewHub()
	go h.Run()

	client := &Client{hub: h, send: make(chan []byte, 1)}
	h.register <- client

	h.Close()

	select {
	case _, ok := <-client.send:
		if ok {
			t.Fatal("expected send channel closed, got message")
		}
	case <-time.After(time.Second):
		t.Fatal("client send channel was not closed")
	}
}
