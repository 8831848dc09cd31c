package websocket

import (
	"testing"
	"time"
)

func TestManualTickerDeliversInjectedTime(t *testing.T) {
	mt := newManualTicker()
	at := time.Now()
	mt.Tick(at)

	select {
	case got := <-mt.C():
		if !got.Equal(at) {
			t.Errorf("got %v, want %v", got, at)
		}
	case <-time.After(time.Second):
		t.Fatal("Tick did not deliver")
	}
}

func TestRealTickerFires(t *testing.T) {
	rt := newRealTicker(5 * time.Millisecond)
	defer rt.Stop()

	select {
	case <-rt.C():
	case <-time.After(time.Second):
		t.Fatal("real ticker never fired")
	}
}
