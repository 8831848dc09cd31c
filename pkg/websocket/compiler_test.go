package websocket

import (
	"testing"
)

func TestCompileRoundTripsThroughParser(t *testing.T) {
	c := NewCompiler(RoleServer) // masks nothing outbound; RoleClient parser expects unmasked
	frame, err := c.Compile(OpcodeText, []byte("round trip"), true)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	events := collectEvents(DefaultConfig(), [][]byte{frame})
	if len(events) != 1 || events[0].Kind != EventData {
		t.Fatalf("got %+v", events)
	}
	if string(events[0].Payload) != "round trip" {
		t.Errorf("payload = %q", events[0].Payload)
	}
}

func TestCompileMasksForRoleClient(t *testing.T) {
	c := NewCompiler(RoleClient)
	frame, err := c.Compile(OpcodeText, []byte("masked"), true)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if frame[1]&0x80 == 0 {
		t.Error("RoleClient frames must set the mask bit")
	}

	events := collectEvents(NewConfig(WithRole(RoleServer)), [][]byte{frame})
	if len(events) != 1 || events[0].Kind != EventData || string(events[0].Payload) != "masked" {
		t.Fatalf("round trip through RoleServer parser failed: %+v", events)
	}
}

func TestFragmentSplitsAcrossMultipleFrames(t *testing.T) {
	c := NewCompiler(RoleServer)
	payload := make([]byte, 25)
	for i := range payload {
		payload[i] = byte('a' + i%26)
	}

	frames, err := c.Fragment(OpcodeBinary, payload, 10)
	if err != nil {
		t.Fatalf("Fragment: %v", err)
	}
	if len(frames) != 3 {
		t.Fatalf("got %d frames, want 3", len(frames))
	}

	events := collectEvents(DefaultConfig(), frames)
	var reassembled []byte
	for i, e := range events {
		if e.Kind != EventData {
			t.Fatalf("event %d = %+v", i, e)
		}
		reassembled = append(reassembled, e.Payload...)
	}
	if !events[len(events)-1].Fin {
		t.Error("last event should be Fin")
	}
	if string(reassembled) != string(payload) {
		t.Errorf("reassembled = %q, want %q", reassembled, payload)
	}
}

func TestFragmentEmptyPayloadYieldsOneFrame(t *testing.T) {
	c := NewCompiler(RoleServer)
	frames, err := c.Fragment(OpcodeText, nil, 10)
	if err != nil {
		t.Fatalf("Fragment: %v", err)
	}
	if len(frames) != 1 {
		t.Fatalf("got %d frames, want 1", len(frames))
	}

	events := collectEvents(DefaultConfig(), frames)
	if len(events) != 1 || !events[0].Fin || len(events[0].Payload) != 0 {
		t.Fatalf("got %+v", events)
	}
}

func TestCompileControlFrameIsFinAlways(t *testing.T) {
	c := NewCompiler(RoleServer)
	frame, err := c.CompileControl(OpcodePing, []byte("ping"))
	if err != nil {
		t.Fatalf("CompileControl: %v", err)
	}
	if frame[0]&0x80 == 0 {
		t.Error("control frames must always be Fin")
	}

	events := collectEvents(DefaultConfig(), [][]byte{frame})
	if len(events) != 1 || events[0].Kind != EventControl || events[0].Opcode != OpcodePing {
		t.Fatalf("got %+v", events)
	}
}

func TestSetTransformAppliesToOutboundPayload(t *testing.T) {
	c := NewCompiler(RoleServer)
	c.SetTransform(func(_ Opcode, payload []byte) ([]byte, error) {
		out := make([]byte, len(payload))
		for i, b := range payload {
			out[i] = b + 1
		}
		return out, nil
	})

	frame, err := c.Compile(OpcodeBinary, []byte{1, 2, 3}, true)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	events := collectEvents(DefaultConfig(), [][]byte{frame})
	if len(events) != 1 {
		t.Fatalf("got %+v", events)
	}
	want := []byte{2, 3, 4}
	for i, b := range want {
		if events[0].Payload[i] != b {
			t.Errorf("payload[%d] = %d, want %d", i, events[0].Payload[i], b)
		}
	}
}
