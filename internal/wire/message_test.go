package wire

import "testing"

func TestEncodeDecodeRegister(t *testing.T) {
	data, err := Encode(KindRegister, RegisterPayload{ShardID: "shard-1", Namespace: "https://example.org", LastSequence: 42})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	msg, err := Decode(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.Kind != KindRegister {
		t.Fatalf("expected kind %q, got %q", KindRegister, msg.Kind)
	}

	var payload RegisterPayload
	if err := decodePayload(msg, &payload); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payload.ShardID != "shard-1" || payload.LastSequence != 42 {
		t.Errorf("unexpected payload: %+v", payload)
	}
}

func TestDecodeRejectsMalformed(t *testing.T) {
	if _, err := Decode([]byte("not json")); err == nil {
		t.Error("expected error for malformed message")
	}
}
