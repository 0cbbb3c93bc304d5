package registry

import (
	"encoding/json"
	"testing"

	"github.com/okanvural/pickflow-backend/pkg/enums"
)

func TestDecoderRegistry(t *testing.T) {
	reg := NewDecoderRegistry()
	reg.Register(enums.EventScanRecorded, 1, func(payload json.RawMessage) (interface{}, error) {
		var decoded map[string]string
		if err := json.Unmarshal(payload, &decoded); err != nil {
			return nil, err
		}
		return decoded, nil
	})

	input := json.RawMessage(`{"item_code":"STK-778"}`)
	output, err := reg.Decode(enums.EventScanRecorded, 1, input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outMap, ok := output.(map[string]string); !ok || outMap["item_code"] != "STK-778" {
		t.Fatalf("unexpected output %+v", output)
	}
}

func TestDecoderRegistryUnknownVersion(t *testing.T) {
	reg := NewDecoderRegistry()
	reg.Register(enums.EventScanRecorded, 1, func(payload json.RawMessage) (interface{}, error) {
		return nil, nil
	})

	if _, err := reg.Decode(enums.EventScanRecorded, 2, json.RawMessage(`{}`)); err == nil {
		t.Fatalf("expected error for unregistered version")
	}
}
