package hydrate

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

type snapshot struct {
	Phase  string `json:"phase"`
	Status string `json:"status"`
	Count  any    `json:"count,omitempty"`
}

func TestDecodeBasicPayload(t *testing.T) {
	decoder := NewDecoder[snapshot]()

	got, err := decoder.Decode(Context{ID: "doc-1"}, map[string]any{
		"phase":  "discovery",
		"status": "discovery_in_progress",
	})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Phase != "discovery" || got.Status != "discovery_in_progress" {
		t.Fatalf("got = %+v", got)
	}
}

func TestDecodeNilPayloadFails(t *testing.T) {
	decoder := NewDecoder[snapshot]()
	_, err := decoder.Decode(Context{ID: "doc-1"}, nil)
	if err == nil || !strings.Contains(err.Error(), `"doc-1"`) {
		t.Fatalf("err = %v, want payload error naming the document", err)
	}
}

func TestDecodePreHooksRunInOrderWithoutMutatingInput(t *testing.T) {
	payload := map[string]any{"phase": "legacy"}

	decoder := NewDecoder[snapshot](
		WithPreHook[snapshot](func(_ Context, p map[string]any) (map[string]any, error) {
			p["phase"] = "discovery"
			return p, nil
		}),
		WithPreHook[snapshot](func(_ Context, p map[string]any) (map[string]any, error) {
			if p["phase"] != "discovery" {
				t.Fatalf("second hook saw %v", p["phase"])
			}
			p["status"] = "discovery_in_progress"
			return p, nil
		}),
	)

	got, err := decoder.Decode(Context{ID: "doc-1"}, payload)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Phase != "discovery" || got.Status != "discovery_in_progress" {
		t.Fatalf("got = %+v", got)
	}
	if payload["phase"] != "legacy" {
		t.Fatal("caller's payload mutated")
	}
}

func TestDecodePreHookErrorNamesDocument(t *testing.T) {
	boom := errors.New("unknown shape")
	decoder := NewDecoder[snapshot](
		WithPreHook[snapshot](func(Context, map[string]any) (map[string]any, error) {
			return nil, boom
		}),
	)

	_, err := decoder.Decode(Context{ID: "doc-9"}, map[string]any{})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if !strings.Contains(err.Error(), `"doc-9"`) {
		t.Fatalf("err = %v, want document id in message", err)
	}
}

func TestDecodePostHookAdjustsResult(t *testing.T) {
	decoder := NewDecoder[snapshot](
		WithPostHook[snapshot](func(_ Context, s *snapshot) error {
			if s.Status == "" {
				s.Status = "discovery_in_progress"
			}
			return nil
		}),
	)

	got, err := decoder.Decode(Context{ID: "doc-1"}, map[string]any{"phase": "discovery"})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Status != "discovery_in_progress" {
		t.Fatalf("got = %+v", got)
	}
}

func TestDecodeUseNumber(t *testing.T) {
	decoder := NewDecoder[snapshot](WithUseNumber[snapshot]())

	got, err := decoder.Decode(Context{ID: "doc-1"}, map[string]any{
		"phase": "discovery",
		"count": 42,
	})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	number, ok := got.Count.(json.Number)
	if !ok {
		t.Fatalf("count = %T, want json.Number", got.Count)
	}
	if n, _ := number.Int64(); n != 42 {
		t.Fatalf("count = %v", number)
	}
}

func TestDecodeDisallowUnknownFields(t *testing.T) {
	decoder := NewDecoder[snapshot](WithDisallowUnknownFields[snapshot]())

	_, err := decoder.Decode(Context{ID: "doc-1"}, map[string]any{
		"phase":   "discovery",
		"mystery": true,
	})
	if err == nil {
		t.Fatal("unknown field accepted")
	}
}

func TestDecodeCustomDecoder(t *testing.T) {
	decoder := NewDecoder[snapshot](
		WithCustomDecoder[snapshot](func(_ Context, payload map[string]any) (snapshot, error) {
			return snapshot{Phase: payload["p"].(string)}, nil
		}),
	)

	got, err := decoder.Decode(Context{ID: "doc-1"}, map[string]any{"p": "development"})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Phase != "development" {
		t.Fatalf("got = %+v", got)
	}
}
