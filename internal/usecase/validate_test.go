package usecase

import (
	"encoding/json"
	"net/http"
	"testing"
)

func decode(t *testing.T, raw string) any {
	t.Helper()
	var body any
	if err := json.Unmarshal([]byte(raw), &body); err != nil {
		t.Fatalf("failed to decode fixture: %v", err)
	}
	return body
}

func TestValidateReorderBodyMissingOrders(t *testing.T) {
	result := ValidateReorderBody(decode(t, `{}`))
	if result.Valid {
		t.Fatalf("expected rejection")
	}
	if result.Status != http.StatusBadRequest || result.Message != "mediaOrders must be an array" {
		t.Fatalf("unexpected result: %d %q", result.Status, result.Message)
	}
}

func TestValidateReorderBodyNotArray(t *testing.T) {
	result := ValidateReorderBody(decode(t, `{"mediaOrders": "nope"}`))
	if result.Valid || result.Message != "mediaOrders must be an array" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestValidateReorderBodyEmpty(t *testing.T) {
	result := ValidateReorderBody(decode(t, `{"mediaOrders": []}`))
	if result.Valid || result.Message != "mediaOrders array cannot be empty" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestValidateReorderBodyMissingMediaID(t *testing.T) {
	result := ValidateReorderBody(decode(t, `{"mediaOrders": [{"order": 0}]}`))
	if result.Valid || result.Message != "Each item must have a valid mediaId string" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestValidateReorderBodyNonStringMediaID(t *testing.T) {
	result := ValidateReorderBody(decode(t, `{"mediaOrders": [{"mediaId": 42, "order": 0}]}`))
	if result.Valid || result.Message != "Each item must have a valid mediaId string" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestValidateReorderBodyBadIDFormat(t *testing.T) {
	result := ValidateReorderBody(decode(t, `{"mediaOrders": [{"mediaId": "not-a-uuid", "order": 0}]}`))
	if result.Valid {
		t.Fatalf("expected rejection")
	}
	if result.Message != "Invalid mediaId format: not-a-uuid" {
		t.Fatalf("expected offending id in message, got %q", result.Message)
	}
}

func TestValidateReorderBodyNegativeOrder(t *testing.T) {
	raw := `{"mediaOrders": [{"mediaId": "3e4666bf-d5e5-4aa7-b8ce-cefe41c7568a", "order": -1}]}`
	result := ValidateReorderBody(decode(t, raw))
	if result.Valid || result.Message != "Each item must have a valid order number (>= 0)" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestValidateReorderBodyNonNumberOrder(t *testing.T) {
	raw := `{"mediaOrders": [{"mediaId": "3e4666bf-d5e5-4aa7-b8ce-cefe41c7568a", "order": "first"}]}`
	result := ValidateReorderBody(decode(t, raw))
	if result.Valid || result.Message != "Each item must have a valid order number (>= 0)" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestValidateReorderBodyAccepts(t *testing.T) {
	raw := `{"mediaOrders": [
		{"mediaId": "3e4666bf-d5e5-4aa7-b8ce-cefe41c7568a", "order": 1},
		{"mediaId": "16fd2706-8baf-433b-82eb-8c7fada847da", "order": 0}
	]}`
	result := ValidateReorderBody(decode(t, raw))
	if !result.Valid {
		t.Fatalf("expected acceptance, got %q", result.Message)
	}
	if len(result.Orders) != 2 {
		t.Fatalf("expected 2 parsed orders, got %d", len(result.Orders))
	}
	if result.Orders[0].Order != 1 || result.Orders[1].Order != 0 {
		t.Fatalf("orders parsed wrong: %+v", result.Orders)
	}
}
