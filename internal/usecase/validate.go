package usecase

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/pixelfall/pixelfall"
)

// ReorderValidation is the tagged result of the schema check. When Valid
// is false, Status and Message carry the rejection verbatim; when true,
// Orders holds the parsed batch.
type ReorderValidation struct {
	Valid   bool
	Status  int
	Message string
	Orders  []pixelfall.MediaOrder
}

func invalidReorder(status int, message string) ReorderValidation {
	return ReorderValidation{Status: status, Message: message}
}

// IsValidID reports whether s is a well-formed media/album identifier.
func IsValidID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

// ValidateReorderBody is the pure half of the validation gate: it checks
// the decoded request body shape without touching storage. Existence and
// ownership checks run inside the order ledger, still before any write.
func ValidateReorderBody(body any) ReorderValidation {

	obj, ok := body.(map[string]any)
	if !ok {
		return invalidReorder(http.StatusBadRequest, "mediaOrders must be an array")
	}

	raw, ok := obj["mediaOrders"].([]any)
	if !ok {
		return invalidReorder(http.StatusBadRequest, "mediaOrders must be an array")
	}

	if len(raw) == 0 {
		return invalidReorder(http.StatusBadRequest, "mediaOrders array cannot be empty")
	}

	orders := make([]pixelfall.MediaOrder, 0, len(raw))
	for _, entry := range raw {
		item, ok := entry.(map[string]any)
		if !ok {
			return invalidReorder(http.StatusBadRequest, "Each item must have a valid mediaId string")
		}

		mediaID, ok := item["mediaId"].(string)
		if !ok || mediaID == "" {
			return invalidReorder(http.StatusBadRequest, "Each item must have a valid mediaId string")
		}

		if !IsValidID(mediaID) {
			return invalidReorder(http.StatusBadRequest, fmt.Sprintf("Invalid mediaId format: %s", mediaID))
		}

		order, ok := item["order"].(float64)
		if !ok || order < 0 {
			return invalidReorder(http.StatusBadRequest, "Each item must have a valid order number (>= 0)")
		}

		orders = append(orders, pixelfall.MediaOrder{
			MediaID: mediaID,
			Order:   int64(order),
		})
	}

	return ReorderValidation{Valid: true, Status: http.StatusOK, Orders: orders}
}
