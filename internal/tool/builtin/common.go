package builtin

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	fbErrors "github.com/harunnryd/foodiebot/internal/errors"
	"github.com/harunnryd/foodiebot/internal/store"
	toolcore "github.com/harunnryd/foodiebot/internal/tool"
)

const (
	msgRestaurantNotFound = "Restoran tidak ditemukan"
	msgStoreUnavailable   = "Database restoran belum tersedia"
)

func userIDProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "ID user (diisi otomatis oleh sistem)",
	}
}

func restaurantIDProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "integer",
		"description": "ID restoran",
	}
}

func builtinMetadata(risk toolcore.RiskLevel, writes bool, capabilities ...string) toolcore.ToolMetadata {
	return toolcore.ToolMetadata{
		Source:       "builtin",
		Capabilities: capabilities,
		Risk:         risk,
		Writes:       writes,
	}
}

func decodeArgs(input json.RawMessage, dst interface{}) error {
	if len(input) == 0 {
		return nil
	}
	if err := json.Unmarshal(input, dst); err != nil {
		return fbErrors.InvalidModelOutput(fmt.Sprintf("invalid arguments: %v", err))
	}
	return nil
}

func requireStore(db *store.DB) error {
	if db == nil {
		return toolcore.Fail(msgStoreUnavailable, fbErrors.ErrInternal)
	}
	return nil
}

func requireUser(userID string) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", toolcore.Fail("User tidak dikenali", fbErrors.ErrInvalidInput)
	}
	return userID, nil
}

// storeFailure turns expected store outcomes into model-facing messages and
// passes anything else through.
func storeFailure(err error, notFound string) error {
	switch {
	case errors.Is(err, fbErrors.ErrNotFound):
		return toolcore.Fail(notFound, fbErrors.ErrNotFound)
	case errors.Is(err, fbErrors.ErrInvalidInput):
		return toolcore.Fail(strings.TrimSuffix(err.Error(), ": "+fbErrors.ErrInvalidInput.Error()), fbErrors.ErrInvalidInput)
	default:
		return err
	}
}
