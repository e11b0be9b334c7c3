package digest

import (
	"encoding/json"
	"fmt"

	"github.com/kanflow/movedigest/internal/domain"
)

// Subject names the card and destination for a single movement and states
// the count otherwise.
func Subject(movements []domain.Movement) string {
	if len(movements) == 1 {
		m := movements[0]
		return fmt.Sprintf("Card \"%s\" moved to %s", m.CardTitle, m.ToListName)
	}
	return fmt.Sprintf("%d cards moved", len(movements))
}

// Preview is the inbox preview line shown by most mail clients.
func Preview(count int) string {
	if count == 1 {
		return "1 card was moved"
	}
	return fmt.Sprintf("%d cards were moved", count)
}

// TemplateData serialises the movements into the key/value map handed to
// the email capability for the CARD_MOVE_DIGEST template.
func TemplateData(movements []domain.Movement) (map[string]string, error) {
	raw, err := json.Marshal(movements)
	if err != nil {
		return nil, fmt.Errorf("marshal movements: %w", err)
	}
	return map[string]string{"movements": string(raw)}, nil
}

// ParseTemplateData is the inverse of TemplateData.
func ParseTemplateData(data map[string]string) ([]domain.Movement, error) {
	raw, ok := data["movements"]
	if !ok {
		return nil, fmt.Errorf("template data has no movements")
	}
	var movements []domain.Movement
	if err := json.Unmarshal([]byte(raw), &movements); err != nil {
		return nil, fmt.Errorf("unmarshal movements: %w", err)
	}
	return movements, nil
}
