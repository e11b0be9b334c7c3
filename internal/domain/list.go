package domain

// ListPolicy is the per-list notification configuration.
// MinimumRole gates list operations elsewhere and is carried only as an
// attribute here.
type ListPolicy struct {
	ListID                int64  `json:"list_id"`
	BoardID               int64  `json:"board_id"`
	Name                  string `json:"name"`
	NotifyAssigneesOnMove bool   `json:"notify_assignees_on_move"`
	NotifyLeadersOnMove   bool   `json:"notify_leaders_on_move"`
	MinimumRole           Role   `json:"minimum_role"`
}

// Enabled reports whether moves into the list notify anybody at all.
func (p *ListPolicy) Enabled() bool {
	return p != nil && (p.NotifyAssigneesOnMove || p.NotifyLeadersOnMove)
}

// DisplayName returns the list name or UnknownListName when blank.
func (p *ListPolicy) DisplayName() string {
	if p == nil || p.Name == "" {
		return UnknownListName
	}
	return p.Name
}
