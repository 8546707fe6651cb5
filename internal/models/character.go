package models

// Character modes
const (
	ModeChat     = "chat"
	ModeRoleplay = "roleplay"
)

// Character is a persona the assistant can speak as
type Character struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Icon        string `json:"icon,omitempty"`
	Greeting    string `json:"greeting,omitempty"`
	Personality string `json:"personality,omitempty"`
	Gender      string `json:"gender,omitempty"`
	Mode        string `json:"mode,omitempty"`
}

// EffectiveMode returns the character's mode, treating anything unknown as chat
func (c *Character) EffectiveMode() string {
	if c != nil && c.Mode == ModeRoleplay {
		return ModeRoleplay
	}
	return ModeChat
}
