package conversation

import "time"

// Role identifies who authored an entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ParseRole maps a backend role onto the two roles the widget renders.
// Anything that is not "user" is shown as an assistant bubble.
func ParseRole(raw string) Role {
	if Role(raw) == RoleUser {
		return RoleUser
	}
	return RoleAssistant
}

// Delivery tracks whether the backend has acknowledged a user entry.
type Delivery string

const (
	DeliveryPending   Delivery = "pending"
	DeliveryConfirmed Delivery = "confirmed"
	DeliveryFailed    Delivery = "failed"
)

// Entry is one turn of the displayed conversation.
type Entry struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Delivery  Delivery  `json:"delivery"`
	Persona   string    `json:"persona,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
