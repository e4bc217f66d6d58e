package domain

import "time"

// Identity is the authenticated user as seen by the core.
type Identity struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Role      string `json:"role,omitempty"`
	FullName  string `json:"fullName,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// Profile mirrors the identity provider's user record locally.
type Profile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  *string   `json:"fullName,omitempty"`
	AvatarURL *string   `json:"avatarUrl,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Dashboard is the post-purchase read model for one user.
type Dashboard struct {
	Keys            []*PixKey `json:"keys"`
	Orders          []*Order  `json:"orders"`
	ActiveKeys      int       `json:"activeKeys"`
	AvailableKeys   int       `json:"availableKeys"`
	CompletedOrders int       `json:"completedOrders"`
	KeyDomain       string    `json:"keyDomain"`
}

// AdminStats summarizes the store for operators.
type AdminStats struct {
	Profiles        int `json:"profiles"`
	Keys            int `json:"keys"`
	PendingOrders   int `json:"pendingOrders"`
	CompletedOrders int `json:"completedOrders"`
	FailedOrders    int `json:"failedOrders"`
	Revenue         int `json:"revenue"`
}
