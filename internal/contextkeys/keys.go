package contextkeys

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey string

const (
	// Identity is the context key for the authenticated *domain.Identity.
	Identity contextKey = "identity"
	// UserID is the context key for the authenticated user's ID.
	UserID contextKey = "userID"
)
