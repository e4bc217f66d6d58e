package domain

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
)

// KeyDomain is appended to every local handle.
const KeyDomain = "chavepix.club"

// MaxHandleLength bounds the local part of a key.
const MaxHandleLength = 64

// KeyStatus is the provisioning state of a PixKey.
type KeyStatus string

const (
	KeyActive   KeyStatus = "active"
	KeyInactive KeyStatus = "inactive"
	KeyPending  KeyStatus = "pending"
)

// Valid reports whether s is a known key status.
func (s KeyStatus) Valid() bool {
	switch s {
	case KeyActive, KeyInactive, KeyPending:
		return true
	}
	return false
}

// PixKey is a personalized payment alias owned by one user.
type PixKey struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	LocalHandle string    `json:"localHandle"`
	Email       string    `json:"email"`
	Status      KeyStatus `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// FullKey composes the alias for a local handle.
func FullKey(handle string) string {
	return handle + "@" + KeyDomain
}

// NormalizeHandle trims surrounding whitespace and lowercases the handle.
func NormalizeHandle(handle string) string {
	return strings.ToLower(strings.TrimSpace(handle))
}

// ValidateHandle checks a local handle before anything is written.
func ValidateHandle(handle string) error {
	if handle == "" {
		return ErrValidation("key handle is required")
	}
	if strings.Contains(handle, "@") {
		return ErrValidation("key handle must not contain '@'")
	}
	if strings.IndexFunc(handle, unicode.IsSpace) >= 0 {
		return ErrValidation("key handle must not contain whitespace")
	}
	if utf8.RuneCountInString(handle) > MaxHandleLength {
		return ErrValidation("key handle is too long")
	}
	return nil
}

// NewPixKey builds an active key for the handle.
func NewPixKey(userID, handle string, now time.Time) *PixKey {
	return &PixKey{
		ID:          uuid.New().String(),
		UserID:      userID,
		LocalHandle: handle,
		Email:       FullKey(handle),
		Status:      KeyActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// CreateKeyRequest is the body of POST /api/keys.
type CreateKeyRequest struct {
	LocalHandle string `json:"localHandle" validate:"required,max=64"`
}

// UpdateKeyStatusRequest is the body of PATCH /api/admin/keys/{id}.
type UpdateKeyStatusRequest struct {
	Status KeyStatus `json:"status" validate:"required,oneof=active inactive pending"`
}
