package auth

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Caller identifies the authenticated principal behind a request.
type Caller struct {
	UserID uuid.UUID
	Role   enums.Role
}

func (c Caller) IsAdmin() bool {
	return c.Role == enums.RoleAdmin
}

// CanAccess reports whether the caller may act on a resource owned by ownerID.
func (c Caller) CanAccess(ownerID uuid.UUID) bool {
	return c.IsAdmin() || (c.UserID != uuid.Nil && c.UserID == ownerID)
}
