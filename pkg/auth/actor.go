package auth

import (
	"github.com/google/uuid"

	"github.com/eventhub/eventhub-backend/pkg/enums"
)

// Actor is the authenticated caller as seen by the booking services.
type Actor struct {
	UserID   uuid.UUID
	VendorID *uuid.UUID
	Role     enums.ActorRole
}

// ActorFromClaims builds an Actor from verified token claims.
func ActorFromClaims(claims *AccessTokenClaims) Actor {
	if claims == nil {
		return Actor{}
	}
	return Actor{UserID: claims.UserID, VendorID: claims.VendorID, Role: claims.Role}
}

func (a Actor) IsAdmin() bool {
	return a.Role == enums.ActorRoleAdmin
}

// IsVendor reports whether the actor acts for vendorID.
func (a Actor) IsVendor(vendorID uuid.UUID) bool {
	return a.VendorID != nil && *a.VendorID == vendorID
}

// IsParty reports whether the actor may see a record between the customer
// userID and the vendor vendorID.
func (a Actor) IsParty(userID, vendorID uuid.UUID) bool {
	if a.IsAdmin() {
		return true
	}
	if a.UserID != uuid.Nil && a.UserID == userID {
		return true
	}
	return a.IsVendor(vendorID)
}
