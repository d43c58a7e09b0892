package auth

import "aparca/internal/db"

// Roles carried in the token's role claim. Identity itself is managed by an
// external service; this backend only verifies tokens and derives
// capabilities.
const (
	RoleClient = "client"
	RoleOwner  = "owner"
	RoleAdmin  = "admin"
)

// Actor is the authenticated caller, resolved once per request by the
// middleware. Capability checks live here so the state machines never branch
// on roles themselves.
type Actor struct {
	UserID int
	Role   string
}

func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

func (a Actor) CanManageReservation(res *db.Reservation) bool {
	return a.IsAdmin() || a.UserID == res.UserID
}

func (a Actor) CanManagePayment(p *db.Payment) bool {
	return a.IsAdmin() || a.UserID == p.UserID
}

// CanSettleForLot covers owner-side actions such as confirming a cash
// payment for a reservation in one of their lots.
func (a Actor) CanSettleForLot(lot *db.ParkingLot) bool {
	return a.IsAdmin() || (a.Role == RoleOwner && a.UserID == lot.OwnerID)
}

func (a Actor) CanCreateLot() bool {
	return a.Role == RoleOwner || a.IsAdmin()
}
