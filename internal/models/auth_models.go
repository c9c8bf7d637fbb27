package models

import "time"

// Role is the authorization role carried in access tokens.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleChemist Role = "chemist"
	RoleDrugist Role = "drugist"
)

// IsValidRole reports whether r is one of the known roles.
func IsValidRole(r string) bool {
	switch Role(r) {
	case RoleAdmin, RoleChemist, RoleDrugist:
		return true
	default:
		return false
	}
}

// User represents an account. Chemists and drugists are tenants; their shop data
// (inventory, customers, bills) is scoped by their id. OwnerID links staff
// accounts to the tenant they work for.
type User struct {
	ID           int64     `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	Name         string    `json:"name" db:"name"`
	Role         Role      `json:"role" db:"role"`
	PasswordHash string    `json:"-" db:"password_hash"`
	ShopName     *string   `json:"shopName,omitempty" db:"shop_name"`
	ShopAddress  *string   `json:"shopAddress,omitempty" db:"shop_address"`
	Phone        *string   `json:"phone,omitempty" db:"phone"`
	OwnerID      *int64    `json:"ownerId,omitempty" db:"owner_id"`
	IsActive     bool      `json:"isActive" db:"is_active"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

// UserWithSubscription is the admin listing row.
type UserWithSubscription struct {
	User
	Subscription *UserSubscription `json:"subscription,omitempty"`
}
