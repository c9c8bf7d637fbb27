package models

import "time"

// Customer is a patient or buyer on the tenant's books.
type Customer struct {
	ID        int64     `json:"id" db:"id"`
	OwnerID   int64     `json:"ownerId" db:"owner_id"`
	Name      string    `json:"name" db:"name"`
	Phone     *string   `json:"phone,omitempty" db:"phone"`
	Email     *string   `json:"email,omitempty" db:"email"`
	Address   *string   `json:"address,omitempty" db:"address"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// Agency is a supplier the tenant buys stock from.
type Agency struct {
	ID            int64     `json:"id" db:"id"`
	OwnerID       int64     `json:"ownerId" db:"owner_id"`
	Name          string    `json:"name" db:"name"`
	ContactPerson *string   `json:"contactPerson,omitempty" db:"contact_person"`
	Phone         *string   `json:"phone,omitempty" db:"phone"`
	Email         *string   `json:"email,omitempty" db:"email"`
	Address       *string   `json:"address,omitempty" db:"address"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time `json:"updatedAt" db:"updated_at"`
}
