package models

import "time"

type Account struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name" validate:"required"`
	Institution string    `json:"institution" db:"institution"`
	LegacyID    *string   `json:"legacy_id,omitempty" db:"legacy_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

type User struct {
	ID              string    `json:"id" db:"id"`
	Username        string    `json:"username" db:"username" validate:"required"`
	Email           string    `json:"email" db:"email"`
	VenmoHandle     string    `json:"venmo_handle" db:"venmo_handle"`
	SplitwiseHandle string    `json:"splitwise_handle" db:"splitwise_handle"`
	LegacyID        *string   `json:"legacy_id,omitempty" db:"legacy_id"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}
