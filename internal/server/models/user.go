package models

import "time"

// User is a row of the users table. PINFL, INN and CertificateSerial are
// nullable; once an identity key is set it is never changed.
type User struct {
	ID                string
	Name              string
	Email             string
	Password          string
	EmailVerifiedAt   *time.Time
	PINFL             *string
	INN               *string
	CertificateSerial *string
	LastLoginAt       *time.Time
	LastLoginIP       *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
