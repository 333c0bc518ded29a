package model

import "time"

// Role values for User.Role.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents a registered lottery participant or administrator.
type User struct {
	ID           uint   `json:"id" gorm:"primaryKey"`
	Email        string `json:"email" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash string `json:"-" gorm:"size:255;not null"` // Never expose in JSON
	Firstname    string `json:"firstname" gorm:"size:100;not null"`
	Lastname     string `json:"lastname" gorm:"size:100;not null"`
	Phone        string `json:"phone" gorm:"size:100;not null"`
	DateOfBirth  string `json:"date_of_birth" gorm:"size:100;not null"`
	Postcode     string `json:"postcode" gorm:"size:100;not null"`
	Role         string `json:"role" gorm:"size:50;not null;default:'user'"`

	// TOTPSecret is the base32 second-factor secret, fixed at registration.
	TOTPSecret string `json:"-" gorm:"size:64;not null"`
	// EncryptionKey is the per-user AES-256 key protecting draw numbers at rest.
	// It is created atomically with the row and never rotated; losing it makes
	// the user's draws permanently undecryptable.
	EncryptionKey []byte `json:"-" gorm:"type:varbinary(32);not null"`

	// Login telemetry, written only on successful authentication.
	CurrentLogin *time.Time `json:"current_login,omitempty"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	CurrentIP    string     `json:"current_ip,omitempty" gorm:"size:100"`
	LastIP       string     `json:"last_ip,omitempty" gorm:"size:100"`
	TotalLogins  int        `json:"total_logins" gorm:"not null;default:0"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
