package entities

import (
	"github.com/google/uuid"
)

// User rows are issued by the auth service; scans only reference them.
type User struct {
	ID    uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Name  string    `json:"name"`
	Email string    `gorm:"uniqueIndex" json:"email"`

	Scans []*Scan `gorm:"foreignKey:UserID"`
	Timestamp
}
