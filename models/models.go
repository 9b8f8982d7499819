package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// A User created by OAuth login carries Provider and ProviderID. Users
// created from the CLI have neither.
type User struct {
	ID         string `gorm:"primaryKey;size:36"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Username   string  `gorm:"size:255;not null;uniqueIndex"`
	Name       *string `gorm:"size:255"`
	Email      *string `gorm:"size:255"`
	Provider   *string `gorm:"size:64;uniqueIndex:idx_users_identity"`
	ProviderID *string `gorm:"size:255;uniqueIndex:idx_users_identity"`
	Image      *Image  `json:"image,omitempty" gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;"`
	Notes      []Note  `json:"notes,omitempty" gorm:"foreignKey:OwnerID"`
}

// DisplayName falls back to the username when no name was set.
func (u *User) DisplayName() string {
	if u.Name != nil && *u.Name != "" {
		return *u.Name
	}
	return u.Username
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

type Note struct {
	ID        string `gorm:"primaryKey;size:36"`
	CreatedAt time.Time
	UpdatedAt time.Time
	Title     string `gorm:"size:100;not null"`
	Content   string `gorm:"type:text;not null"`
	OwnerID   string `gorm:"size:36;not null;index"`
	Owner     *User  `json:"owner,omitempty" gorm:"foreignKey:OwnerID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Image     *Image `json:"image,omitempty" gorm:"foreignKey:NoteID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;"`
}

func (n *Note) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	return nil
}

// Image is attached to at most one user (profile) and at most one note.
// Blob is kept for rows written before images moved to the media host;
// URL is what gets rendered.
type Image struct {
	ID          string `gorm:"primaryKey;size:36"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ContentType string  `gorm:"size:255"`
	Blob        []byte  `json:"-"`
	URL         string  `gorm:"size:2048"`
	UserID      *string `gorm:"size:36;uniqueIndex"`
	NoteID      *string `gorm:"size:36;uniqueIndex"`
}

func (i *Image) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}
