package domain

import "time"

// Profile is owned by the profile CRUD surface; messaging only reads it
type Profile struct {
	ID          string    `gorm:"column:id;primaryKey;size:64" json:"id"`
	DisplayName string    `gorm:"column:display_name;size:100" json:"display_name"`
	AvatarURL   string    `gorm:"column:avatar_url;size:500" json:"avatar_url"`
	Bio         string    `gorm:"column:bio;type:text" json:"bio,omitempty"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Profile) TableName() string { return "profiles" }

// ProfileSummary counterpart/sender fields attached at read time
type ProfileSummary struct {
	ID          string `json:"id,omitempty"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
}

// Summary returns the display subset of the profile
func (p *Profile) Summary() *ProfileSummary {
	if p == nil {
		return nil
	}
	return &ProfileSummary{
		ID:          p.ID,
		DisplayName: p.DisplayName,
		AvatarURL:   p.AvatarURL,
	}
}
