package models

import "time"

// User is a member of the social network.
type User struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	Username      string     `gorm:"size:64;uniqueIndex;not null" json:"username"`
	DisplayName   string     `gorm:"size:128" json:"display_name"`
	Bio           string     `gorm:"type:text" json:"bio"`
	ProfilePicURL string     `gorm:"size:512" json:"profile_pic_url"`
	LastSeenAt    *time.Time `json:"last_seen_at"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// FriendStatus tracks the lifecycle of a friend request.
type FriendStatus string

const (
	FriendStatusPending  FriendStatus = "PENDING"
	FriendStatusAccepted FriendStatus = "ACCEPTED"
	FriendStatusRejected FriendStatus = "REJECTED"
)

// Friend is a friend request between two users. Once accepted it represents the
// friendship itself.
type Friend struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	RequesterID uint         `gorm:"index;not null" json:"requester_id"`
	AddresseeID uint         `gorm:"index;not null" json:"addressee_id"`
	Status      FriendStatus `gorm:"size:16;not null;default:PENDING" json:"status"`
	Requester   *User        `gorm:"foreignKey:RequesterID" json:"requester,omitempty"`
	Addressee   *User        `gorm:"foreignKey:AddresseeID" json:"addressee,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// Other returns the id of the participant that is not userID.
func (f Friend) Other(userID uint) uint {
	if f.RequesterID == userID {
		return f.AddresseeID
	}
	return f.RequesterID
}
