package models

import (
	"time"

	"github.com/google/uuid"
)

// User never serializes Password or RefreshToken.
type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"  json:"id"`
	Username     string    `gorm:"uniqueIndex;not null"  json:"username"`
	Email        string    `gorm:"uniqueIndex;not null"  json:"email"`
	FullName     string    `gorm:"uniqueIndex;not null"  json:"fullName"`
	Avatar       string    `gorm:"not null"              json:"avatar"`
	CoverImage   string    `                             json:"coverImage"`
	Password     string    `gorm:"not null"              json:"-"`
	RefreshToken *string   `                             json:"-"`
	CreatedAt    time.Time `                             json:"createdAt"`
	UpdatedAt    time.Time `                             json:"updatedAt"`
}

// Subscription is a directed edge: Subscriber follows Channel.
type Subscription struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"                                   json:"id"`
	SubscriberID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_subscription_pair,priority:1" json:"subscriber"`
	ChannelID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_subscription_pair,priority:2;index:idx_subscriptions_channel" json:"channel"`
	CreatedAt    time.Time `                                                              json:"createdAt"`
	UpdatedAt    time.Time `                                                              json:"updatedAt"`
}

type Video struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"  json:"id"`
	VideoFile   string    `gorm:"not null"              json:"videoFile"`
	Thumbnail   string    `gorm:"not null"              json:"thumbnail"`
	Title       string    `gorm:"not null"              json:"title"`
	Description string    `gorm:"not null"              json:"description"`
	Duration    float64   `gorm:"not null"              json:"duration"`
	Views       int64     `gorm:"not null;default:0"    json:"views"`
	IsPublished bool      `gorm:"not null;default:true" json:"isPublished"`
	OwnerID     uuid.UUID `gorm:"type:uuid;index"       json:"owner"`
	CreatedAt   time.Time `                             json:"createdAt"`
	UpdatedAt   time.Time `                             json:"updatedAt"`
}

// WatchEntry is one position in a user's watch history; ID order is watch order.
type WatchEntry struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	UserID    uuid.UUID `gorm:"type:uuid;index;not null"`
	VideoID   uuid.UUID `gorm:"type:uuid;not null"`
	WatchedAt time.Time `gorm:"not null"`
}

// ChannelProfile is the aggregate served for GET /channels/:username.
type ChannelProfile struct {
	ID                uuid.UUID `json:"id"`
	FullName          string    `json:"fullName"`
	Username          string    `json:"username"`
	Email             string    `json:"email"`
	Avatar            string    `json:"avatar"`
	CoverImage        string    `json:"coverImage"`
	SubscriberCount   int64     `json:"subscribersCount"`
	SubscribedToCount int64     `json:"channelsSubscribedToCount"`
	IsSubscribed      bool      `json:"isSubscribed"`
}

type VideoOwner struct {
	FullName string `json:"fullName"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

type WatchedVideo struct {
	Video
	Owner VideoOwner `json:"owner"`
}

// AllModels is the AutoMigrate set.
func AllModels() []any {
	return []any{&User{}, &Subscription{}, &Video{}, &WatchEntry{}}
}
