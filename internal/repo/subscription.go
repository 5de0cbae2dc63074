package repo

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/videohub/internal/models"
)

const channelProfileSQL = `
SELECT u.id, u.full_name, u.username, u.email, u.avatar, u.cover_image,
	(SELECT COUNT(*) FROM subscriptions s WHERE s.channel_id = u.id) AS subscriber_count,
	(SELECT COUNT(*) FROM subscriptions s WHERE s.subscriber_id = u.id) AS subscribed_to_count,
	CASE WHEN EXISTS (
		SELECT 1 FROM subscriptions s WHERE s.channel_id = u.id AND s.subscriber_id = ?
	) THEN 1 ELSE 0 END AS is_subscribed
FROM users u
WHERE u.username = ?
LIMIT 1`

type channelProfileRow struct {
	ID                uuid.UUID
	FullName          string
	Username          string
	Email             string
	Avatar            string
	CoverImage        string
	SubscriberCount   int64
	SubscribedToCount int64
	IsSubscribed      int64
}

// ChannelProfile counts both directions of the subscription graph around the
// channel and tests viewer membership in one round trip. Both counts are
// served by the (subscriber_id, channel_id) and channel_id indexes. A nil
// viewer never matches.
func (r *GormRepo) ChannelProfile(ctx context.Context, username string, viewerID uuid.UUID) (*models.ChannelProfile, error) {
	var row channelProfileRow
	res := r.DB.WithContext(ctx).
		Raw(channelProfileSQL, viewerID, NormalizeUsername(username)).
		Scan(&row)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrUserNotFound
	}

	return &models.ChannelProfile{
		ID:                row.ID,
		FullName:          row.FullName,
		Username:          row.Username,
		Email:             row.Email,
		Avatar:            row.Avatar,
		CoverImage:        row.CoverImage,
		SubscriberCount:   row.SubscriberCount,
		SubscribedToCount: row.SubscribedToCount,
		IsSubscribed:      row.IsSubscribed == 1,
	}, nil
}

// Subscribe inserts the edge unless it already exists; created reports
// whether a row was written.
func (r *GormRepo) Subscribe(ctx context.Context, subscriberID, channelID uuid.UUID) (bool, error) {
	sub := models.Subscription{
		ID:           uuid.New(),
		SubscriberID: subscriberID,
		ChannelID:    channelID,
	}
	res := r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "subscriber_id"}, {Name: "channel_id"}},
			DoNothing: true,
		}).
		Create(&sub)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *GormRepo) Unsubscribe(ctx context.Context, subscriberID, channelID uuid.UUID) (bool, error) {
	res := r.DB.WithContext(ctx).
		Where("subscriber_id = ? AND channel_id = ?", subscriberID, channelID).
		Delete(&models.Subscription{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
