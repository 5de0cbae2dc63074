package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/videohub/internal/models"
)

func (r *GormRepo) CreateVideo(ctx context.Context, v *models.Video) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return r.DB.WithContext(ctx).Create(v).Error
}

// AppendWatch records a view at the end of the user's history and bumps the
// video's view counter.
func (r *GormRepo) AppendWatch(ctx context.Context, userID, videoID uuid.UUID) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Video{}).
			Where("id = ?", videoID).
			UpdateColumn("views", gorm.Expr("views + ?", 1))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrVideoNotFound
		}

		return tx.Create(&models.WatchEntry{
			UserID:    userID,
			VideoID:   videoID,
			WatchedAt: time.Now().UTC(),
		}).Error
	})
}

type watchRow struct {
	models.Video
	OwnerFullName string
	OwnerUsername string
	OwnerAvatar   string
}

func (r *GormRepo) WatchHistory(ctx context.Context, userID uuid.UUID) ([]models.WatchedVideo, error) {
	var rows []watchRow
	err := r.DB.WithContext(ctx).
		Table("watch_entries AS w").
		Select(`v.*, o.full_name AS owner_full_name, o.username AS owner_username, o.avatar AS owner_avatar`).
		Joins("JOIN videos v ON v.id = w.video_id").
		Joins("LEFT JOIN users o ON o.id = v.owner_id").
		Where("w.user_id = ?", userID).
		Order("w.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]models.WatchedVideo, 0, len(rows))
	for _, row := range rows {
		out = append(out, models.WatchedVideo{
			Video: row.Video,
			Owner: models.VideoOwner{
				FullName: row.OwnerFullName,
				Username: row.OwnerUsername,
				Avatar:   row.OwnerAvatar,
			},
		})
	}
	return out, nil
}
