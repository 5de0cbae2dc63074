package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/Skotchmaster/videohub/internal/apperr"
	"github.com/Skotchmaster/videohub/internal/models"
	"github.com/Skotchmaster/videohub/internal/repo"
	"github.com/Skotchmaster/videohub/pkg/logging"
)

type HistoryService struct {
	Repo *repo.GormRepo
}

func (s *HistoryService) WatchHistory(ctx context.Context, userID uuid.UUID) ([]models.WatchedVideo, error) {
	videos, err := s.Repo.WatchHistory(ctx, userID)
	if err != nil {
		logging.FromContext(ctx).Error("watch_history_failed", "svc", "history.list", "status", 500, "error", err)
		return nil, apperr.Internal("Something went wrong while fetching watch history", err)
	}
	if videos == nil {
		videos = []models.WatchedVideo{}
	}
	return videos, nil
}

// RecordWatch appends the video to the user's history and bumps its views.
func (s *HistoryService) RecordWatch(ctx context.Context, userID, videoID uuid.UUID) error {
	if err := s.Repo.AppendWatch(ctx, userID, videoID); err != nil {
		if errors.Is(err, repo.ErrVideoNotFound) {
			return apperr.NotFound("Video does not exist")
		}
		logging.FromContext(ctx).Error("record_watch_failed", "svc", "history.record", "status", 500, "error", err)
		return apperr.Internal("Something went wrong while recording the watch", err)
	}
	return nil
}
