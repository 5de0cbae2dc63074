package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/videohub/internal/apperr"
	"github.com/Skotchmaster/videohub/internal/events"
	"github.com/Skotchmaster/videohub/internal/models"
	"github.com/Skotchmaster/videohub/internal/repo"
	"github.com/Skotchmaster/videohub/internal/search"
	"github.com/Skotchmaster/videohub/internal/util"
	"github.com/Skotchmaster/videohub/pkg/logging"
)

// ChannelService serves channel profiles and the subscription edges behind them.
type ChannelService struct {
	Repo   *repo.GormRepo
	Events EventPublisher
	Index  ChannelIndexer
}

func NewChannelService(r *repo.GormRepo, pub EventPublisher, idx ChannelIndexer) *ChannelService {
	if pub == nil {
		pub = events.Nop{}
	}
	if idx == nil {
		idx = search.Nop{}
	}
	return &ChannelService{Repo: r, Events: pub, Index: idx}
}

type ChannelSearchResult struct {
	Items []search.ChannelDoc `json:"items"`
	Meta  util.PageMeta       `json:"meta"`
}

// Profile computes the channel aggregate. A zero viewer means anonymous.
func (s *ChannelService) Profile(ctx context.Context, username string, viewer uuid.UUID) (*models.ChannelProfile, error) {
	if strings.TrimSpace(username) == "" {
		return nil, apperr.Validation("username is missing")
	}

	profile, err := s.Repo.ChannelProfile(ctx, username, viewer)
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			return nil, apperr.NotFound("channel does not exist")
		}
		logging.FromContext(ctx).Error("channel_profile_failed", "svc", "channel.profile", "status", 500, "error", err)
		return nil, apperr.Internal("Something went wrong while loading the channel", err)
	}
	return profile, nil
}

func (s *ChannelService) Subscribe(ctx context.Context, viewer uuid.UUID, username string) (*models.ChannelProfile, error) {
	return s.toggle(ctx, viewer, username, true)
}

func (s *ChannelService) Unsubscribe(ctx context.Context, viewer uuid.UUID, username string) (*models.ChannelProfile, error) {
	return s.toggle(ctx, viewer, username, false)
}

func (s *ChannelService) toggle(ctx context.Context, viewer uuid.UUID, username string, subscribe bool) (*models.ChannelProfile, error) {
	l := logging.FromContext(ctx).With("svc", "channel.subscription")

	if strings.TrimSpace(username) == "" {
		return nil, apperr.Validation("username is missing")
	}

	channel, err := s.Repo.FindByUsernameOrEmail(ctx, username, "")
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			return nil, apperr.NotFound("channel does not exist")
		}
		return nil, apperr.Internal("Something went wrong while loading the channel", err)
	}
	if channel.ID == viewer {
		return nil, apperr.Validation("You cannot subscribe to your own channel")
	}

	var (
		changed bool
		evType  string
	)
	if subscribe {
		changed, err = s.Repo.Subscribe(ctx, viewer, channel.ID)
		evType = events.UserSubscribed
	} else {
		changed, err = s.Repo.Unsubscribe(ctx, viewer, channel.ID)
		evType = events.UserUnsubscribed
	}
	if err != nil {
		l.Error("subscription_failed", "status", 500, "error", err)
		return nil, apperr.Internal("Something went wrong while updating the subscription", err)
	}

	if changed {
		publish(ctx, s.Events, events.UserEvent{
			Type: evType, UserID: viewer.String(), ChannelID: channel.ID.String(), At: time.Now().UTC(),
		})
		l.Info(evType, "user_id", viewer.String(), "channel_id", channel.ID.String())
	}

	return s.Profile(ctx, channel.Username, viewer)
}

func (s *ChannelService) Search(ctx context.Context, query string, page, size int) (*ChannelSearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperr.Validation("query is required")
	}

	page, size = util.Normalize(page, size)
	from, limit := util.Calculate(page, size)

	total, docs, err := s.Index.Search(ctx, query, from, limit)
	if err != nil {
		logging.FromContext(ctx).Error("channel_search_failed", "svc", "channel.search", "status", 500, "error", err)
		return nil, apperr.Internal("Search is unavailable", err)
	}
	if docs == nil {
		docs = []search.ChannelDoc{}
	}

	return &ChannelSearchResult{
		Items: docs,
		Meta:  util.PageMeta{Page: page, Size: limit, Total: total},
	}, nil
}
