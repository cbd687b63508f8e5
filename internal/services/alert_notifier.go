package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	redisclient "github.com/miyahealth/miya-backend/internal/clients/redis"
	"github.com/miyahealth/miya-backend/internal/logger"
	"github.com/miyahealth/miya-backend/internal/repos"
	"github.com/miyahealth/miya-backend/internal/types"
	"github.com/miyahealth/miya-backend/internal/vitality"
)

// AlertNotifier resolves the caregivers entitled to hear about an episode and
// enqueues one notification row per recipient. Enqueue runs inside the
// caller's transaction so the episode's last-notified bookkeeping commits with
// it; Broadcast happens after commit and is best-effort.
type AlertNotifier interface {
	Enqueue(ctx context.Context, tx *gorm.DB, episode *types.PatternAlertEpisode) ([]*types.Notification, error)
	Broadcast(ctx context.Context, rows []*types.Notification, severity string)
}

type alertPayload struct {
	MetricType       string    `json:"metric_type"`
	PatternType      string    `json:"pattern_type"`
	Severity         string    `json:"severity"`
	CurrentLevel     int       `json:"current_level"`
	ActiveSince      time.Time `json:"active_since"`
	BaselineValue    *float64  `json:"baseline_value,omitempty"`
	RecentValue      *float64  `json:"recent_value,omitempty"`
	DeviationPercent *float64  `json:"deviation_percent,omitempty"`
}

type alertNotifier struct {
	db               *gorm.DB
	log              *logger.Logger
	caregiverRepo    repos.CaregiverLinkRepo
	notificationRepo repos.NotificationRepo
	bus              redisclient.AlertBus
}

func NewAlertNotifier(db *gorm.DB, baseLog *logger.Logger, caregiverRepo repos.CaregiverLinkRepo, notificationRepo repos.NotificationRepo, bus redisclient.AlertBus) AlertNotifier {
	return &alertNotifier{
		db:               db,
		log:              baseLog.With("service", "AlertNotifier"),
		caregiverRepo:    caregiverRepo,
		notificationRepo: notificationRepo,
		bus:              bus,
	}
}

func (n *alertNotifier) Enqueue(ctx context.Context, tx *gorm.DB, episode *types.PatternAlertEpisode) ([]*types.Notification, error) {
	recipients, err := n.caregiverRepo.ResolveRecipients(ctx, tx, episode.UserID)
	if err != nil {
		return nil, fmt.Errorf("resolve recipients: %w", err)
	}
	if len(recipients) == 0 {
		return nil, nil
	}

	payload := alertPayload{
		MetricType:       episode.MetricType,
		PatternType:      episode.PatternType,
		Severity:         vitality.SeverityFor(episode.CurrentLevel),
		CurrentLevel:     episode.CurrentLevel,
		ActiveSince:      episode.ActiveSince,
		BaselineValue:    episode.BaselineValue,
		RecentValue:      episode.RecentValue,
		DeviationPercent: episode.DeviationPercent,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal alert payload: %w", err)
	}

	rows := make([]*types.Notification, 0, len(recipients))
	for _, recipientID := range recipients {
		rows = append(rows, &types.Notification{
			RecipientID:  recipientID,
			MemberUserID: episode.UserID,
			EpisodeID:    episode.ID,
			Payload:      datatypes.JSON(raw),
			Status:       types.NotificationStatusPending,
		})
	}
	if err := n.notificationRepo.Enqueue(ctx, tx, rows); err != nil {
		return nil, fmt.Errorf("enqueue notifications: %w", err)
	}
	return rows, nil
}

func (n *alertNotifier) Broadcast(ctx context.Context, rows []*types.Notification, severity string) {
	if n.bus == nil || len(rows) == 0 {
		return
	}
	for _, row := range rows {
		ev := redisclient.AlertEvent{
			NotificationID: row.ID.String(),
			RecipientID:    row.RecipientID.String(),
			MemberUserID:   row.MemberUserID.String(),
			EpisodeID:      row.EpisodeID.String(),
			Severity:       severity,
			Payload:        json.RawMessage(row.Payload),
		}
		if err := n.bus.Publish(ctx, ev); err != nil {
			// The row is already durable; a delivery worker will pick it up.
			n.log.Warn("Alert bus publish failed", "notification_id", row.ID, "error", err)
		}
	}
}
