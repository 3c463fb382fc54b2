package services

import (
	"context"
	"fmt"
	"time"

	"gasy-hub-backend/internal/models"

	"github.com/rs/zerolog/log"
	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/payload"
	"github.com/sideshow/apns2/token"
)

// apnsPusher is the part of the APNs client the push service needs
type apnsPusher interface {
	PushWithContext(ctx apns2.Context, n *apns2.Notification) (*apns2.Response, error)
}

// PushOptions configures APNs token authentication
type PushOptions struct {
	KeyFile    string
	KeyID      string
	TeamID     string
	Topic      string
	Production bool
	Timeout    time.Duration
}

// PushService sends APNs notifications about urgent alerts to devices that
// registered a push token
type PushService struct {
	client   apnsPusher
	userRepo UserStore
	topic    string
	timeout  time.Duration
}

// NewPushService creates a push service from a .p8 signing key
func NewPushService(opts PushOptions, userRepo UserStore) (*PushService, error) {
	authKey, err := token.AuthKeyFromFile(opts.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load APNs key: %w", err)
	}

	client := apns2.NewTokenClient(&token.Token{
		AuthKey: authKey,
		KeyID:   opts.KeyID,
		TeamID:  opts.TeamID,
	})
	if opts.Production {
		client = client.Production()
	} else {
		client = client.Development()
	}

	return newPushService(client, userRepo, opts.Topic, opts.Timeout), nil
}

func newPushService(client apnsPusher, userRepo UserStore, topic string, timeout time.Duration) *PushService {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &PushService{
		client:   client,
		userRepo: userRepo,
		topic:    topic,
		timeout:  timeout,
	}
}

// NotifyNewAlert pushes a high-urgency alert to every device but the author's
// and returns how many pushes APNs accepted. Other urgencies are not pushed.
func (s *PushService) NotifyNewAlert(ctx context.Context, alert *models.Alert) (int, error) {
	if alert.Urgency != models.UrgencyHigh {
		return 0, nil
	}

	tokens, err := s.userRepo.ListPushTokens(ctx, alert.AuthorID)
	if err != nil {
		return 0, err
	}

	body := payload.NewPayload().
		AlertTitle(alert.Reason).
		AlertBody(fmt.Sprintf("%s: %s", alert.Location, alert.Description)).
		Sound("default").
		Custom("alert_id", alert.ID)

	sent := 0
	for _, deviceToken := range tokens {
		res, err := s.client.PushWithContext(ctx, &apns2.Notification{
			DeviceToken: deviceToken,
			Topic:       s.topic,
			Payload:     body,
			Priority:    apns2.PriorityHigh,
		})
		if err != nil {
			log.Warn().Err(err).Str("alert_id", alert.ID).Msg("APNs push failed")
			continue
		}
		if !res.Sent() {
			log.Warn().
				Str("alert_id", alert.ID).
				Int("status", res.StatusCode).
				Str("reason", res.Reason).
				Msg("APNs rejected push")
			continue
		}
		sent++
	}
	return sent, nil
}

// NotifyNewAlertAsync runs NotifyNewAlert in the background with its own timeout
func (s *PushService) NotifyNewAlertAsync(alert *models.Alert) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		sent, err := s.NotifyNewAlert(ctx, alert)
		if err != nil {
			log.Error().Err(err).Str("alert_id", alert.ID).Msg("Failed to push alert")
			return
		}
		if sent > 0 {
			log.Info().Str("alert_id", alert.ID).Int("sent", sent).Msg("Alert pushed")
		}
	}()
}
