package alerts

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/anilytics/agriwarehouse/internal/domain/models"
)

const (
	sendTimeout     = 10 * time.Second
	defaultCooldown = 6 * time.Hour
)

// ErrDisabled is returned for manual messages when no sender is configured.
var ErrDisabled = errors.New("alert delivery is not configured")

// Sender delivers a text message to a recipient.
type Sender interface {
	Send(ctx context.Context, to, body string) (string, error)
}

// Service formats warehouse alerts and pushes them to the configured recipient.
type Service struct {
	sender    Sender
	recipient string
	recent    *cooldownTracker
	logger    *zap.Logger
}

// NewService wires a new alert service. A nil sender or empty recipient disables delivery.
func NewService(sender Sender, recipient string, logger *zap.Logger) *Service {
	svc := &Service{
		sender:    sender,
		recipient: strings.TrimSpace(recipient),
		recent:    newCooldownTracker(defaultCooldown, time.Now),
		logger:    logger,
	}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	return svc
}

// Enabled reports whether alerts are actually delivered.
func (s *Service) Enabled() bool {
	return s != nil && s.sender != nil && s.recipient != ""
}

// SpoilageAlert warns about a batch that reached high risk. Repeated alerts for
// the same batch are suppressed during the cooldown window.
func (s *Service) SpoilageAlert(ctx context.Context, batch models.Batch) error {
	return s.deliver(ctx, fmt.Sprintf("spoilage:%d", batch.ID), FormatSpoilage(batch))
}

// DistributionAlert relays one tier of a distribution plan.
func (s *Service) DistributionAlert(ctx context.Context, rec models.AllocationRecommendation) error {
	return s.deliver(ctx, "", FormatDistribution(rec))
}

// StorageConditionAlert warns about a location drifting out of the optimal band.
func (s *Service) StorageConditionAlert(ctx context.Context, rec models.StorageRecommendation) error {
	return s.deliver(ctx, "storage:"+rec.StorageLocation, FormatStorageCondition(rec))
}

// CapacityAlert warns about a storage zone approaching its limit.
func (s *Service) CapacityAlert(ctx context.Context, usage models.ZoneUsage) error {
	return s.deliver(ctx, "capacity:"+usage.Location, FormatCapacity(usage))
}

// SendMessage delivers a free-text operator message. An empty recipient means
// the configured alert recipient. Manual messages bypass the cooldown.
func (s *Service) SendMessage(ctx context.Context, req models.OutboundMessageRequest) (string, error) {
	if s == nil || s.sender == nil {
		return "", ErrDisabled
	}
	if strings.TrimSpace(req.Message) == "" {
		return "", &models.ValidationError{Field: "message", Reason: "required"}
	}

	to := strings.TrimSpace(req.To)
	if to == "" {
		to = s.recipient
	}
	if to == "" {
		return "", &models.ValidationError{Field: "to", Reason: "no recipient given and none configured"}
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	id, err := s.sender.Send(ctxWithTimeout, to, req.Message)
	if err != nil {
		return "", fmt.Errorf("send message: %w", err)
	}
	s.logger.Info("manual message sent", zap.String("message_id", id))
	return id, nil
}

func (s *Service) deliver(ctx context.Context, key, body string) error {
	if !s.Enabled() {
		s.logger.Debug("alert delivery disabled", zap.String("key", key))
		return nil
	}
	if key != "" && !s.recent.allow(key) {
		s.logger.Debug("alert suppressed by cooldown", zap.String("key", key))
		return nil
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	id, err := s.sender.Send(ctxWithTimeout, s.recipient, body)
	if err != nil {
		return fmt.Errorf("send alert: %w", err)
	}
	if key != "" {
		s.recent.mark(key)
	}

	s.logger.Info("alert sent", zap.String("key", key), zap.String("message_id", id))
	return nil
}

// FormatSpoilage renders the spoilage alert text.
func FormatSpoilage(b models.Batch) string {
	return strings.Join([]string{
		"URGENT: Spoilage Risk Alert",
		fmt.Sprintf("Batch ID: %d", b.ID),
		"Variety: " + b.Variety,
		"Quantity: " + number(b.QuantityKg) + " kg",
		fmt.Sprintf("Days Remaining: %d", b.DaysRemaining),
		"Risk Level: " + strings.ToUpper(string(b.SpoilageRisk)),
		"Action Required: Check storage conditions immediately",
	}, "\n")
}

// FormatDistribution renders a distribution recommendation alert.
func FormatDistribution(rec models.AllocationRecommendation) string {
	var total float64
	for _, kg := range rec.Allocation {
		total += kg
	}
	return strings.Join([]string{
		"Distribution Alert: " + rec.Priority,
		rec.Description,
		"Reason: " + rec.Reason,
		fmt.Sprintf("Batches: %d", len(rec.Batches)),
		"Total Quantity: " + number(total) + " kg",
	}, "\n")
}

// FormatStorageCondition renders a storage condition alert.
func FormatStorageCondition(rec models.StorageRecommendation) string {
	return strings.Join([]string{
		"Storage Condition Alert",
		"Location: " + rec.StorageLocation,
		"Risk Level: " + strings.ToUpper(string(rec.RiskLevel)),
		"Temperature: " + number(rec.CurrentConditions.Temperature) + "°C",
		"Humidity: " + number(rec.CurrentConditions.Humidity) + "%",
		"Action Required:",
		rec.Recommendations.Temperature,
		rec.Recommendations.Humidity,
	}, "\n")
}

// FormatCapacity renders an inventory threshold alert.
func FormatCapacity(u models.ZoneUsage) string {
	return strings.Join([]string{
		"Inventory Alert",
		"Location: " + u.Location,
		"Current Usage: " + number(u.CurrentUsageKg) + " kg (" + number(u.UsagePercent) + "%)",
		"Status: " + strings.ToUpper(u.Status),
		"Recommendation: " + u.Recommendation,
	}, "\n")
}

func number(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
