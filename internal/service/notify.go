package service

import (
	"context"
	"fmt"

	"github.com/Fi44er/deposit_bot/internal/metrics"
	"go.uber.org/multierr"
)

// notify delivers msg best-effort. The error is returned for tests and
// logging only; callers must not undo state because of it.
func (s *Service) notify(ctx context.Context, recipient string, msg Message) error {
	if err := s.notifier.Notify(ctx, recipient, msg); err != nil {
		metrics.DeliveryFailures.WithLabelValues("user").Inc()
		s.logger.Errorf("Failed to notify %s: %v", recipient, err)
		return fmt.Errorf("%w: %s: %w", ErrDeliveryFailed, recipient, err)
	}
	return nil
}

// notifyAdmins attempts every admin regardless of earlier failures.
func (s *Service) notifyAdmins(ctx context.Context, msg Message) error {
	var errs error
	for _, adminID := range s.settings.AdminIDs {
		if err := s.notifier.Notify(ctx, adminID, msg); err != nil {
			metrics.DeliveryFailures.WithLabelValues("admin").Inc()
			s.logger.Errorf("Failed to notify admin %s: %v", adminID, err)
			errs = multierr.Append(errs, fmt.Errorf("%w: admin %s: %w", ErrDeliveryFailed, adminID, err))
		}
	}
	return errs
}

func (s *Service) edit(ctx context.Context, origin *Origin, msg Message) {
	if origin == nil {
		return
	}
	if err := s.notifier.Edit(ctx, *origin, msg); err != nil {
		metrics.DeliveryFailures.WithLabelValues("edit").Inc()
		s.logger.Errorf("Failed to edit message %d in chat %s: %v", origin.MessageID, origin.ChatID, err)
	}
}
