package event

import (
	"context"
	"fmt"
	"log/slog"

	pkgkafka "github.com/harunzafer/fastsvelte/pkg/kafka"
	"github.com/harunzafer/fastsvelte/pkg/logger"
)

// OnboardingGroup is the consumer group that provisions free plans.
const OnboardingGroup = "fastsvelte-onboarding"

// Onboarder completes onboarding for an organization seen for the first time.
type Onboarder interface {
	CompleteOnboarding(ctx context.Context, orgID, userID int64) error
}

// OnboardingHandler returns a handler for organization.first_seen events.
func OnboardingHandler(onboarder Onboarder, log *slog.Logger) pkgkafka.Handler {
	return func(ctx context.Context, ev *pkgkafka.Event) error {
		if ev.Type != TopicOrganizationFirstSeen {
			return nil
		}

		var data OrganizationFirstSeenData
		if err := ev.Decode(&data); err != nil {
			return err
		}
		if data.OrganizationID == 0 {
			return fmt.Errorf("%s event %s has no organization id", ev.Type, ev.ID)
		}

		ctx = logger.WithCorrelationID(ctx, ev.CorrelationID)
		log.InfoContext(ctx, "provisioning organization",
			slog.Int64("organization_id", data.OrganizationID),
			slog.String("event_id", ev.ID),
		)
		return onboarder.CompleteOnboarding(ctx, data.OrganizationID, data.UserID)
	}
}
