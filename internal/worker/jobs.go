package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"

	"reminddo/internal/monitoring"
	"reminddo/internal/services"
)

type TokenRefresher interface {
	RefreshUserToken(ctx context.Context, userID uuid.UUID) error
}

// GoogleTokenRefreshHandler renews one user's Google token. Users who must reconnect are not retried.
func GoogleTokenRefreshHandler(refresher TokenRefresher) JobHandler {
	return func(ctx context.Context, job *Job) error {
		err := refreshToken(ctx, refresher, job)
		monitoring.RecordJob(string(job.Type), err)
		return err
	}
}

func refreshToken(ctx context.Context, refresher TokenRefresher, job *Job) error {
	userID, err := uuid.FromString(job.PayloadString("user_id"))
	if err != nil {
		return fmt.Errorf("%w: bad user_id payload: %v", ErrPermanent, err)
	}

	err = refresher.RefreshUserToken(ctx, userID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, services.ErrReconnectRequired),
		errors.Is(err, services.ErrNotFound),
		errors.Is(err, services.ErrCalendarDisabled):
		return fmt.Errorf("%w: %v", ErrPermanent, err)
	default:
		return err
	}
}
