package pagerduty

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/PagerDuty/go-pagerduty"

	domainerrors "github.com/qj0r9j0vc2/rtm-bot/internal/domain/errors"
)

// categorizePagerDutyError wraps PagerDuty API errors as transient or permanent domain errors.
func categorizePagerDutyError(err error, operation string) error {
	if err == nil {
		return nil
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return domainerrors.NewTransientError(fmt.Sprintf("%s: network error", operation), err)
	}

	var pdErr pagerduty.APIError
	if errors.As(err, &pdErr) {
		switch {
		case pdErr.StatusCode == 429:
			return domainerrors.NewTransientError(fmt.Sprintf("%s: rate limited", operation), err)
		case pdErr.StatusCode >= 500:
			return domainerrors.NewTransientError(
				fmt.Sprintf("%s: pagerduty server error (%s)", operation, describe(err)), err)
		case pdErr.StatusCode >= 400:
			return domainerrors.NewPermanentError(
				fmt.Sprintf("%s: client error (%s)", operation, describe(err)), err)
		}
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return domainerrors.NewTransientError(fmt.Sprintf("%s: context timeout", operation), err)
	}

	return domainerrors.NewPermanentError(fmt.Sprintf("%s: %v", operation, err), err)
}
