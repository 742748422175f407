package pagerduty

import (
	"context"
	"time"

	"github.com/PagerDuty/go-pagerduty"

	"github.com/qj0r9j0vc2/rtm-bot/internal/domain/entity"
)

const pageLimit = 100

// Client reads on-call assignments from the PagerDuty REST API.
type Client struct {
	client  *pagerduty.Client
	retry   *RetryPolicy
	timeout time.Duration
}

// NewClient creates a REST client. An empty apiURL uses the public endpoint.
func NewClient(apiToken, apiURL string, retry *RetryPolicy) *Client {
	var opts []pagerduty.ClientOptions
	if apiURL != "" {
		opts = append(opts, pagerduty.WithAPIEndpoint(apiURL))
	}
	if retry == nil {
		retry = DefaultRetryPolicy()
	}
	return &Client{
		client:  pagerduty.NewClient(apiToken, opts...),
		retry:   retry,
		timeout: 10 * time.Second,
	}
}

// ListOnCalls returns the current on-call assignments, limited to
// scheduleIDs when non-empty. Only the earliest assignment per user and
// escalation level is returned.
func (c *Client) ListOnCalls(ctx context.Context, scheduleIDs []string) ([]entity.OnCall, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var out []entity.OnCall
	var offset uint
	for {
		opts := pagerduty.ListOnCallOptions{
			Limit:       pageLimit,
			Offset:      offset,
			ScheduleIDs: scheduleIDs,
			Earliest:    true,
		}

		var resp *pagerduty.ListOnCallsResponse
		err := c.retry.WithRetry(ctx, func(ctx context.Context) error {
			var err error
			resp, err = c.client.ListOnCallsWithContext(ctx, opts)
			return err
		})
		if err != nil {
			return nil, categorizePagerDutyError(err, "list on-calls")
		}

		for _, oc := range resp.OnCalls {
			out = append(out, toEntity(oc))
		}
		if !resp.More || len(resp.OnCalls) == 0 {
			return out, nil
		}
		offset += uint(len(resp.OnCalls))
	}
}

// Ping verifies the token by listing the account abilities.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if _, err := c.client.ListAbilitiesWithContext(ctx); err != nil {
		return categorizePagerDutyError(err, "list abilities")
	}
	return nil
}

func toEntity(oc pagerduty.OnCall) entity.OnCall {
	name := oc.User.Name
	if name == "" {
		name = oc.User.Summary
	}
	schedule := oc.Schedule.Name
	if schedule == "" {
		schedule = oc.Schedule.Summary
	}
	policy := oc.EscalationPolicy.Name
	if policy == "" {
		policy = oc.EscalationPolicy.Summary
	}
	return entity.OnCall{
		User:             name,
		Email:            oc.User.Email,
		Schedule:         schedule,
		EscalationPolicy: policy,
		Level:            oc.EscalationLevel,
		Start:            parseTime(oc.Start),
		End:              parseTime(oc.End),
	}
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
