package slack

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/slack-go/slack"

	"github.com/qj0r9j0vc2/rtm-bot/internal/domain/entity"
	domainerrors "github.com/qj0r9j0vc2/rtm-bot/internal/domain/errors"
	"github.com/qj0r9j0vc2/rtm-bot/internal/infrastructure/resilience"
)

const defaultAPIURL = "https://slack.com/api/"

// Error codes returned by conversations.open for users that cannot be messaged.
var cannotDMCodes = map[string]bool{
	"cannot_dm_bot": true,
	"user_disabled": true,
}

// ClientConfig configures the REST client.
type ClientConfig struct {
	Token   string
	APIURL  string // defaults to https://slack.com/api/
	Timeout time.Duration
	Debug   bool

	// Breaker settings for reactions and uploads.
	BreakerMaxFailures int
	BreakerTimeout     time.Duration
}

// Client wraps the Slack Web API with the operations the bot engine needs.
type Client struct {
	api     *slack.Client
	http    *http.Client
	token   string
	apiURL  string
	breaker *resilience.CircuitBreaker
	logger  Logger
}

// NewClient creates a new Slack client.
func NewClient(cfg ClientConfig, logger Logger) *Client {
	apiURL := cfg.APIURL
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	if !strings.HasSuffix(apiURL, "/") {
		apiURL += "/"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxFailures := cfg.BreakerMaxFailures
	if maxFailures <= 0 {
		maxFailures = 5
	}
	breakerTimeout := cfg.BreakerTimeout
	if breakerTimeout <= 0 {
		breakerTimeout = 30 * time.Second
	}

	httpClient := &http.Client{Timeout: timeout}
	api := slack.New(cfg.Token,
		slack.OptionAPIURL(apiURL),
		slack.OptionHTTPClient(httpClient),
		slack.OptionDebug(cfg.Debug),
		slack.OptionLog(debugLogAdapter{logger: logger}),
	)

	breaker := resilience.NewCircuitBreaker("slack-side-effects", maxFailures, breakerTimeout)
	breaker.OnStateChange(func(name string, from, to resilience.State) {
		logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
	})

	return &Client{
		api:     api,
		http:    httpClient,
		token:   cfg.Token,
		apiURL:  apiURL,
		breaker: breaker,
		logger:  logger,
	}
}

// Connect establishes an RTM session and lists users, channels and groups.
func (c *Client) Connect(ctx context.Context) (*entity.Session, error) {
	info, url, err := c.api.ConnectRTMContext(ctx)
	if err != nil {
		return nil, categorizeSlackError(err, "connecting rtm")
	}

	session := &entity.Session{URL: url}
	if info != nil && info.User != nil {
		session.Self = entity.Identity{ID: info.User.ID, Name: info.User.Name}
	}

	users, err := c.api.GetUsersContext(ctx)
	if err != nil {
		return nil, categorizeSlackError(err, "listing users")
	}
	for _, u := range users {
		session.Users = append(session.Users, entity.Identity{ID: u.ID, Name: u.Name})
	}

	params := &slack.GetConversationsParameters{
		Types:           []string{"public_channel", "private_channel"},
		ExcludeArchived: true,
		Limit:           200,
	}
	for {
		channels, cursor, err := c.api.GetConversationsContext(ctx, params)
		if err != nil {
			return nil, categorizeSlackError(err, "listing conversations")
		}
		for _, ch := range channels {
			ident := entity.Identity{ID: ch.ID, Name: ch.Name}
			if entity.IsPublicChannelID(ch.ID) {
				session.Channels = append(session.Channels, ident)
			} else {
				session.Groups = append(session.Groups, ident)
			}
		}
		if cursor == "" {
			break
		}
		params.Cursor = cursor
	}

	c.logger.Info("rtm session established",
		"self", session.Self.Name,
		"users", len(session.Users),
		"channels", len(session.Channels),
		"groups", len(session.Groups),
	)
	return session, nil
}

// OpenDirectChannel opens (or returns the existing) DM channel with a user.
func (c *Client) OpenDirectChannel(ctx context.Context, userID string) (string, error) {
	ch, _, _, err := c.api.OpenConversationContext(ctx, &slack.OpenConversationParameters{
		Users: []string{userID},
	})
	if err != nil {
		var slackErr slack.SlackErrorResponse
		if errors.As(err, &slackErr) && cannotDMCodes[slackErr.Err] {
			return "", fmt.Errorf("%s: %w", slackErr.Err, domainerrors.ErrCannotDM)
		}
		return "", categorizeSlackError(err, "opening direct channel")
	}
	if ch == nil || ch.ID == "" {
		return "", domainerrors.NewPermanentError("opening direct channel: empty channel in response", nil)
	}
	return ch.ID, nil
}

// AddReaction adds an emoji reaction to a message.
func (c *Client) AddReaction(ctx context.Context, emoji, channelID, timestamp string) error {
	return c.breaker.Execute(ctx, func(ctx context.Context) error {
		err := c.api.AddReactionContext(ctx, emoji, slack.NewRefToMessage(channelID, timestamp))
		if err != nil {
			return categorizeSlackError(err, "adding reaction")
		}
		return nil
	})
}

// UploadFile uploads a local file to a channel.
func (c *Client) UploadFile(ctx context.Context, path, filename, channelID string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("reading upload: %w", err)
	}

	return c.breaker.Execute(ctx, func(ctx context.Context) error {
		_, err := c.api.UploadFileV2Context(ctx, slack.UploadFileV2Parameters{
			File:     path,
			FileSize: int(info.Size()),
			Filename: filename,
			Title:    filename,
			Channel:  channelID,
		})
		if err != nil {
			return categorizeSlackError(err, "uploading file")
		}
		return nil
	})
}

// categorizeSlackError wraps Slack API errors as transient or permanent domain errors.
func categorizeSlackError(err error, operation string) error {
	if err == nil {
		return nil
	}

	// Check for network errors (transient)
	var netErr net.Error
	if errors.As(err, &netErr) {
		return domainerrors.NewTransientError(
			fmt.Sprintf("%s: network error", operation),
			err,
		)
	}

	var rateErr *slack.RateLimitedError
	if errors.As(err, &rateErr) {
		return domainerrors.NewTransientError(
			fmt.Sprintf("%s: rate limited, retry after %s", operation, rateErr.RetryAfter),
			err,
		)
	}

	var statusErr slack.StatusCodeError
	if errors.As(err, &statusErr) && statusErr.Code >= http.StatusInternalServerError {
		return domainerrors.NewTransientError(
			fmt.Sprintf("%s: slack server error %d", operation, statusErr.Code),
			err,
		)
	}

	// Check for Slack API errors
	var slackErr slack.SlackErrorResponse
	if errors.As(err, &slackErr) {
		switch slackErr.Err {
		// Rate limiting and server errors - transient
		case "rate_limited", "ratelimited", "internal_error", "fatal_error", "service_unavailable", "request_timeout":
			return domainerrors.NewTransientError(
				fmt.Sprintf("%s: %s", operation, slackErr.Err),
				err,
			)

		// Client errors and anything unknown - permanent
		default:
			return domainerrors.NewPermanentError(
				fmt.Sprintf("%s: %s", operation, slackErr.Err),
				err,
			)
		}
	}

	// Check for context errors (transient)
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return domainerrors.NewTransientError(
			fmt.Sprintf("%s: context timeout", operation),
			err,
		)
	}

	// Default to permanent error
	return domainerrors.NewPermanentError(
		fmt.Sprintf("%s: %v", operation, err),
		err,
	)
}
