package slack

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	json "github.com/goccy/go-json"
	"github.com/slack-go/slack"
	"github.com/tidwall/gjson"

	"github.com/qj0r9j0vc2/rtm-bot/internal/domain/entity"
	domainerrors "github.com/qj0r9j0vc2/rtm-bot/internal/domain/errors"
)

// History fetches one page of a channel's archive newer than oldest, using
// channels.history for public channels and groups.history otherwise.
// The response must carry has_more; its absence is a permanent error.
func (c *Client) History(ctx context.Context, channelID, oldest string) (*entity.HistoryPage, error) {
	method := "groups.history"
	if entity.IsPublicChannelID(channelID) {
		method = "channels.history"
	}

	params := url.Values{
		"channel":   {channelID},
		"oldest":    {oldest},
		"inclusive": {"false"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+method+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("building %s request: %w", method, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, categorizeSlackError(err, method)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, categorizeSlackError(err, method)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, categorizeSlackError(slack.StatusCodeError{Code: resp.StatusCode, Status: resp.Status}, method)
	}

	return parseHistoryPage(method, body)
}

func parseHistoryPage(method string, body []byte) (*entity.HistoryPage, error) {
	if !gjson.ValidBytes(body) {
		return nil, domainerrors.NewPermanentError(fmt.Sprintf("%s: invalid JSON response", method), nil)
	}
	res := gjson.ParseBytes(body)

	if ok := res.Get("ok"); ok.Exists() && !ok.Bool() {
		return nil, categorizeSlackError(slack.SlackErrorResponse{Err: res.Get("error").String()}, method)
	}

	hasMore := res.Get("has_more")
	if !hasMore.Exists() {
		return nil, domainerrors.NewPermanentError(
			fmt.Sprintf("%s: response has no has_more field: %s", method, truncate(string(body), 512)),
			nil,
		)
	}

	page := &entity.HistoryPage{HasMore: hasMore.Bool()}
	var decodeErr error
	res.Get("messages").ForEach(func(_, value gjson.Result) bool {
		var m entity.RawMessage
		if err := json.Unmarshal([]byte(value.Raw), &m); err != nil {
			decodeErr = fmt.Errorf("%s: decoding message %s: %w", method, truncate(value.Raw, 256), err)
			return false
		}
		page.Messages = append(page.Messages, m)
		return true
	})
	if decodeErr != nil {
		return nil, domainerrors.NewPermanentError(decodeErr.Error(), decodeErr)
	}
	return page, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
