package entity

// Identity is a name/ID pair for a user, channel or group.
type Identity struct {
	ID   string
	Name string
}

// Session is the result of session establishment: the streaming URL plus the
// listings used to seed the identity registry.
type Session struct {
	URL      string
	Self     Identity
	Users    []Identity
	Channels []Identity
	Groups   []Identity
}

// HistoryPage is one page of a channel's message archive.
type HistoryPage struct {
	HasMore  bool
	Messages []RawMessage
}

// OutboundMessage is the envelope written to the streaming connection.
// ID increases monotonically per connection.
type OutboundMessage struct {
	ID      int64  `json:"id"`
	Type    string `json:"type"`
	Channel string `json:"channel"`
	Text    string `json:"text"`
}
