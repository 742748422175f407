package grammar

import (
	"regexp"
	"strings"
)

// Symbol validates a single token and returns the value to capture.
type Symbol func(token string) (string, bool)

var (
	// <@U123> or <@U123|alice>
	userMention = regexp.MustCompile(`^<@([UW][A-Z0-9]+)(?:\|([^>]+))?>$`)
	// <#C123> or <#C123|general>
	channelMention = regexp.MustCompile(`^<#([CG][A-Z0-9]+)(?:\|([^>]+))?>$`)
	plainName      = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)
)

// UserName accepts "alice", "@alice" and Slack user mentions. A mention with
// a label yields the label; a bare mention yields the user ID.
func UserName(token string) (string, bool) {
	if m := userMention.FindStringSubmatch(token); m != nil {
		if m[2] != "" {
			return m[2], true
		}
		return m[1], true
	}
	name := strings.TrimPrefix(token, "@")
	if !plainName.MatchString(name) {
		return "", false
	}
	return name, true
}

// ChannelName accepts "general", "#general" and Slack channel mentions. A
// mention with a label yields the label; a bare mention yields the channel ID.
func ChannelName(token string) (string, bool) {
	if m := channelMention.FindStringSubmatch(token); m != nil {
		if m[2] != "" {
			return m[2], true
		}
		return m[1], true
	}
	name := strings.TrimPrefix(token, "#")
	if !plainName.MatchString(name) {
		return "", false
	}
	return name, true
}

// Word accepts any token that is not a flag.
func Word(token string) (string, bool) {
	if token == "" || strings.HasPrefix(token, "--") {
		return "", false
	}
	return token, true
}
