// Package types provides type definitions for structured data used throughout the kwrite system.
package types

// Channel represents the communication medium a text is written for.
type Channel string

// Channel constants define the supported communication channels.
const (
	ChannelEmail          Channel = "email"
	ChannelReport         Channel = "report"
	ChannelMeetingMinutes Channel = "meeting_minutes"
	ChannelChat           Channel = "chat"
	ChannelOther          Channel = "other"
)

// Audience represents a normalized reader group.
type Audience string

// Audience constants define the supported audience groups.
const (
	AudienceExecutives     Audience = "executives"
	AudienceClientsVendors Audience = "clients_vendors"
	AudienceColleagues     Audience = "colleagues"
	AudienceGeneral        Audience = "general"
)

// CommunicationStyle represents an organization's declared communication culture.
type CommunicationStyle string

// CommunicationStyle constants define the supported organization styles.
const (
	StyleStrict   CommunicationStyle = "strict"
	StyleFormal   CommunicationStyle = "formal"
	StyleFriendly CommunicationStyle = "friendly"
)

// RewriteContext carries the normalized audience and channel for one analysis.
// It is derived once per request and treated as read-only afterwards.
type RewriteContext struct {
	Audience []Audience     `json:"audience"`
	Channel  Channel        `json:"channel"`
	Extras   map[string]any `json:"extras,omitempty"`
}

// audienceAliases maps raw survey values (Korean and English) to audience groups.
var audienceAliases = map[string]Audience{
	"직속상사":       AudienceExecutives,
	"임원":         AudienceExecutives,
	"경영진":        AudienceExecutives,
	"상사":         AudienceExecutives,
	"executives": AudienceExecutives,
	"executive":  AudienceExecutives,
	"고객":         AudienceClientsVendors,
	"거래처":        AudienceClientsVendors,
	"고객사":        AudienceClientsVendors,
	"clients":    AudienceClientsVendors,
	"vendors":    AudienceClientsVendors,
	"동료":         AudienceColleagues,
	"팀원":         AudienceColleagues,
	"colleagues": AudienceColleagues,
}

// channelAliases maps raw survey values to channels.
var channelAliases = map[string]Channel{
	"이메일":             ChannelEmail,
	"메일":              ChannelEmail,
	"email":           ChannelEmail,
	"보고서":             ChannelReport,
	"report":          ChannelReport,
	"회의록":             ChannelMeetingMinutes,
	"meeting_minutes": ChannelMeetingMinutes,
	"채팅":              ChannelChat,
	"메신저":             ChannelChat,
	"chat":            ChannelChat,
}

// MapAudience normalizes a raw audience value. Unmapped values fall back to the
// general audience so the mapping is total.
func MapAudience(raw string) Audience {
	if audience, ok := audienceAliases[raw]; ok {
		return audience
	}
	return AudienceGeneral
}

// MapChannel normalizes a raw situation/channel value. Unmapped values fall back
// to the other channel so the mapping is total.
func MapChannel(raw string) Channel {
	if channel, ok := channelAliases[raw]; ok {
		return channel
	}
	return ChannelOther
}

// NewRewriteContext derives the rewrite context for one request from the raw
// survey values supplied by the caller.
func NewRewriteContext(targetAudience, situationContext string) RewriteContext {
	return RewriteContext{
		Audience: []Audience{MapAudience(targetAudience)},
		Channel:  MapChannel(situationContext),
	}
}

// HasAudience reports whether the context includes the given audience group.
func (c RewriteContext) HasAudience(a Audience) bool {
	for _, audience := range c.Audience {
		if audience == a {
			return true
		}
	}
	return false
}

// FormalDocumentChannel reports whether the channel is one of the channels that
// require formal document conventions (email, report, meeting minutes).
func (c RewriteContext) FormalDocumentChannel() bool {
	switch c.Channel {
	case ChannelEmail, ChannelReport, ChannelMeetingMinutes:
		return true
	default:
		return false
	}
}
