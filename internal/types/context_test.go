package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapAudience(t *testing.T) {
	tests := []struct {
		raw  string
		want Audience
	}{
		{"직속상사", AudienceExecutives},
		{"임원", AudienceExecutives},
		{"경영진", AudienceExecutives},
		{"executives", AudienceExecutives},
		{"고객사", AudienceClientsVendors},
		{"거래처", AudienceClientsVendors},
		{"동료", AudienceColleagues},
		{"팀원", AudienceColleagues},
		{"", AudienceGeneral},
		{"알 수 없는 값", AudienceGeneral},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, MapAudience(tt.raw), "raw: %q", tt.raw)
	}
}

func TestMapChannel(t *testing.T) {
	tests := []struct {
		raw  string
		want Channel
	}{
		{"이메일", ChannelEmail},
		{"메일", ChannelEmail},
		{"보고서", ChannelReport},
		{"회의록", ChannelMeetingMinutes},
		{"메신저", ChannelChat},
		{"채팅", ChannelChat},
		{"", ChannelOther},
		{"발표자료", ChannelOther},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, MapChannel(tt.raw), "raw: %q", tt.raw)
	}
}

func TestNewRewriteContext(t *testing.T) {
	rctx := NewRewriteContext("임원", "이메일")

	assert.True(t, rctx.HasAudience(AudienceExecutives))
	assert.False(t, rctx.HasAudience(AudienceColleagues))
	assert.Equal(t, ChannelEmail, rctx.Channel)
}

func TestFormalDocumentChannel(t *testing.T) {
	assert.True(t, RewriteContext{Channel: ChannelEmail}.FormalDocumentChannel())
	assert.True(t, RewriteContext{Channel: ChannelReport}.FormalDocumentChannel())
	assert.True(t, RewriteContext{Channel: ChannelMeetingMinutes}.FormalDocumentChannel())
	assert.False(t, RewriteContext{Channel: ChannelChat}.FormalDocumentChannel())
	assert.False(t, RewriteContext{Channel: ChannelOther}.FormalDocumentChannel())
}
