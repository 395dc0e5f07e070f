package types

import (
	"time"

	"github.com/google/uuid"
)

// OrganizationProfile describes an organization's communication expectations.
// The analysis pipeline holds a transient copy for the request's lifetime only;
// the profile store owns the durable record.
type OrganizationProfile struct {
	OrganizationID     string             `json:"organization_id"`
	Name               string             `json:"name,omitempty"`
	CommunicationStyle CommunicationStyle `json:"communication_style"`
	DeclaredChannels   []string           `json:"declared_channels,omitempty"`
}

// GuidelineDoc is one organization writing guideline document.
type GuidelineDoc struct {
	ID        uuid.UUID `json:"id"`
	OrgID     string    `json:"org_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// UserPreferences holds per-user style preferences gathered from the survey.
type UserPreferences struct {
	UserID          string `json:"user_id"`
	PreferredEnding string `json:"preferred_ending,omitempty"`
	Verbosity       string `json:"verbosity,omitempty"`
	SubjectHint     string `json:"subject_hint,omitempty"`
}
