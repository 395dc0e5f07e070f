package db

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kwritelab/kwrite/internal/types"
)

func TestNullIfEmpty(t *testing.T) {
	assert.Nil(t, nullIfEmpty(""))

	got := nullIfEmpty("value")
	assert.NotNil(t, got)
	assert.Equal(t, "value", *got)
}

func TestAnalysisRecordType(t *testing.T) {
	record := AnalysisRecord{
		OrgID:  "org-1",
		UserID: "user-1",
		Text:   "검토 부탁드립니다.",
		Result: types.AnalysisResult{ComplianceScore: 75},
	}

	assert.Equal(t, "org-1", record.OrgID)
	assert.InDelta(t, 75, record.Result.ComplianceScore, 1e-9)
}

func TestUserNeverSerializesPasswordHash(t *testing.T) {
	user := User{Name: "홍길동", Email: "hong@example.com", PasswordHash: "secret"}

	body, err := json.Marshal(user)

	assert.NoError(t, err)
	assert.NotContains(t, string(body), "secret")
}
