package ingestion

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `<!DOCTYPE html>
<html>
<head><title>사내 문서 작성 가이드</title></head>
<body>
  <nav>메뉴</nav>
  <main>
    <h1>보고서 작성 지침</h1>
    <p>보고서는 요약으로 시작합니다.</p>
    <p>이모지는 사용하지 않습니다.</p>
  </main>
  <footer>푸터</footer>
  <script>console.log("noise")</script>
</body>
</html>`

func TestFromHTML_ExtractsTitleAndBody(t *testing.T) {
	doc, err := FromHTML("org-1", "https://intranet.example.com/guide", samplePage)

	require.NoError(t, err)
	assert.Equal(t, "org-1", doc.OrgID)
	assert.Equal(t, "보고서 작성 지침", doc.Title)
	assert.Contains(t, doc.Content, "요약으로 시작")
	assert.NotContains(t, doc.Content, "메뉴", "nav noise must be stripped")
	assert.NotContains(t, doc.Content, "console.log")
}

func TestFromHTML_FallsBackToPageTitle(t *testing.T) {
	html := `<html><head><title>스타일 가이드</title></head><body><p>내용</p></body></html>`

	doc, err := FromHTML("org-1", "https://example.com", html)

	require.NoError(t, err)
	assert.Equal(t, "스타일 가이드", doc.Title)
}

func TestFromHTML_EmptyPage(t *testing.T) {
	_, err := FromHTML("org-1", "https://example.com", "<html><body></body></html>")
	assert.Error(t, err)
}

func TestFromURL_FetchesAndConverts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(samplePage))
	}))
	defer server.Close()

	doc, err := FromURL(context.Background(), "org-1", server.URL, nil)

	require.NoError(t, err)
	assert.Equal(t, "보고서 작성 지침", doc.Title)
}

func TestFromURL_RejectsInvalidURL(t *testing.T) {
	_, err := FromURL(context.Background(), "org-1", "not-a-url", nil)

	require.Error(t, err)
	var ingErr *Error
	require.ErrorAs(t, err, &ingErr)
	assert.Contains(t, ingErr.Message, "invalid URL")
}

func TestFromURL_NonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := FromURL(context.Background(), "org-1", server.URL, nil)
	assert.Error(t, err)
}
