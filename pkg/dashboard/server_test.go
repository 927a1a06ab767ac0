package dashboard

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tweetsync/pkg/logger"
	"tweetsync/pkg/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func sampleSources(t *testing.T) Sources {
	t.Helper()
	dir := t.TempDir()
	return Sources{
		SentimentFile: writeFile(t, dir, "sentiment.csv", "Sentiment\npositive\nneutral\n"),
		EmotionFile:   writeFile(t, dir, "emotion.csv", "TextID,Emotion,Score\n1,joy,0.5\n1,joy,0.7\n2,sadness,0.4\n"),
		ClusterFile:   writeFile(t, dir, "cluster.csv", "Cluster,Content\n3,<b>go</b>\n3,gophers\n1,rust\n"),
	}
}

func TestRenderIncludesChartsAndClusterTable(t *testing.T) {
	data, err := Load(sampleSources(t))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, data.Render(&buf))
	page := buf.String()

	assert.Contains(t, page, "Sentiment")
	assert.Contains(t, page, "Emotion scores")
	assert.Contains(t, page, "Cluster sizes (densest: 3)")
	assert.Contains(t, page, "Densest cluster: 3 (2 posts)")
	assert.Contains(t, page, "&lt;b&gt;go&lt;/b&gt;")
	assert.NotContains(t, page, "<td style=\"padding:4px 8px\">rust</td>")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("Densest cluster")), bytes.LastIndex(buf.Bytes(), []byte("</body>")))
}

func TestRenderWithoutClustersHasNoTable(t *testing.T) {
	data := &Data{Sentiment: map[string]int{"positive": 1}}

	var buf bytes.Buffer
	require.NoError(t, data.Render(&buf))
	assert.NotContains(t, buf.String(), "Densest cluster")
}

func TestInsertBeforeBodyEnd(t *testing.T) {
	got := insertBeforeBodyEnd([]byte("<body>x</body></html>"), []byte("<p>t</p>"))
	assert.Equal(t, "<body>x<p>t</p></body></html>", string(got))

	got = insertBeforeBodyEnd([]byte("plain"), []byte("!"))
	assert.Equal(t, "plain!", string(got))
}

func TestServerIndex(t *testing.T) {
	srv := NewServer(StaticSources(sampleSources(t), nil), logger.NewNopLogger())

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Contains(t, w.Body.String(), "Densest cluster: 3")
}

func TestServerSummaryUsesLatestRecordSet(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewManager(dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.csv"),
		[]byte("Timestamp,Content\n2024-05-01T08:00:00Z,hi\n2024-05-01T09:00:00Z,there\n"), 0644))

	srv := NewServer(StaticSources(sampleSources(t), store), logger.NewNopLogger())

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/summary", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Sentiment map[string]int `json:"sentiment"`
		Densest   struct {
			ID   string `json:"id"`
			Size int    `json:"size"`
		} `json:"densest_cluster"`
		Volume []Bucket `json:"volume"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, map[string]int{"positive": 1, "neutral": 1}, body.Sentiment)
	assert.Equal(t, "3", body.Densest.ID)
	assert.Equal(t, 2, body.Densest.Size)
	assert.Equal(t, []Bucket{{Label: "2024-05-01", Count: 2}}, body.Volume)
}

func TestServerPostsPagesLatestRecordSet(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewManager(dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.csv"), []byte("Timestamp,Content\n"+
		"2024-05-01T08:00:00Z,first\n"+
		"2024-05-02T08:00:00Z,second\n"+
		"2024-05-03T08:00:00Z,third\n"), 0644))

	srv := NewServer(StaticSources(Sources{}, store), logger.NewNopLogger())

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/posts?limit=1&startDate=2024-05-01&endDate=2024-05-02", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var page PostsPage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, 2, page.Total)
	require.Len(t, page.Posts, 1)
	assert.Equal(t, "second", page.Posts[0].Content)
	assert.Equal(t, 3, page.Posts[0].Line)
}

func TestServerPostsBadQuery(t *testing.T) {
	srv := NewServer(StaticSources(Sources{}, nil), logger.NewNopLogger())

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/posts?page=-1", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid page")
}

func TestServerPostsWithoutRecordSet(t *testing.T) {
	srv := NewServer(StaticSources(Sources{}, nil), logger.NewNopLogger())

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/posts", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"page":1,"limit":20,"total":0,"posts":[]}`, w.Body.String())
}

func TestServerHealth(t *testing.T) {
	srv := NewServer(func() (Sources, error) { return Sources{}, errors.New("disk gone") }, logger.NewNopLogger())

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Contains(t, body, "uptime_seconds")
}

func TestServerEmptyStoreIsNotAnError(t *testing.T) {
	store, err := storage.NewManager(t.TempDir())
	require.NoError(t, err)

	src, err := StaticSources(Sources{}, store)()
	require.NoError(t, err)
	assert.Empty(t, src.RecordSet)
}

func TestServerLoadFailure(t *testing.T) {
	srv := NewServer(func() (Sources, error) { return Sources{}, errors.New("disk gone") }, logger.NewNopLogger())

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "disk gone")
}

func TestWriteFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "dashboard.html")
	srv := NewServer(StaticSources(sampleSources(t), nil), logger.NewNopLogger())

	require.NoError(t, srv.WriteFile(out))
	content, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(content), "</html>")
}
