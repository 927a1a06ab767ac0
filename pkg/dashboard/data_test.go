package dashboard

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadSentiment(t *testing.T) {
	path := writeFile(t, t.TempDir(), "sentiment.csv",
		"\uFEFFText,Sentiment\na,positive\nb,negative\nc,positive\nd,\n")

	counts, err := LoadSentiment(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"positive": 2, "negative": 1}, counts)
}

func TestLoadSentimentRequiresColumn(t *testing.T) {
	path := writeFile(t, t.TempDir(), "sentiment.csv", "Text,Label\na,positive\n")

	_, err := LoadSentiment(path)
	assert.ErrorContains(t, err, `"Sentiment"`)
}

func TestLoadEmptyTable(t *testing.T) {
	path := writeFile(t, t.TempDir(), "empty.csv", "")

	_, err := LoadClusters(path)
	assert.ErrorContains(t, err, "is empty")
}

func TestLoadEmotionsSkipsBadScores(t *testing.T) {
	path := writeFile(t, t.TempDir(), "emotion.csv",
		"TextID,Emotion,Score\n1,joy,0.9\n1,anger,n/a\n2,fear,0.25\n")

	scores, err := LoadEmotions(path)
	require.NoError(t, err)
	assert.Equal(t, []EmotionScore{
		{TextID: "1", Emotion: "joy", Score: 0.9},
		{TextID: "2", Emotion: "fear", Score: 0.25},
	}, scores)
}

func TestClusterSizesAndDensest(t *testing.T) {
	rows := []ClusterRow{
		{Cluster: "10", Content: "a"},
		{Cluster: "2", Content: "b"},
		{Cluster: "2", Content: "c"},
		{Cluster: "10", Content: "d"},
		{Cluster: "7", Content: "e"},
	}

	assert.Equal(t, []Bucket{
		{Label: "2", Count: 2},
		{Label: "10", Count: 2},
		{Label: "7", Count: 1},
	}, ClusterSizes(rows))

	id, members := DensestCluster(rows)
	assert.Equal(t, "2", id)
	assert.Equal(t, []ClusterRow{{Cluster: "2", Content: "b"}, {Cluster: "2", Content: "c"}}, members)
}

func TestDensestClusterEmpty(t *testing.T) {
	id, members := DensestCluster(nil)
	assert.Empty(t, id)
	assert.Nil(t, members)
}

func TestLoadVolumeFromRecordSet(t *testing.T) {
	dir := t.TempDir()
	records := writeFile(t, dir, "tweets.csv", "Name,Timestamp,Content\n"+
		"a,2024-05-02T01:00:00Z,x\n"+
		"b,2024-05-01T23:59:00Z,y\n"+
		"c,2024-05-02T12:00:00Z,z\n"+
		"d,not a time,w\n")

	data, err := Load(Sources{RecordSet: records})
	require.NoError(t, err)
	assert.Equal(t, []Bucket{
		{Label: "2024-05-01", Count: 1},
		{Label: "2024-05-02", Count: 2},
	}, data.Volume)
	assert.Empty(t, data.Sentiment)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(Sources{EmotionFile: filepath.Join(t.TempDir(), "missing.csv")})
	assert.Error(t, err)
}
