// Package dashboard renders precomputed analytics tables (sentiment,
// emotion, clusters) and the daily volume of the latest record set as an
// HTML page.
package dashboard

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"tweetsync/pkg/storage"
)

// EmotionScore is one row of the emotion table
type EmotionScore struct {
	TextID  string
	Emotion string
	Score   float64
}

// ClusterRow is one row of the cluster table
type ClusterRow struct {
	Cluster string
	Content string
}

// Bucket is a labelled count: posts per UTC day, rows per cluster
type Bucket struct {
	Label string
	Count int
}

// Sources names the files the dashboard reads. Empty paths are skipped.
type Sources struct {
	SentimentFile string
	EmotionFile   string
	ClusterFile   string
	// RecordSet feeds the volume chart; usually storage.Manager.Latest.
	RecordSet string
}

// Data is everything a page shows
type Data struct {
	Sentiment map[string]int
	Emotions  []EmotionScore
	Clusters  []ClusterRow
	Volume    []Bucket
}

// Load reads every configured source
func Load(src Sources) (*Data, error) {
	data := &Data{Sentiment: map[string]int{}}
	var err error

	if src.SentimentFile != "" {
		if data.Sentiment, err = LoadSentiment(src.SentimentFile); err != nil {
			return nil, err
		}
	}
	if src.EmotionFile != "" {
		if data.Emotions, err = LoadEmotions(src.EmotionFile); err != nil {
			return nil, err
		}
	}
	if src.ClusterFile != "" {
		if data.Clusters, err = LoadClusters(src.ClusterFile); err != nil {
			return nil, err
		}
	}
	if src.RecordSet != "" {
		rows, _, err := storage.ReadRows(src.RecordSet)
		if err != nil {
			return nil, err
		}
		counts := make(map[string]int)
		for _, r := range rows {
			counts[r.Timestamp.UTC().Format("2006-01-02")]++
		}
		for day, n := range counts {
			data.Volume = append(data.Volume, Bucket{Label: day, Count: n})
		}
		sort.Slice(data.Volume, func(i, j int) bool { return data.Volume[i].Label < data.Volume[j].Label })
	}

	return data, nil
}

// table is a CSV file indexed by header name
type table struct {
	columns map[string]int
	records [][]string
}

func readTable(path string, required ...string) (*table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := storage.NewCSVReader(f)
	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%s is empty", path)
	}
	if err != nil {
		return nil, fmt.Errorf("read header of %s: %w", path, err)
	}

	t := &table{columns: make(map[string]int, len(header))}
	for i, name := range header {
		t.columns[strings.TrimSpace(name)] = i
	}
	for _, col := range required {
		if _, ok := t.columns[col]; !ok {
			return nil, fmt.Errorf("%s has no %q column", path, col)
		}
	}

	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			continue
		}
		t.records = append(t.records, rec)
	}
	return t, nil
}

func (t *table) get(rec []string, col string) string {
	i, ok := t.columns[col]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

// LoadSentiment counts rows per value of the Sentiment column
func LoadSentiment(path string) (map[string]int, error) {
	t, err := readTable(path, "Sentiment")
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, rec := range t.records {
		if label := t.get(rec, "Sentiment"); label != "" {
			counts[label]++
		}
	}
	return counts, nil
}

// LoadEmotions reads TextID, Emotion and Score. Rows with an unparsable
// score are skipped.
func LoadEmotions(path string) ([]EmotionScore, error) {
	t, err := readTable(path, "TextID", "Emotion", "Score")
	if err != nil {
		return nil, err
	}
	var scores []EmotionScore
	for _, rec := range t.records {
		score, err := strconv.ParseFloat(t.get(rec, "Score"), 64)
		if err != nil {
			continue
		}
		scores = append(scores, EmotionScore{
			TextID:  t.get(rec, "TextID"),
			Emotion: t.get(rec, "Emotion"),
			Score:   score,
		})
	}
	return scores, nil
}

// LoadClusters reads the Cluster column and, when present, Content
func LoadClusters(path string) ([]ClusterRow, error) {
	t, err := readTable(path, "Cluster")
	if err != nil {
		return nil, err
	}
	var rows []ClusterRow
	for _, rec := range t.records {
		id := t.get(rec, "Cluster")
		if id == "" {
			continue
		}
		rows = append(rows, ClusterRow{Cluster: id, Content: t.get(rec, "Content")})
	}
	return rows, nil
}

// ClusterSizes returns cluster ids with their sizes, largest first. Equal
// sizes are ordered by id.
func ClusterSizes(rows []ClusterRow) []Bucket {
	counts := make(map[string]int)
	for _, r := range rows {
		counts[r.Cluster]++
	}
	sizes := make([]Bucket, 0, len(counts))
	for id, n := range counts {
		sizes = append(sizes, Bucket{Label: id, Count: n})
	}
	sort.Slice(sizes, func(i, j int) bool {
		if sizes[i].Count != sizes[j].Count {
			return sizes[i].Count > sizes[j].Count
		}
		return lessID(sizes[i].Label, sizes[j].Label)
	})
	return sizes
}

// DensestCluster is the largest cluster and its rows
func DensestCluster(rows []ClusterRow) (id string, members []ClusterRow) {
	sizes := ClusterSizes(rows)
	if len(sizes) == 0 {
		return "", nil
	}
	id = sizes[0].Label
	for _, r := range rows {
		if r.Cluster == id {
			members = append(members, r)
		}
	}
	return id, members
}

// lessID orders numeric ids numerically and everything else as text
func lessID(a, b string) bool {
	x, errA := strconv.Atoi(a)
	y, errB := strconv.Atoi(b)
	if errA == nil && errB == nil {
		return x < y
	}
	return a < b
}
