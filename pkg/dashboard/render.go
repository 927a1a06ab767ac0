package dashboard

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
)

// maxSampleRows caps the densest-cluster table
const maxSampleRows = 50

var sentimentColors = []string{"#00cc96", "#ff6361", "#ffa600"}

var clusterTable = template.Must(template.New("cluster").Parse(`
<section style="max-width:900px;margin:24px auto;font-family:sans-serif">
  <h3>Densest cluster: {{.ID}} ({{.Size}} posts)</h3>
  <table style="border-collapse:collapse;width:100%">
    <thead><tr><th style="text-align:left;border-bottom:1px solid #ccc">Cluster</th><th style="text-align:left;border-bottom:1px solid #ccc">Content</th></tr></thead>
    <tbody>{{range .Rows}}<tr><td style="padding:4px 8px">{{.Cluster}}</td><td style="padding:4px 8px">{{.Content}}</td></tr>{{end}}</tbody>
  </table>
</section>
`))

// Render writes the whole dashboard as one HTML document
func (d *Data) Render(w io.Writer) error {
	page := components.NewPage()
	page.PageTitle = "tweetsync analytics"

	if len(d.Sentiment) > 0 {
		page.AddCharts(sentimentPie(d.Sentiment))
	}
	if len(d.Emotions) > 0 {
		page.AddCharts(emotionHeatMap(d.Emotions))
	}
	if len(d.Clusters) > 0 {
		page.AddCharts(clusterBar(d.Clusters))
	}
	if len(d.Volume) > 0 {
		page.AddCharts(volumeBar(d.Volume))
	}

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return fmt.Errorf("render charts: %w", err)
	}

	out := buf.Bytes()
	if len(d.Clusters) > 0 {
		var table bytes.Buffer
		id, members := DensestCluster(d.Clusters)
		sample := members
		if len(sample) > maxSampleRows {
			sample = sample[:maxSampleRows]
		}
		err := clusterTable.Execute(&table, struct {
			ID   string
			Size int
			Rows []ClusterRow
		}{id, len(members), sample})
		if err != nil {
			return fmt.Errorf("render cluster table: %w", err)
		}
		out = insertBeforeBodyEnd(out, table.Bytes())
	}

	_, err := w.Write(out)
	return err
}

func insertBeforeBodyEnd(doc, fragment []byte) []byte {
	i := bytes.LastIndex(doc, []byte("</body>"))
	if i < 0 {
		return append(doc, fragment...)
	}
	out := make([]byte, 0, len(doc)+len(fragment))
	out = append(out, doc[:i]...)
	out = append(out, fragment...)
	return append(out, doc[i:]...)
}

func sentimentPie(counts map[string]int) *charts.Pie {
	labels := make([]string, 0, len(counts))
	for label := range counts {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		if counts[labels[i]] != counts[labels[j]] {
			return counts[labels[i]] > counts[labels[j]]
		}
		return labels[i] < labels[j]
	})

	items := make([]opts.PieData, 0, len(labels))
	for _, label := range labels {
		items = append(items, opts.PieData{Name: label, Value: counts[label]})
	}

	pie := charts.NewPie()
	pie.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Theme: types.ThemeWesteros}),
		charts.WithTitleOpts(opts.Title{Title: "Sentiment"}),
		charts.WithColorsOpts(opts.Colors(sentimentColors)),
	)
	pie.AddSeries("Sentiment", items).SetSeriesOptions(
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Formatter: "{b}: {d}%"}),
	)
	return pie
}

// emotionHeatMap pivots TextID x Emotion, averaging duplicates and
// leaving missing cells at zero
func emotionHeatMap(scores []EmotionScore) *charts.HeatMap {
	var ids, emotions []string
	idIndex := map[string]int{}
	emotionIndex := map[string]int{}
	for _, s := range scores {
		if _, ok := idIndex[s.TextID]; !ok {
			idIndex[s.TextID] = len(ids)
			ids = append(ids, s.TextID)
		}
		if _, ok := emotionIndex[s.Emotion]; !ok {
			emotionIndex[s.Emotion] = len(emotions)
			emotions = append(emotions, s.Emotion)
		}
	}

	type cell struct{ x, y int }
	sums := map[cell]float64{}
	hits := map[cell]int{}
	for _, s := range scores {
		c := cell{emotionIndex[s.Emotion], idIndex[s.TextID]}
		sums[c] += s.Score
		hits[c]++
	}

	maxScore := 0.0
	var items []opts.HeatMapData
	for y := range ids {
		for x := range emotions {
			v := 0.0
			if n := hits[cell{x, y}]; n > 0 {
				v = sums[cell{x, y}] / float64(n)
			}
			if v > maxScore {
				maxScore = v
			}
			items = append(items, opts.HeatMapData{Value: [3]interface{}{x, y, v}})
		}
	}
	if maxScore == 0 {
		maxScore = 1
	}

	hm := charts.NewHeatMap()
	hm.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Emotion scores"}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", Data: emotions}),
		charts.WithYAxisOpts(opts.YAxis{Type: "category", Data: ids}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(maxScore),
			InRange:    &opts.VisualMapInRange{Color: []string{"#ffffd9", "#41b6c4", "#081d58"}},
		}),
	)
	hm.AddSeries("Score", items)
	return hm
}

func clusterBar(rows []ClusterRow) *charts.Bar {
	sizes := ClusterSizes(rows)
	return bucketBar(fmt.Sprintf("Cluster sizes (densest: %s)", sizes[0].Label), "Posts", sizes)
}

func volumeBar(days []Bucket) *charts.Bar {
	return bucketBar("Posts per day", "Posts", days)
}

func bucketBar(title, series string, buckets []Bucket) *charts.Bar {
	labels := make([]string, 0, len(buckets))
	values := make([]opts.BarData, 0, len(buckets))
	for _, b := range buckets {
		labels = append(labels, b.Label)
		values = append(values, opts.BarData{Value: b.Count})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(charts.WithTitleOpts(opts.Title{Title: title}))
	bar.SetXAxis(labels).AddSeries(series, values)
	return bar
}
