package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"recipes/internal/domain"
)

func sampleReport() domain.EvalReport {
	return domain.EvalReport{
		K:         5,
		Precision: 0.2,
		Recall:    1,
		MRR:       0.75,
		Coverage:  0.5,
		Sampled:   10,
		TestSize:  20,
		TrainSize: 80,
		Universe:  100,
		BundleID:  "b-1",
		Duration:  1500 * time.Millisecond,
	}
}

func TestChart(t *testing.T) {
	out := Chart(sampleReport(), 20)
	for _, name := range MetricOrder {
		if !strings.Contains(out, name) {
			t.Errorf("expected chart to mention %s:\n%s", name, out)
		}
	}
	if !strings.Contains(out, "0.7500") {
		t.Errorf("expected formatted mrr in chart:\n%s", out)
	}
	if strings.Count(out, "█") != 4+20+15+10 {
		t.Errorf("expected %d bar cells, got %d", 49, strings.Count(out, "█"))
	}
}

func TestChart_ScalesAboveOne(t *testing.T) {
	r := sampleReport()
	r.Coverage = 2
	out := Chart(r, 10)
	// recall 1.0 is half of the 2.0 maximum.
	if strings.Count(out, "█") != 1+5+4+10 {
		t.Errorf("unexpected bar cells %d:\n%s", strings.Count(out, "█"), out)
	}
}

func TestTable(t *testing.T) {
	out := Table(sampleReport())
	if !strings.Contains(out, "sampled 10 of 20") {
		t.Errorf("expected sample accounting in table:\n%s", out)
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, sampleReport()); err != nil {
		t.Fatal(err)
	}
	var decoded struct {
		K       int                `json:"k"`
		Metrics map[string]float64 `json:"metrics"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if decoded.K != 5 || decoded.Metrics[domain.MetricMRR] != 0.75 {
		t.Errorf("unexpected decoded report %+v", decoded)
	}
}

func TestWriteTextfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recipes.prom")
	if err := WriteTextfile(path, sampleReport()); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)
	for _, want := range []string{
		`recipes_eval_metric{bundle="b-1",k="5",metric="mrr"} 0.75`,
		"recipes_eval_sampled_queries 10",
		"recipes_eval_duration_seconds 1.5",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q in textfile:\n%s", want, text)
		}
	}
}
