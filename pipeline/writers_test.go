package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aluiziolira/go-scrape-cycling/models"
)

func sampleRows() []models.ResultRow {
	return []models.ResultRow{
		{
			Slug:         "tour-de-france",
			Year:         2021,
			Stage:        1,
			RaceType:     models.RaceTypeStage,
			Tier:         models.TierGrandTour,
			Rank:         models.NumericRank(1),
			Rider:        "Julian Alaphilippe",
			Team:         "Deceuninck - Quick Step",
			Bib:          "31",
			Age:          29,
			UCIPoints:    100,
			Points:       50,
			Time:         "4:39:05",
			BonusSeconds: 10,
			Date:         time.Date(2021, 6, 26, 0, 0, 0, 0, time.UTC),
			Distance:     197.8,
		},
		{
			Slug:     "tour-de-france",
			Year:     2021,
			Stage:    1,
			RaceType: models.RaceTypeStage,
			Tier:     models.TierGrandTour,
			Rank:     models.StatusRank("DNF"),
			Rider:    "Some Rider",
			Team:     "Some Team",
			Date:     time.Date(2021, 6, 26, 0, 0, 0, 0, time.UTC),
		},
	}
}

func TestCSVWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.csv")

	writer, err := NewCSVWriter(path)
	if err != nil {
		t.Fatalf("new csv writer: %v", err)
	}
	if err := writer.Write(sampleRows()); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := writer.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("records = %d, want header + 2 rows", len(records))
	}
	if records[0][0] != "race" || records[0][6] != "rank" {
		t.Fatalf("unexpected header: %v", records[0])
	}
	if records[1][6] != "1" {
		t.Fatalf("winner rank cell = %q, want 1", records[1][6])
	}
	if records[2][6] != "DNF" {
		t.Fatalf("status rank cell = %q, want DNF", records[2][6])
	}
	if records[1][5] != "2021-06-26" {
		t.Fatalf("date cell = %q", records[1][5])
	}
}

func TestJSONWriterEmitsOneLinePerRow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.jsonl")

	writer, err := NewJSONWriter(path)
	if err != nil {
		t.Fatalf("new json writer: %v", err)
	}
	if err := writer.Write(sampleRows()); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(lines))
	}

	var winner map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &winner); err != nil {
		t.Fatalf("unmarshal first line: %v", err)
	}
	if rank, ok := winner["rank"].(float64); !ok || rank != 1 {
		t.Fatalf("winner rank = %v, want number 1", winner["rank"])
	}

	var dnf map[string]any
	if err := json.Unmarshal([]byte(lines[1]), &dnf); err != nil {
		t.Fatalf("unmarshal second line: %v", err)
	}
	if rank, ok := dnf["rank"].(string); !ok || rank != "DNF" {
		t.Fatalf("dnf rank = %v, want string DNF", dnf["rank"])
	}
}

func TestDualWriter(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "results.csv")
	jsonPath := filepath.Join(dir, "results.jsonl")

	writer, err := NewDualWriter(csvPath, jsonPath)
	if err != nil {
		t.Fatalf("new dual writer: %v", err)
	}
	if err := writer.Write(sampleRows()); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := writer.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	for _, path := range []string{csvPath, jsonPath} {
		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("stat %s: %v", path, err)
		}
		if info.Size() == 0 {
			t.Fatalf("%s is empty", path)
		}
	}
}

func TestWriterCreatesMissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "nested", "results.csv")

	writer, err := NewCSVWriter(path)
	if err != nil {
		t.Fatalf("new csv writer: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("stat: %v", err)
	}
}
