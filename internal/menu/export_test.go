package menu

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/parquet-go/parquet-go"

	"github.com/menudash/menudash/internal/warehouse"
)

func TestExportCSVRoundTrip(t *testing.T) {
	items := []Item{
		{Name: "Ice Cream Sandwich", Category: "Dessert", Subcategory: "Cold Option", Cost: 1.5, Price: 6.0, Profit: 4.5, MarginPercent: 75.0},
		{Name: "Lobster Mac & Cheese", Category: "Main", Subcategory: "Warm Option", Cost: 10.0, Price: 15.0, Profit: 5.0, MarginPercent: 33.333333333333336},
	}

	data, err := ExportCSV(items)
	if err != nil {
		t.Fatalf("ExportCSV failed: %v", err)
	}

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("record count = %d, want header + 2 rows", len(records))
	}
	if diff := cmp.Diff(exportHeader, records[0]); diff != "" {
		t.Fatalf("header mismatch (-want +got):\n%s", diff)
	}

	parsed := make([]Item, 0, 2)
	for _, record := range records[1:] {
		item := Item{Name: record[0], Category: record[1], Subcategory: record[2]}
		for i, target := range []*float64{&item.Cost, &item.Price, &item.Profit, &item.MarginPercent} {
			value, err := strconv.ParseFloat(record[3+i], 64)
			if err != nil {
				t.Fatalf("parse %q: %v", record[3+i], err)
			}
			*target = value
		}
		parsed = append(parsed, item)
	}
	if diff := cmp.Diff(items, parsed); diff != "" {
		t.Fatalf("round-trip mismatch (-want +got):\n%s", diff)
	}
}

func TestExportCSVEmpty(t *testing.T) {
	data, err := ExportCSV(nil)
	if err != nil {
		t.Fatalf("ExportCSV failed: %v", err)
	}
	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("record count = %d, want header only", len(records))
	}
}

func TestResultSetCSV(t *testing.T) {
	result := warehouse.ResultSet{
		Columns: []string{"NAME", "COUNT", "PRICE", "ACTIVE", "SEEN_AT", "NOTE"},
		Rows: [][]any{
			{"Pastrami", int64(3), 12.5, true, time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC), nil},
		},
	}
	data, err := ResultSetCSV(result)
	if err != nil {
		t.Fatalf("ResultSetCSV failed: %v", err)
	}
	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	want := []string{"Pastrami", "3", "12.5", "true", "2026-08-24T10:00:00Z", ""}
	if diff := cmp.Diff(want, records[1]); diff != "" {
		t.Fatalf("row mismatch (-want +got):\n%s", diff)
	}
}

func TestExportParquetRoundTrip(t *testing.T) {
	items := []Item{
		{Name: "Lemonade", Category: "Beverage", Subcategory: "Cold Option", Cost: 0.5, Price: 3, Profit: 2.5, MarginPercent: 83.33},
	}
	data, err := ExportParquet(items)
	if err != nil {
		t.Fatalf("ExportParquet failed: %v", err)
	}

	rows, err := parquet.Read[parquetItem](bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("read parquet: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("row count = %d", len(rows))
	}
	if rows[0].Name != "Lemonade" || rows[0].Price != 3 {
		t.Fatalf("row = %+v", rows[0])
	}
}

func TestExportParquetEmpty(t *testing.T) {
	data, err := ExportParquet(nil)
	if err != nil {
		t.Fatalf("ExportParquet failed: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected a valid empty parquet file")
	}
}

func TestExportFilename(t *testing.T) {
	now := time.Date(2026, 8, 24, 9, 30, 0, 0, time.UTC)
	got := ExportFilename("tastybytes_filtrado", "csv", now)
	if got != "tastybytes_filtrado_20260824_093000.csv" {
		t.Fatalf("filename = %q", got)
	}
}
