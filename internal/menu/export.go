package menu

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/menudash/menudash/internal/warehouse"
)

var exportHeader = []string{
	colName, colCategory, colSubcategory, colCost, colPrice, colProfit, colMargin,
}

// ExportCSV serializes items as UTF-8 CSV with a header row. Floats are
// written at full precision so a parse round-trips exactly.
func ExportCSV(items []Item) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	writer := csv.NewWriter(buf)

	if err := writer.Write(exportHeader); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, item := range items {
		record := []string{
			item.Name,
			item.Category,
			item.Subcategory,
			formatFloat(item.Cost),
			formatFloat(item.Price),
			formatFloat(item.Profit),
			formatFloat(item.MarginPercent),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("write csv record: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// ResultSetCSV serializes an arbitrary result set, for ad-hoc query
// downloads.
func ResultSetCSV(result warehouse.ResultSet) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	writer := csv.NewWriter(buf)

	if err := writer.Write(result.Columns); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range result.Rows {
		record := make([]string, len(row))
		for i, value := range row {
			record[i] = formatValue(value)
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("write csv record: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

type parquetItem struct {
	Name          string  `parquet:"menu_item_name"`
	Category      string  `parquet:"item_category"`
	Subcategory   string  `parquet:"item_subcategory"`
	Cost          float64 `parquet:"cost_of_goods_usd"`
	Price         float64 `parquet:"sale_price_usd"`
	Profit        float64 `parquet:"profit"`
	MarginPercent float64 `parquet:"margin_percent"`
}

// ExportParquet serializes items as a single-row-group parquet file.
func ExportParquet(items []Item) ([]byte, error) {
	rows := make([]parquetItem, 0, len(items))
	for _, item := range items {
		rows = append(rows, parquetItem{
			Name:          item.Name,
			Category:      item.Category,
			Subcategory:   item.Subcategory,
			Cost:          item.Cost,
			Price:         item.Price,
			Profit:        item.Profit,
			MarginPercent: item.MarginPercent,
		})
	}

	buf := bytes.NewBuffer(nil)
	writer := parquet.NewGenericWriter[parquetItem](buf)
	if len(rows) > 0 {
		if _, err := writer.Write(rows); err != nil {
			return nil, fmt.Errorf("write parquet rows: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close parquet writer: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportFilename stamps a download name with the current date-time,
// e.g. menu_export_20250115_093000.csv.
func ExportFilename(prefix, extension string, now time.Time) string {
	return fmt.Sprintf("%s_%s.%s", prefix, now.Format("20060102_150405"), extension)
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

func formatValue(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	case []byte:
		return string(typed)
	case float64:
		return formatFloat(typed)
	case float32:
		return strconv.FormatFloat(float64(typed), 'f', -1, 32)
	case int64:
		return strconv.FormatInt(typed, 10)
	case int32:
		return strconv.FormatInt(int64(typed), 10)
	case int:
		return strconv.Itoa(typed)
	case bool:
		return strconv.FormatBool(typed)
	case time.Time:
		return typed.UTC().Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", typed)
	}
}
