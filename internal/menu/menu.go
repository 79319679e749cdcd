// Package menu turns warehouse result sets into the dashboard's domain
// model: menu items, filters, aggregates, and chart groupings.
package menu

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/menudash/menudash/internal/warehouse"
)

// Item is one menu row. Profit and MarginPercent are taken from the
// result set when present and derived from cost/price otherwise.
type Item struct {
	Name          string  `json:"menu_item_name"`
	Category      string  `json:"item_category"`
	Subcategory   string  `json:"item_subcategory"`
	Cost          float64 `json:"cost_of_goods_usd"`
	Price         float64 `json:"sale_price_usd"`
	Profit        float64 `json:"profit"`
	MarginPercent float64 `json:"margin_percent"`
}

// Column names of the canned menu query.
const (
	colName        = "MENU_ITEM_NAME"
	colCategory    = "ITEM_CATEGORY"
	colSubcategory = "ITEM_SUBCATEGORY"
	colCost        = "COST_OF_GOODS_USD"
	colPrice       = "SALE_PRICE_USD"
	colProfit      = "PROFIT"
	colMargin      = "MARGIN_PERCENT"
)

// FromResultSet maps a result set onto items by column name,
// case-insensitively. Name, category, and price columns are required;
// the rest default or derive.
func FromResultSet(result warehouse.ResultSet) ([]Item, error) {
	index := map[string]int{}
	for i, column := range result.Columns {
		index[strings.ToUpper(strings.TrimSpace(column))] = i
	}
	for _, required := range []string{colName, colCategory, colPrice} {
		if _, ok := index[required]; !ok {
			return nil, fmt.Errorf("result set is missing column %s", required)
		}
	}

	items := make([]Item, 0, len(result.Rows))
	for rowNum, row := range result.Rows {
		item := Item{
			Name:        stringAt(row, index, colName),
			Category:    stringAt(row, index, colCategory),
			Subcategory: stringAt(row, index, colSubcategory),
		}
		var err error
		if item.Cost, err = floatAt(row, index, colCost); err != nil {
			return nil, fmt.Errorf("row %d: %w", rowNum, err)
		}
		if item.Price, err = floatAt(row, index, colPrice); err != nil {
			return nil, fmt.Errorf("row %d: %w", rowNum, err)
		}
		if item.Profit, err = floatAt(row, index, colProfit); err != nil {
			return nil, fmt.Errorf("row %d: %w", rowNum, err)
		}
		if item.MarginPercent, err = floatAt(row, index, colMargin); err != nil {
			return nil, fmt.Errorf("row %d: %w", rowNum, err)
		}
		if _, ok := index[colProfit]; !ok {
			item.Profit = item.Price - item.Cost
		}
		if _, ok := index[colMargin]; !ok && item.Price != 0 {
			item.MarginPercent = (item.Price - item.Cost) / item.Price * 100
		}
		items = append(items, item)
	}
	return items, nil
}

// Filter is the explorer's predicate tuple. The three conditions are
// combined with logical AND. A nil membership slice leaves that
// dimension unconstrained; an empty non-nil slice selects nothing.
type Filter struct {
	Categories    []string
	Subcategories []string
	PriceMin      *float64
	PriceMax      *float64
}

func (f Filter) Matches(item Item) bool {
	if f.Categories != nil && !contains(f.Categories, item.Category) {
		return false
	}
	if f.Subcategories != nil && !contains(f.Subcategories, item.Subcategory) {
		return false
	}
	if f.PriceMin != nil && item.Price < *f.PriceMin {
		return false
	}
	if f.PriceMax != nil && item.Price > *f.PriceMax {
		return false
	}
	return true
}

// Apply returns the subset of items matching the filter, preserving
// order.
func Apply(items []Item, f Filter) []Item {
	filtered := make([]Item, 0, len(items))
	for _, item := range items {
		if f.Matches(item) {
			filtered = append(filtered, item)
		}
	}
	return filtered
}

// Summary holds the descriptive aggregates shown as dashboard KPIs.
// Means are zero for an empty subset.
type Summary struct {
	ItemCount     int     `json:"item_count"`
	TotalPrice    float64 `json:"total_price_usd"`
	TotalProfit   float64 `json:"total_profit_usd"`
	AvgPrice      float64 `json:"avg_price_usd"`
	AvgProfit     float64 `json:"avg_profit_usd"`
	AvgMarginPerc float64 `json:"avg_margin_percent"`
}

func Summarize(items []Item) Summary {
	summary := Summary{ItemCount: len(items)}
	if len(items) == 0 {
		return summary
	}
	var marginSum float64
	for _, item := range items {
		summary.TotalPrice += item.Price
		summary.TotalProfit += item.Profit
		marginSum += item.MarginPercent
	}
	count := float64(len(items))
	summary.AvgPrice = summary.TotalPrice / count
	summary.AvgProfit = summary.TotalProfit / count
	summary.AvgMarginPerc = marginSum / count
	return summary
}

func contains(values []string, candidate string) bool {
	for _, value := range values {
		if value == candidate {
			return true
		}
	}
	return false
}

func stringAt(row []any, index map[string]int, column string) string {
	i, ok := index[column]
	if !ok || i >= len(row) || row[i] == nil {
		return ""
	}
	switch typed := row[i].(type) {
	case string:
		return typed
	case []byte:
		return string(typed)
	default:
		return fmt.Sprintf("%v", typed)
	}
}

func floatAt(row []any, index map[string]int, column string) (float64, error) {
	i, ok := index[column]
	if !ok || i >= len(row) || row[i] == nil {
		return 0, nil
	}
	switch typed := row[i].(type) {
	case float64:
		return typed, nil
	case float32:
		return float64(typed), nil
	case int64:
		return float64(typed), nil
	case int32:
		return float64(typed), nil
	case int:
		return float64(typed), nil
	case string:
		value, err := strconv.ParseFloat(strings.TrimSpace(typed), 64)
		if err != nil {
			return 0, fmt.Errorf("column %s: parse %q: %w", column, typed, err)
		}
		return value, nil
	case []byte:
		value, err := strconv.ParseFloat(strings.TrimSpace(string(typed)), 64)
		if err != nil {
			return 0, fmt.Errorf("column %s: parse %q: %w", column, typed, err)
		}
		return value, nil
	default:
		return 0, fmt.Errorf("column %s: unsupported value type %T", column, row[i])
	}
}
