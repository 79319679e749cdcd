package menu

import "sort"

// CategoryCount backs the category distribution pie chart.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// CategoryDistribution counts items per category, largest first with
// name as tie-breaker.
func CategoryDistribution(items []Item) []CategoryCount {
	counts := map[string]int{}
	for _, item := range items {
		counts[item.Category]++
	}
	distribution := make([]CategoryCount, 0, len(counts))
	for category, count := range counts {
		distribution = append(distribution, CategoryCount{Category: category, Count: count})
	}
	sort.Slice(distribution, func(i, j int) bool {
		if distribution[i].Count != distribution[j].Count {
			return distribution[i].Count > distribution[j].Count
		}
		return distribution[i].Category < distribution[j].Category
	})
	return distribution
}

// TopByMargin returns up to n items with the highest margin percent,
// descending.
func TopByMargin(items []Item, n int) []Item {
	if n <= 0 {
		return nil
	}
	sorted := make([]Item, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].MarginPercent > sorted[j].MarginPercent
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// ScatterPoint backs the cost-vs-price chart; profit sizes the marker.
type ScatterPoint struct {
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Cost     float64 `json:"cost_of_goods_usd"`
	Price    float64 `json:"sale_price_usd"`
	Profit   float64 `json:"profit"`
}

func CostPricePoints(items []Item) []ScatterPoint {
	points := make([]ScatterPoint, 0, len(items))
	for _, item := range items {
		points = append(points, ScatterPoint{
			Name:     item.Name,
			Category: item.Category,
			Cost:     item.Cost,
			Price:    item.Price,
			Profit:   item.Profit,
		})
	}
	return points
}

// PriceBox is the five-number summary of sale prices in one category,
// for box plots.
type PriceBox struct {
	Category string  `json:"category"`
	Min      float64 `json:"min"`
	Q1       float64 `json:"q1"`
	Median   float64 `json:"median"`
	Q3       float64 `json:"q3"`
	Max      float64 `json:"max"`
}

// PriceDistribution computes a PriceBox per category, sorted by
// category name. Quartiles use linear interpolation between ranks.
func PriceDistribution(items []Item) []PriceBox {
	grouped := map[string][]float64{}
	for _, item := range items {
		grouped[item.Category] = append(grouped[item.Category], item.Price)
	}

	boxes := make([]PriceBox, 0, len(grouped))
	for category, prices := range grouped {
		sort.Float64s(prices)
		boxes = append(boxes, PriceBox{
			Category: category,
			Min:      prices[0],
			Q1:       quantile(prices, 0.25),
			Median:   quantile(prices, 0.5),
			Q3:       quantile(prices, 0.75),
			Max:      prices[len(prices)-1],
		})
	}
	sort.Slice(boxes, func(i, j int) bool { return boxes[i].Category < boxes[j].Category })
	return boxes
}

func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	position := q * float64(len(sorted)-1)
	lower := int(position)
	upper := lower + 1
	if upper >= len(sorted) {
		return sorted[lower]
	}
	fraction := position - float64(lower)
	return sorted[lower]*(1-fraction) + sorted[upper]*fraction
}
