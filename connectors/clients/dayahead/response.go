package dayahead

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/Sukarth/wastewater-optimization/connectors"
)

// Response mirrors the market API's auction payload.
type Response struct {
	Auctions []struct {
		StartDate   string `json:"start_date"`
		EndDate     string `json:"end_date"`
		UpdatedDate string `json:"updated_date"`
		Values      []struct {
			StartDate string  `json:"start_date"`
			EndDate   string  `json:"end_date"`
			Price     float64 `json:"price"`
		} `json:"values"`
	} `json:"day_ahead_auctions"`
}

// Series flattens the auction payload into chronological price points.
func (r *Response) Series() ([]connectors.PricePoint, error) {
	var points []connectors.PricePoint
	for _, auction := range r.Auctions {
		for _, v := range auction.Values {
			start, err := time.Parse(time.RFC3339, v.StartDate)
			if err != nil {
				return nil, fmt.Errorf("failed to parse time: %w", err)
			}
			end, err := time.Parse(time.RFC3339, v.EndDate)
			if err != nil {
				return nil, fmt.Errorf("failed to parse time: %w", err)
			}
			points = append(points, connectors.PricePoint{
				Start:          start,
				End:            end,
				PriceEURPerMWh: v.Price,
			})
		}
	}
	return points, nil
}

// PriceChartHTML renders the fetched prices as a standalone HTML line chart.
func (r *Response) PriceChartHTML() (string, error) {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Day-Ahead Prices"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Date & Time"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Price (EUR/MWh)"}),
	)

	points, err := r.Series()
	if err != nil {
		return "", err
	}
	var xAxis []string
	var yAxis []opts.LineData
	for _, p := range points {
		xAxis = append(xAxis, p.Start.Format("2006-01-02 15:04"))
		yAxis = append(yAxis, opts.LineData{Value: p.PriceEURPerMWh})
	}

	line.SetXAxis(xAxis).AddSeries("Price", yAxis)

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		return "", fmt.Errorf("failed to render chart: %w", err)
	}
	return buf.String(), nil
}
