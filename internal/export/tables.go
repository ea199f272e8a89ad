// Package export renders analysis reports as flat tables for BI tools
package export

import (
	"fmt"

	"github.com/PratikMahalle28/DataDrivenStockAnalysis/internal/analytics"
	"github.com/PratikMahalle28/DataDrivenStockAnalysis/internal/models"
)

// Table is one named, flat result set
type Table struct {
	Name    string
	Headers []string
	Rows    [][]string
}

// Table names, also used as file stems and sheet names
const (
	TableRawData     = "raw_stock_data"
	TableKeyMetrics  = "key_metrics"
	TableTopGreen    = "top_green"
	TableTopRed      = "top_red"
	TableVolatility  = "volatility"
	TableSectors     = "sector_performance"
	TableCumulative  = "cumulative_returns"
	TableCorrelation = "correlation"
	TableMonthly     = "monthly_analysis"
	TableSummary     = "summary_report"
)

// BuildTables flattens a report and its source table. The order is stable.
func BuildTables(report *analytics.Report, prices *analytics.PriceTable) []Table {
	return []Table{
		rawData(prices),
		keyMetrics(report),
		yearly(TableTopGreen, report.TopGainers),
		yearly(TableTopRed, report.TopLosers),
		volatility(report),
		sectors(report),
		cumulative(report),
		correlation(report),
		monthly(report),
		summary(report),
	}
}

func rawData(prices *analytics.PriceTable) Table {
	t := Table{Name: TableRawData, Headers: []string{"Symbol", "Date", "Open", "High", "Low", "Close", "Volume"}}
	for _, r := range prices.Records() {
		t.Rows = append(t.Rows, []string{
			r.Symbol,
			r.Date.Format("2006-01-02"),
			formatNullDecimal(r.Open),
			formatNullDecimal(r.High),
			formatNullDecimal(r.Low),
			r.Close.String(),
			formatInt(r.Volume),
		})
	}
	return t
}

func keyMetrics(report *analytics.Report) Table {
	s := report.Summary
	return Table{
		Name:    TableKeyMetrics,
		Headers: []string{"total_stocks", "green_stocks", "red_stocks", "avg_close_price", "avg_volume", "avg_yearly_return"},
		Rows: [][]string{{
			formatInt(int64(s.TotalSymbols)),
			formatInt(int64(s.Gainers)),
			formatInt(int64(s.Losers)),
			formatFloat(s.AvgClose),
			formatFloat(s.AvgVolume),
			formatFloat(s.AvgYearlyReturn),
		}},
	}
}

func yearly(name string, returns []models.YearlyReturn) Table {
	t := Table{Name: name, Headers: []string{"Symbol", "First_Close", "Last_Close", "Yearly_Return"}}
	for _, r := range returns {
		t.Rows = append(t.Rows, []string{r.Symbol, formatFloat(r.FirstClose), formatFloat(r.LastClose), formatFloat(r.ReturnPct)})
	}
	return t
}

func volatility(report *analytics.Report) Table {
	t := Table{Name: TableVolatility, Headers: []string{"Symbol", "Volatility", "Observations"}}
	for _, v := range report.Volatility {
		t.Rows = append(t.Rows, []string{v.Symbol, formatFloat(v.VolatilityPct), formatInt(int64(v.Observations))})
	}
	return t
}

func sectors(report *analytics.Report) Table {
	t := Table{Name: TableSectors, Headers: []string{"Sector", "Yearly_Return", "Symbols"}}
	for _, s := range report.Sectors.Sectors {
		t.Rows = append(t.Rows, []string{s.Sector, formatFloat(s.MeanReturnPct), formatInt(int64(s.Symbols))})
	}
	return t
}

func cumulative(report *analytics.Report) Table {
	c := report.Cumulative
	t := Table{Name: TableCumulative, Headers: append([]string{"Date"}, c.Symbols...)}
	for i, d := range c.Dates {
		row := []string{d.Format("2006-01-02")}
		for _, v := range c.Values[i] {
			row = append(row, formatOptional(v, 4))
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func correlation(report *analytics.Report) Table {
	m := report.Correlation
	t := Table{Name: TableCorrelation, Headers: append([]string{"Symbol"}, m.Symbols...)}
	for i, sym := range m.Symbols {
		row := []string{sym}
		for _, v := range m.Values[i] {
			row = append(row, formatOptional(v, 2))
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func monthly(report *analytics.Report) Table {
	t := Table{Name: TableMonthly, Headers: []string{"Month", "Type", "Rank", "Symbol", "Monthly_Return"}}
	for _, month := range analytics.SortedMonths(report.Monthly, true) {
		movers := report.Monthly[month]
		for i, r := range movers.Gainers {
			t.Rows = append(t.Rows, []string{month, "Gainers", formatInt(int64(i + 1)), r.Symbol, formatFloat(r.ReturnPct)})
		}
		for i, r := range movers.Losers {
			t.Rows = append(t.Rows, []string{month, "Losers", formatInt(int64(i + 1)), r.Symbol, formatFloat(r.ReturnPct)})
		}
	}
	return t
}

func summary(report *analytics.Report) Table {
	s := report.Summary
	return Table{
		Name:    TableSummary,
		Headers: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Total Stocks", formatInt(int64(s.TotalSymbols))},
			{"Green Stocks", formatInt(int64(s.Gainers))},
			{"Red Stocks", formatInt(int64(s.Losers))},
			{"Avg Close", fmt.Sprintf("%.0f", s.AvgClose)},
			{"Avg Volume", fmt.Sprintf("%.0f", s.AvgVolume)},
			{"Avg Return %", fmt.Sprintf("%.1f%%", s.AvgYearlyReturn)},
			{"Sector Status", string(report.Sectors.Status)},
			{"Run ID", report.RunID},
		},
	}
}
