// Package engine aligns date-keyed tables and computes the pairwise statistics
// drawn on a correlation chart.
//
// The three operations are pure and deterministic:
//
//	merged, err := engine.Align(engine.AlignSpec{Key: "Date"},
//	    engine.Input{Table: stock, Columns: []string{"Close"}, Label: "TCS"},
//	    engine.Input{Table: iip, Columns: []string{"Mining"}, Label: "industry"},
//	)
//	corr, err := engine.Correlation(merged, "Close", "Mining")
//	trend, err := engine.FitTrend(merged, "Close", "Mining")
//
// Align returns an empty table when the inputs share no dates; Correlation
// reports an undefined coefficient instead of failing; FitTrend fails with
// ErrInsufficientData when fewer than two complete pairs exist.
package engine
