// Package main is the stockanalysis CLI
//
// Usage:
//
//	go run ./cmd/stockanalysis analyze
//	go run ./cmd/stockanalysis serve
package main

import (
	"os"

	"github.com/PratikMahalle28/DataDrivenStockAnalysis/cmd/stockanalysis/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
