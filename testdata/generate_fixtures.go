//go:build ignore

// This program generates sample inputs for cq: an FID peak table and an MS
// identification table, as CSV and as one workbook, plus an analysis file.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/JnliaH/ChromaQuant/internal/xlsx"
)

var fid = [][]string{
	{"RT", "Area"},
	{"1.05", "1523.4"},
	{"1.98", "8841.0"},
	{"3.12", "402.7"},
	{"4.47", "2210.9"},
	{"5.90", "118.3"},
}

var ms = [][]string{
	{"Component RT", "Compound Name", "Formula", "Match Factor"},
	{"1.04", "Methane", "CH4", "91"},
	{"1.97", "Propane", "C3H8", "72"},
	{"2.00", "Propene", "C3H6", "88"},
	{"3.10", "Butane", "C4H10", "85"},
	{"4.49", "Benzene", "C6H6", "93"},
	{"4.52", "Toluene", "C7H8", "64"},
}

const analysis = `name: sample-liquids
version: "1"
tables:
  - id: fid
    csv: fid.csv
  - id: ms
    csv: ms.csv
steps:
  - id: fidms
    action: match
    table: fid
    with: ms
    conditions: [{compare: [RT, Component RT], comparator: equal, tolerance: 0.05}]
    hits: {rule: highest, column: Match Factor}
    output: {sheet: Liquids, start_cell: A1, header: Liquid FID+MS}
  - id: carbon
    action: element_count
    table: fidms
    options: {source: Formula, element: C, column: Carbon Number}
  - id: mw
    action: molecular_weight
    table: fidms
    options: {source: Formula}
  - id: by_carbon
    action: breakdown
    table: fidms
    options: {group_by: Carbon Number, summarize: Area, aggregate: SUMIFS}
    output: {sheet: Breakdown, start_cell: B2}
report: sample_report.xlsx
`

func main() {
	if err := generateCSV("testdata/fid.csv", fid); err != nil {
		fmt.Fprintf(os.Stderr, "Error generating fid.csv: %v\n", err)
		os.Exit(1)
	}
	if err := generateCSV("testdata/ms.csv", ms); err != nil {
		fmt.Fprintf(os.Stderr, "Error generating ms.csv: %v\n", err)
		os.Exit(1)
	}

	wb := &xlsx.Workbook{Sheets: []xlsx.Sheet{{Name: "fid", Rows: fid}, {Name: "ms", Rows: ms}}}
	if err := xlsx.WriteFile(wb, "testdata/sample.xlsx"); err != nil {
		fmt.Fprintf(os.Stderr, "Error generating sample.xlsx: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile("testdata/liquids.yaml", []byte(analysis), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error generating liquids.yaml: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Test fixtures generated successfully.")
}

func generateCSV(path string, rows [][]string) error {
	var b strings.Builder
	for _, row := range rows {
		b.WriteString(strings.Join(row, ","))
		b.WriteString("\n")
	}
	return os.WriteFile(path, []byte(b.String()), 0644)
}
