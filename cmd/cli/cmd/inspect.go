package cmd

import (
	"errors"
	"strconv"

	"github.com/spf13/cobra"

	"solar-pricing/core/matrix"
	"solar-pricing/core/output"
)

// errInvalidMatrix makes the command exit non-zero after the report is printed.
var errInvalidMatrix = errors.New("matrix is not valid")

var showCells bool

var inspectCmd = &cobra.Command{
	Use:   "inspect [matrix-file]",
	Short: "Show the shape, module counts and storage models of a matrix",
	Long: `Load a price matrix and print what it contains.

Without a file argument the configured default path is used, then the most
recently uploaded matrix.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInspect,
}

var validateCmd = &cobra.Command{
	Use:   "validate [matrix-file]",
	Short: "Check whether a matrix is usable for pricing",
	Long: `Validate a price matrix the way an upload does. The command exits
non-zero when any finding is fatal (empty matrix, wrong index, missing
"Ohne Speicher" column, duplicate module counts).`,
	Args: cobra.MaximumNArgs(1),
	RunE: runValidate,
}

func init() {
	inspectCmd.Flags().BoolVar(&showCells, "cells", false, "print the full price grid")

	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(validateCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	loaded, err := loadMatrix(cmd.Context(), args)
	if err != nil {
		return err
	}

	info := loaded.Matrix.GetMatrixInfo()
	cache := loaded.Loader.CacheInfo()
	report := &output.Report{
		Title:    "Price matrix",
		File:     loaded.Input.Label,
		Source:   loaded.Source,
		Matrix:   &info,
		Cache:    &cache,
		Findings: loaded.Findings,
	}
	if showCells {
		report.Table = gridTable(loaded.Matrix)
	}
	return render(cmd, report)
}

func runValidate(cmd *cobra.Command, args []string) error {
	in, err := resolveMatrixInput(cmd.Context(), args)
	if err != nil {
		return err
	}

	loader := newLoader()
	valid, findings := loader.Validate(in.Excel, in.CSV)
	report := &output.Report{
		Title:    "Matrix validation",
		File:     in.Label,
		Valid:    &valid,
		Findings: findings,
	}
	if table, source, _ := loader.Load(in.Excel, in.CSV); table != nil {
		if m, err := matrix.NewPriceMatrix(table); err == nil {
			info := m.GetMatrixInfo()
			report.Matrix = &info
			report.Source = source
		}
	}
	if err := render(cmd, report); err != nil {
		return err
	}
	if !valid {
		return errInvalidMatrix
	}
	return nil
}

// gridTable renders every cell of the matrix, blank where no price is set.
func gridTable(m *matrix.PriceMatrix) *output.Table {
	table := m.Table()
	headers := append([]string{table.IndexName()}, table.Columns()...)
	rows := make([][]string, 0, len(table.ModuleCounts()))
	for i, count := range table.ModuleCounts() {
		row := []string{strconv.Itoa(count)}
		for _, v := range table.Row(i) {
			row = append(row, priceCell(v))
		}
		rows = append(rows, row)
	}
	return &output.Table{Headers: headers, Rows: rows}
}
