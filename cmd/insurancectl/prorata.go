package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/SscSPs/insurance_platform/internal/core/domain"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// transactionInput is one row of a pro-rata input file.
type transactionInput struct {
	Type          domain.QuoteType `yaml:"type"`
	EffectiveDate time.Time        `yaml:"effectiveDate"`
	PeriodStart   time.Time        `yaml:"periodStart"`
	PeriodEnd     time.Time        `yaml:"periodEnd"`
	Calculation   map[string]any   `yaml:"calculation"`
}

func proRataCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "prorata <file>",
		Short: "Compute the payable premium for a list of policy transactions",
		Long: "Reads a YAML or JSON list of transactions in completion order. Each entry carries " +
			"type, effectiveDate, periodStart, periodEnd and the calculation document.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			txs, err := parseTransactions(raw)
			if err != nil {
				return err
			}
			result, err := domain.ProRataCalculator{}.Payable(txs)
			if err != nil {
				return err
			}
			return printProRata(cmd.OutOrStdout(), result, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	return cmd
}

// parseTransactions accepts YAML, which also covers JSON input.
func parseTransactions(raw []byte) ([]domain.PolicyTransaction, error) {
	var rows []transactionInput
	if err := yaml.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("parse transactions: %w", err)
	}

	txs := make([]domain.PolicyTransaction, 0, len(rows))
	for i, row := range rows {
		if !row.Type.IsValid() {
			return nil, fmt.Errorf("transaction %d: unknown type %q", i+1, row.Type)
		}
		doc, err := json.Marshal(row.Calculation)
		if err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i+1, err)
		}
		calc, err := domain.NewCalculationResult(fmt.Sprintf("calc-%d", i+1), "", doc, row.EffectiveDate)
		if err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i+1, err)
		}
		txs = append(txs, domain.PolicyTransaction{
			PolicyTransactionID:    fmt.Sprintf("tx-%d", i+1),
			Type:                   row.Type,
			EffectiveDate:          row.EffectiveDate,
			PeriodStart:            row.PeriodStart,
			PeriodEnd:              row.PeriodEnd,
			CreatedTicksSinceEpoch: int64(i + 1),
			CalculationResult:      calc,
		})
	}
	return txs, nil
}

func printProRata(w io.Writer, result domain.ProRataResult, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	for _, name := range domain.SortedRiskNames(result.Risks) {
		fmt.Fprintf(w, "%-10s %s\n", name, result.Risks[name].StringFixed(2))
	}
	fmt.Fprintf(w, "%-10s %s\n", "total", result.Total.StringFixed(2))
	return nil
}
