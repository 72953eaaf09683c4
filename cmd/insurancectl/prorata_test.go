package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const midTermIncrease = `
- type: NewBusiness
  effectiveDate: 2026-01-01
  periodStart: 2026-01-01
  periodEnd: 2027-01-01
  calculation:
    state: bindingQuote
    risk1: {premium: {basePremium: 1000}}
- type: Adjustment
  effectiveDate: 2026-07-02
  periodStart: 2026-01-01
  periodEnd: 2027-01-01
  calculation:
    state: bindingQuote
    risk1: {premium: {basePremium: 2000}}
`

func TestParseTransactions(t *testing.T) {
	txs, err := parseTransactions([]byte(midTermIncrease))
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, "tx-2", txs[1].PolicyTransactionID)
	assert.Equal(t, int64(2), txs[1].CreatedTicksSinceEpoch)

	_, err = parseTransactions([]byte("- type: Refund\n  calculation: {}\n"))
	assert.ErrorContains(t, err, "unknown type")
}

func TestProRataCommand(t *testing.T) {
	file := filepath.Join(t.TempDir(), "txs.yaml")
	require.NoError(t, os.WriteFile(file, []byte(midTermIncrease), 0o600))

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"prorata", file})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "risk1      501.37")
	assert.Contains(t, out.String(), "total      501.37")
}

func TestWorkflowCheckCommand(t *testing.T) {
	file := filepath.Join(t.TempDir(), "wf.yaml")
	table := "operations:\n  - action: Actualise\n    requiredStates: [Nascent]\n    resultingState: Incomplete\n  - action: Calculation\n"
	require.NoError(t, os.WriteFile(file, []byte(table), 0o600))

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"workflow", "check", file})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "Nascent")
	assert.Contains(t, out.String(), "(unchanged)")

	root.SetArgs([]string{"workflow", "check", filepath.Join(t.TempDir(), "missing.yaml")})
	assert.Error(t, root.Execute())
}
