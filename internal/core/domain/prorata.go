package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProRataResult is the premium a transaction adds to (or refunds from) a policy, per risk.
type ProRataResult struct {
	Risks map[string]decimal.Decimal `json:"risks"`
	Total decimal.Decimal            `json:"total"`
}

// ProRataCalculator computes payable premium across a policy's transaction history.
type ProRataCalculator struct{}

type proRataEntry struct {
	effective   time.Time
	periodStart time.Time
	periodEnd   time.Time
	premium     decimal.Decimal
}

// Payable computes what the newest transaction in txs adds on top of the transactions before it.
// txs must be ordered by CreatedTicksSinceEpoch.
func (ProRataCalculator) Payable(txs []PolicyTransaction) (ProRataResult, error) {
	result := ProRataResult{Risks: map[string]decimal.Decimal{}, Total: decimal.Zero}
	if len(txs) == 0 {
		return result, nil
	}

	premiums := make([]map[string]decimal.Decimal, len(txs))
	riskNames := map[string]decimal.Decimal{}
	for i, tx := range txs {
		if tx.CalculationResult == nil {
			premiums[i] = map[string]decimal.Decimal{}
			continue
		}
		p, err := tx.CalculationResult.RiskBasePremiums()
		if err != nil {
			return ProRataResult{}, err
		}
		premiums[i] = p
		for name := range p {
			riskNames[name] = decimal.Zero
		}
	}

	newest := txs[len(txs)-1]
	for _, risk := range SortedRiskNames(riskNames) {
		entries := make([]proRataEntry, len(txs))
		for i, tx := range txs {
			premium := premiums[i][risk]
			if tx.Type == QuoteTypeCancellation {
				premium = decimal.Zero
			}
			entries[i] = proRataEntry{
				effective:   tx.EffectiveDate,
				periodStart: tx.PeriodStart,
				periodEnd:   tx.PeriodEnd,
				premium:     premium,
			}
		}
		all := charged(entries, newest.EffectiveDate, newest.PeriodEnd)
		older := charged(entries[:len(entries)-1], newest.EffectiveDate, newest.PeriodEnd)
		payable := all.Sub(older).RoundBank(2)
		result.Risks[risk] = payable
		result.Total = result.Total.Add(payable)
	}
	return result, nil
}

// charged is the premium the transactions collectively charge for [from, to).
// The newest transaction covers the part of the interval from its effective date up to
// its period end; older ones only cover what lies before the newer effective date.
func charged(entries []proRataEntry, from, to time.Time) decimal.Decimal {
	if len(entries) == 0 || !from.Before(to) {
		return decimal.Zero
	}
	last := entries[len(entries)-1]

	start := latest(last.effective, from)
	end := earliest(to, last.periodEnd)
	portion := decimal.Zero
	if start.Before(end) {
		portion = proRate(last, start, end)
	}
	return portion.Add(charged(entries[:len(entries)-1], from, earliest(to, last.effective)))
}

func proRate(e proRataEntry, start, end time.Time) decimal.Decimal {
	period := seconds(e.periodStart, e.periodEnd)
	if period.IsZero() {
		return decimal.Zero
	}
	return e.premium.Mul(seconds(start, end)).Div(period)
}

func seconds(from, to time.Time) decimal.Decimal {
	if !from.Before(to) {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(to.Sub(from) / time.Second))
}

func latest(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func earliest(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
