// Package aggregate computes totals, category breakdowns and filtered views
// over a flat transaction list. Every function here is pure.
package aggregate

import (
	"fintrack/internal/core"
)

// Summarize computes the totals in a single pass. Anything that is not income
// is counted as an expense; callers validate types at the input boundary.
func Summarize(txs []core.Transaction) core.Summary {
	var s core.Summary
	for _, tx := range txs {
		if tx.Type == core.Income {
			s.TotalIncome = s.TotalIncome.Add(tx.Amount)
			s.IncomeCount++
			continue
		}
		s.TotalExpenses = s.TotalExpenses.Add(tx.Amount)
		s.ExpenseCount++
	}
	s.TotalBalance = s.TotalIncome.Sub(s.TotalExpenses)
	return s
}

// GroupByCategory sums amounts per tag for one type, in order of the tag's
// first appearance. The result is never nil.
func GroupByCategory(txs []core.Transaction, typ core.TxType) []core.CategoryAmount {
	out := []core.CategoryAmount{}
	index := make(map[string]int)
	for _, tx := range txs {
		if !matchesType(tx.Type, typ) {
			continue
		}
		i, ok := index[tx.Tag]
		if !ok {
			i = len(out)
			index[tx.Tag] = i
			out = append(out, core.CategoryAmount{Name: tx.Tag})
		}
		out[i].Amount = out[i].Amount.Add(tx.Amount)
	}
	return out
}

// matchesType mirrors Summarize's bucketing so category totals always add up
// to the matching summary total.
func matchesType(got, want core.TxType) bool {
	if want == core.Income {
		return got == core.Income
	}
	return got != core.Income
}

// Total sums the category amounts.
func Total(cats []core.CategoryAmount) core.Money {
	var m core.Money
	for _, c := range cats {
		m = m.Add(c.Amount)
	}
	return m
}

// InMonth returns the transactions dated in the given calendar month.
func InMonth(txs []core.Transaction, year, month int) []core.Transaction {
	out := []core.Transaction{}
	for _, tx := range txs {
		if tx.Date.Year() == year && tx.Date.Month() == month {
			out = append(out, tx)
		}
	}
	return out
}
