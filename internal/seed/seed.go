// Package seed generates plausible demo transactions.
package seed

import (
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"fintrack/internal/core"
)

// incomeShare is the percentage of generated rows that are income.
const incomeShare = 20

// Generator draws transactions from a seeded faker so runs are repeatable.
type Generator struct {
	faker *gofakeit.Faker
}

// NewGenerator returns a generator; seed 0 picks a random seed.
func NewGenerator(seed int64) *Generator {
	return &Generator{faker: gofakeit.New(seed)}
}

// Transactions returns n drafts dated within the last months calendar
// months up to now, never after now. Tags come from core.SuggestedTags.
func (g *Generator) Transactions(n, months int, now time.Time) []core.Transaction {
	if months < 1 {
		months = 1
	}
	end := core.DateOf(now).Time
	y, m, _ := end.Date()
	start := time.Date(y, m-time.Month(months-1), 1, 0, 0, 0, 0, time.UTC)

	incomeTags := core.SuggestedTags(core.Income)
	expenseTags := core.SuggestedTags(core.Expense)

	out := make([]core.Transaction, 0, n)
	for i := 0; i < n; i++ {
		tx := core.Transaction{Date: core.DateOf(g.faker.DateRange(start, end))}
		if g.faker.Number(1, 100) <= incomeShare {
			tx.Type = core.Income
			tx.Tag = g.faker.RandomString(incomeTags)
			tx.Name = g.faker.Company()
			tx.Amount = core.MoneyFromFloat(g.faker.Price(200, 4000))
		} else {
			tx.Type = core.Expense
			tx.Tag = g.faker.RandomString(expenseTags)
			tx.Name = g.title()
			tx.Amount = core.MoneyFromFloat(g.faker.Price(1, 400))
		}
		out = append(out, tx)
	}
	return out
}

func (g *Generator) title() string {
	words := strings.Fields(g.faker.Sentence(g.faker.Number(1, 3)))
	s := strings.TrimRight(strings.Join(words, " "), ".")
	if s == "" {
		return g.faker.Word()
	}
	return s
}
