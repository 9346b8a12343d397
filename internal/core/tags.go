package core

var (
	incomeTags  = []string{"Salary", "Freelance", "Investment", "Gift", "Other", "PocketMoney"}
	expenseTags = []string{"Food", "Shopping", "Housing", "Transportation", "Entertainment", "Utilities", "Healthcare", "Education", "Other"}
)

// SuggestedTags returns the recommended categories for a type. Tags stay
// free-form; these only seed pickers and demo data.
func SuggestedTags(t TxType) []string {
	var src []string
	switch t {
	case Income:
		src = incomeTags
	case Expense:
		src = expenseTags
	default:
		return []string{}
	}
	out := make([]string, len(src))
	copy(out, src)
	return out
}
