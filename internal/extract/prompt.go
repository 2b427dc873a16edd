package extract

import (
	"strings"
	"time"

	"github.com/dvloznov/ledger-bot/internal/catalog"
	"github.com/dvloznov/ledger-bot/internal/domain"
)

// BuildPrompt renders the fixed extraction instructions for one message.
// The full concept catalog is listed as the allowed values so the model picks
// known labels when it can.
func BuildPrompt(cat *catalog.Catalog, message string, today time.Time, withImage bool) string {
	var b strings.Builder

	b.WriteString("You extract one household financial transaction from a message written in Spanish.\n")
	if withImage {
		b.WriteString("A photo of a receipt is attached; read the total amount paid and what it was for from it.\n")
	}
	b.WriteString("\nReturn STRICT JSON only: a single object, no comments, no Markdown, no code fences.\n")
	b.WriteString("The object has these fields:\n")
	b.WriteString("- \"type\": \"" + domain.LabelIncome + "\" for money received or \"" + domain.LabelExpense + "\" for money spent\n")
	b.WriteString("- \"amount\": number greater than zero, using \".\" as decimal separator\n")
	b.WriteString("- \"concept\": string, one of the concepts listed below for that type\n")
	b.WriteString("- \"category\": \"" + domain.LabelFixed + "\" for recurring charges or income, otherwise \"" + domain.LabelVariable + "\"\n")
	b.WriteString("- \"date\": string \"YYYY-MM-DD\"\n\n")

	b.WriteString("Income concepts (" + domain.LabelIncome + "):\n")
	for _, c := range cat.Concepts(domain.Income) {
		b.WriteString("  - " + c + "\n")
	}
	b.WriteString("\nExpense concepts (" + domain.LabelExpense + "):\n")
	for _, c := range cat.Concepts(domain.Expense) {
		b.WriteString("  - " + c + "\n")
	}

	b.WriteString("\nRules:\n")
	b.WriteString("1. If no concept fits, write a short concept in uppercase Spanish describing the transaction.\n")
	b.WriteString("2. Today is " + today.Format("2006-01-02") + " (" + today.Weekday().String() + "). ")
	b.WriteString("Resolve relative dates such as \"ayer\", \"anteayer\" or \"el lunes\" against today; if no date is mentioned use today.\n")
	b.WriteString("3. If the message does not contain a valid amount greater than zero, return only {\"error\": \"<short reason in Spanish>\"}.\n")
	b.WriteString("4. Output must begin with \"{\" and end with \"}\".\n")

	b.WriteString("\nMessage:\n")
	b.WriteString(message)
	b.WriteString("\n")

	return b.String()
}
