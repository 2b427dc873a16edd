// Package catalog holds the per-deployment concept lists and the rule that
// classifies a concept as fixed or variable.
package catalog

import (
	"fmt"
	"os"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/dvloznov/ledger-bot/internal/domain"
	yaml "gopkg.in/yaml.v2"
)

// Catalog is loaded once at startup and is read-only afterwards, so it is safe
// for concurrent use without locking.
type Catalog struct {
	income  []string
	expense []string
	fixed   []string
}

// New builds a catalog from explicit lists. Labels are trimmed and upper-cased.
func New(income, expense, fixed []string) (*Catalog, error) {
	c := &Catalog{}
	var err error
	if c.income, err = normalizeList("income", income); err != nil {
		return nil, err
	}
	if c.expense, err = normalizeList("expense", expense); err != nil {
		return nil, err
	}
	if c.fixed, err = normalizeList("fixed", fixed); err != nil {
		return nil, err
	}
	if len(c.income) == 0 || len(c.expense) == 0 {
		return nil, fmt.Errorf("catalog.New: income and expense lists must not be empty")
	}
	return c, nil
}

// Default returns the household catalog the bot ships with.
func Default() *Catalog {
	c, err := New(defaultIncome, defaultExpense, defaultFixed)
	if err != nil {
		panic(err)
	}
	return c
}

type fileFormat struct {
	Income  []string `yaml:"income"`
	Expense []string `yaml:"expense"`
	Fixed   []string `yaml:"fixed"`
}

// Load reads a catalog YAML file with the keys income, expense and fixed.
// A key that is missing or empty keeps the default list for that key.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog.Load: read %q: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes catalog YAML. See Load.
func Parse(data []byte) (*Catalog, error) {
	var f fileFormat
	if err := yaml.UnmarshalStrict(data, &f); err != nil {
		return nil, fmt.Errorf("catalog.Parse: %w", err)
	}
	if len(f.Income) == 0 {
		f.Income = defaultIncome
	}
	if len(f.Expense) == 0 {
		f.Expense = defaultExpense
	}
	if len(f.Fixed) == 0 {
		f.Fixed = defaultFixed
	}
	return New(f.Income, f.Expense, f.Fixed)
}

// MaxLabelBytes is the longest label a catalog accepts. Labels travel as
// Telegram callback_data, which is capped at 64 bytes.
const MaxLabelBytes = 64

func normalizeList(name string, in []string) ([]string, error) {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, raw := range in {
		label := Normalize(raw)
		if label == "" {
			return nil, fmt.Errorf("catalog: empty label in %s list", name)
		}
		if len(label) > MaxLabelBytes {
			return nil, fmt.Errorf("catalog: label %q in %s list is longer than %d bytes", label, name, MaxLabelBytes)
		}
		if seen[label] {
			return nil, fmt.Errorf("catalog: duplicate label %q in %s list", label, name)
		}
		seen[label] = true
		out = append(out, label)
	}
	return out, nil
}

// Normalize upper-cases and trims a label for comparison.
func Normalize(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// Concepts returns the ordered concept list for t. The slice must not be modified.
func (c *Catalog) Concepts(t domain.TxType) []string {
	if t == domain.Income {
		return c.income
	}
	return c.expense
}

// FixedConcepts returns the ordered list of fixed-concept substrings.
func (c *Catalog) FixedConcepts() []string {
	return c.fixed
}

// Contains reports exact membership of concept in the list for t. This is the
// only validity check the guided dialogue applies.
func (c *Catalog) Contains(t domain.TxType, concept string) bool {
	for _, label := range c.Concepts(t) {
		if label == concept {
			return true
		}
	}
	return false
}

// Resolve returns the first catalog entry for t, in declared order, that
// contains text or is contained by it. First match wins; there is no scoring,
// so a short text may pick an earlier, unintended entry if the catalog is
// reordered.
func (c *Catalog) Resolve(t domain.TxType, text string) (string, bool) {
	if text == "" {
		return "", false
	}
	for _, label := range c.Concepts(t) {
		if strings.Contains(label, text) || strings.Contains(text, label) {
			return label, true
		}
	}
	return "", false
}

// Classify returns Fixed when any configured fixed substring occurs in concept,
// checking the list in declared order, and Variable otherwise. It is a
// labelling heuristic: the fixed list and the catalog evolve independently, so
// e.g. "GAS" also marks "GASOLINA/COMBUSTIBLE" as fixed.
func (c *Catalog) Classify(concept string) domain.Category {
	for _, f := range c.fixed {
		if strings.Contains(concept, f) {
			return domain.Fixed
		}
	}
	return domain.Variable
}

// Suggest returns the catalog label for t closest to text by edit distance,
// or "" when nothing is reasonably close. It only feeds hints to the user.
func (c *Catalog) Suggest(t domain.TxType, text string) string {
	text = Normalize(text)
	if text == "" {
		return ""
	}
	best, bestDist := "", -1
	for _, label := range c.Concepts(t) {
		d := levenshtein.ComputeDistance(text, label)
		// Compare against each word too, so "ALQILER" finds "ALQUILER" and
		// "CELULR" finds "PLAN DE CELULAR".
		for _, word := range strings.FieldsFunc(label, isSeparator) {
			if wd := levenshtein.ComputeDistance(text, word); wd < d {
				d = wd
			}
		}
		if bestDist < 0 || d < bestDist {
			best, bestDist = label, d
		}
	}
	limit := len([]rune(text)) / 3
	if limit < 1 {
		limit = 1
	}
	if bestDist > limit {
		return ""
	}
	return best
}

func isSeparator(r rune) bool {
	return r == ' ' || r == '/' || r == '(' || r == ')' || r == ','
}

// Rows lays concepts out perRow to a row for a selection keyboard.
func Rows(concepts []string, perRow int) [][]string {
	if perRow < 1 {
		perRow = 1
	}
	rows := make([][]string, 0, (len(concepts)+perRow-1)/perRow)
	for i := 0; i < len(concepts); i += perRow {
		end := i + perRow
		if end > len(concepts) {
			end = len(concepts)
		}
		rows = append(rows, concepts[i:end])
	}
	return rows
}
