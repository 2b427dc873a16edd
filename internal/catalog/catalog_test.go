package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dvloznov/ledger-bot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	c := Default()

	tests := []struct {
		name   string
		typ    domain.TxType
		text   string
		want   string
		wantOK bool
	}{
		{"text contained in entry", domain.Expense, "ALIMENTOS", "ALIMENTOS (DESAYUNO, ALMUERZO, CENA)", true},
		{"entry contained in text", domain.Expense, "PAGO DE LUZ DEL MES", "LUZ", true},
		{"first match in declared order wins", domain.Income, "SUELDO", "SUELDO DE ESPOSA", true},
		{"exact label", domain.Income, "SUELDO DE ESPOSO", "SUELDO DE ESPOSO", true},
		{"expense list not used for income", domain.Income, "ALQUILER", "", false},
		{"no match", domain.Expense, "PIZZA", "", false},
		{"empty text never matches", domain.Expense, "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := c.Resolve(tt.typ, tt.text)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassify(t *testing.T) {
	c := Default()

	tests := []struct {
		concept string
		want    domain.Category
	}{
		{"SUELDO DE ESPOSA", domain.Fixed},
		{"ALQUILER", domain.Fixed},
		{"MENSUALIDAD DE COLEGIO", domain.Fixed},
		{"ALIMENTOS (DESAYUNO, ALMUERZO, CENA)", domain.Variable},
		{"ROPA", domain.Variable},
		// Substring heuristic: "GAS" is a fixed marker.
		{"GASOLINA/COMBUSTIBLE", domain.Fixed},
		{"CONCEPTO LIBRE", domain.Variable},
	}

	for _, tt := range tests {
		t.Run(tt.concept, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.concept))
			// Pure: repeated calls agree.
			assert.Equal(t, c.Classify(tt.concept), c.Classify(tt.concept))
		})
	}
}

func TestContains(t *testing.T) {
	c := Default()
	assert.True(t, c.Contains(domain.Expense, "LUZ"))
	assert.False(t, c.Contains(domain.Expense, "LU"))
	assert.False(t, c.Contains(domain.Income, "LUZ"))
}

func TestSuggest(t *testing.T) {
	c := Default()
	assert.Equal(t, "ALQUILER", c.Suggest(domain.Expense, "alqiler"))
	assert.Equal(t, "PLAN DE CELULAR", c.Suggest(domain.Expense, "CELULR"))
	assert.Equal(t, "", c.Suggest(domain.Expense, "XYZXYZXYZ"))
	assert.Equal(t, "", c.Suggest(domain.Expense, " "))
}

func TestRows(t *testing.T) {
	rows := Rows([]string{"A", "B", "C", "D", "E"}, 2)
	assert.Equal(t, [][]string{{"A", "B"}, {"C", "D"}, {"E"}}, rows)
	assert.Empty(t, Rows(nil, 2))
}

func TestParse(t *testing.T) {
	data := []byte(`
income:
  - salario
  - " bonos "
fixed:
  - salario
`)
	c, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"SALARIO", "BONOS"}, c.Concepts(domain.Income))
	assert.Equal(t, defaultExpense, c.Concepts(domain.Expense), "missing key keeps defaults")
	assert.Equal(t, domain.Fixed, c.Classify("SALARIO"))
	assert.Equal(t, domain.Variable, c.Classify("BONOS"))
}

func TestParseRejectsBadCatalogs(t *testing.T) {
	_, err := Parse([]byte("income: [A, a]\n"))
	assert.Error(t, err, "duplicates after normalisation")

	_, err = Parse([]byte("expense: [\"\"]\n"))
	assert.Error(t, err, "empty label")

	_, err = Parse([]byte("unknown_key: [A]\n"))
	assert.Error(t, err, "strict decoding")

	_, err = New([]string{strings.Repeat("Ñ", 33)}, []string{"ROPA"}, nil)
	assert.ErrorContains(t, err, "longer than 64 bytes", "66 bytes once encoded")

	_, err = New([]string{strings.Repeat("A", MaxLabelBytes)}, []string{"ROPA"}, nil)
	assert.NoError(t, err)
}

func TestDefaultLabelsFitCallbackData(t *testing.T) {
	c := Default()
	for _, typ := range domain.TxTypes {
		for _, label := range c.Concepts(typ) {
			assert.LessOrEqual(t, len(label), MaxLabelBytes, label)
		}
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("expense: [MERCADO, LUZ]\n"), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	got, ok := c.Resolve(domain.Expense, "MERCADO CENTRAL")
	assert.True(t, ok)
	assert.Equal(t, "MERCADO", got)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
