package dialogue

import (
	"fmt"
	"strings"

	"github.com/dvloznov/ledger-bot/internal/catalog"
	"github.com/dvloznov/ledger-bot/internal/domain"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// CurrencyPrefix is printed before every amount shown to users.
const CurrencyPrefix = "S/."

// Button is one inline button: the label shown and the payload sent back.
type Button struct {
	Label string
	Data  string
}

// Reply is a message for the chat transport. Edit asks the transport to replace
// the message whose button was pressed instead of sending a new one.
type Reply struct {
	Text     string
	Markdown bool
	Buttons  [][]Button
	Edit     bool
}

// User-facing texts.
const (
	textChooseType      = "¿Qué tipo de movimiento quieres registrar?"
	textEnterAmount     = "Por favor, ingresa el monto (solo números):"
	textAmountNotNumber = "Por favor, ingresa solo números (usa punto o coma para decimales):"
	textAmountNotPos    = "El monto debe ser mayor que cero. Por favor, ingresa un monto válido:"
	textAmountTooLarge  = "El monto es demasiado largo (máximo 12 dígitos enteros y 4 decimales). Por favor, ingresa un monto válido:"
	textSaved           = "✅ Registro completado con éxito."
	textSaveFailed      = "❌ Error al guardar el registro: %v"
	textDiscarded       = "❌ Registro cancelado."
	textCancelled       = "Operación cancelada. ¡Hasta pronto!"
	textNoRecords       = "No hay registros disponibles."
	textLastFailed      = "Error al obtener el último registro: %v"
	textExpired         = "La sesión expiró. Usa /start para comenzar de nuevo."
)

// EscapeMarkdown escapes user-provided text for legacy Markdown messages.
func EscapeMarkdown(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}

// FormatAmount renders an amount with the currency prefix.
func FormatAmount(amount string) string {
	return CurrencyPrefix + " " + amount
}

func actionMenu(firstName string) Reply {
	return Reply{
		Text: fmt.Sprintf("Hola %s! Soy el bot de economía familiar.\n\n¿Qué deseas hacer?", firstName),
		Buttons: [][]Button{
			{{Label: "Registrar movimiento", Data: IntentRegister.Payload()}},
			{{Label: "Ver último registro", Data: IntentViewLast.Payload()}},
		},
	}
}

func typeMenu() Reply {
	rows := make([][]Button, 0, len(domain.TxTypes))
	for _, t := range domain.TxTypes {
		rows = append(rows, []Button{{Label: t.Label(), Data: t.Label()}})
	}
	return Reply{Text: textChooseType, Buttons: rows, Edit: true}
}

func categoryMenu(t domain.TxType) Reply {
	rows := make([][]Button, 0, len(domain.Categories))
	for _, c := range domain.Categories {
		rows = append(rows, []Button{{Label: c.Label(), Data: c.Label()}})
	}
	return Reply{
		Text:    fmt.Sprintf("Has seleccionado: %s\n\n¿Es un %s fijo o variable?", t.Label(), strings.ToLower(t.Label())),
		Buttons: rows,
		Edit:    true,
	}
}

func conceptMenu(cat *catalog.Catalog, t domain.TxType, c domain.Category) Reply {
	var rows [][]Button
	for _, labels := range catalog.Rows(cat.Concepts(t), 2) {
		row := make([]Button, 0, len(labels))
		for _, l := range labels {
			row = append(row, Button{Label: l, Data: l})
		}
		rows = append(rows, row)
	}
	return Reply{
		Text:    fmt.Sprintf("Has seleccionado: %s\n\nSelecciona el concepto:", c.Label()),
		Buttons: rows,
		Edit:    true,
	}
}

func amountPrompt(concept string) Reply {
	return Reply{Text: fmt.Sprintf("Has seleccionado: %s\n\n%s", concept, textEnterAmount), Edit: true}
}

func summary(d *domain.Draft) Reply {
	var b strings.Builder
	b.WriteString("📝 *Resumen del registro*\n\n")
	fmt.Fprintf(&b, "👤 Usuario: %s\n", EscapeMarkdown(d.Submitter))
	fmt.Fprintf(&b, "📊 Tipo: %s\n", d.Type.Label())
	fmt.Fprintf(&b, "🏷️ Categoría: %s\n", d.Category.Label())
	fmt.Fprintf(&b, "🔖 Concepto: %s\n", EscapeMarkdown(*d.Concept))
	fmt.Fprintf(&b, "💰 Monto: %s\n\n", FormatAmount(d.Amount.StringFixed(2)))
	b.WriteString("¿Confirmas este registro?")
	return Reply{
		Text:     b.String(),
		Markdown: true,
		Buttons: [][]Button{
			{{Label: "✅ Confirmar", Data: IntentConfirm.Payload()}},
			{{Label: "❌ Cancelar", Data: IntentCancel.Payload()}},
		},
	}
}

// RenderRecord formats the last ledger record with the sheet's column names.
func RenderRecord(r *domain.Record) string {
	na := func(s string) string {
		if s == "" {
			return "N/A"
		}
		return EscapeMarkdown(s)
	}
	var b strings.Builder
	b.WriteString("📝 *Último registro*\n\n")
	fmt.Fprintf(&b, "📅 Fecha: %s\n", na(r.Timestamp))
	fmt.Fprintf(&b, "👤 Usuario: %s\n", na(r.Submitter))
	fmt.Fprintf(&b, "📊 Tipo: %s\n", na(r.Type))
	fmt.Fprintf(&b, "🏷️ Categoría: %s\n", na(r.Category))
	fmt.Fprintf(&b, "🔖 Concepto: %s\n", na(r.Concept))
	fmt.Fprintf(&b, "💰 Monto: %s\n", FormatAmount(na(r.Amount)))
	return b.String()
}
