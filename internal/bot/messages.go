package bot

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dvloznov/ledger-bot/internal/dialogue"
	"github.com/dvloznov/ledger-bot/internal/domain"
	"github.com/dvloznov/ledger-bot/internal/intake"
)

// HelpText lists the commands, the shorthand format and two examples.
var HelpText = "🤖 *Bot de Economía Familiar* 🏡\n\n" +
	"*Comandos disponibles:*\n" +
	"/start - Iniciar el bot y registrar un movimiento\n" +
	"/cancelar - Cancelar el registro en curso\n" +
	"/ayuda - Mostrar este mensaje de ayuda\n\n" +
	"*Registro rápido por texto:*\n" +
	"Puedes escribir directamente en este formato:\n" +
	intake.ShorthandFormat + "\n\n" +
	"*Ejemplos:*\n" +
	"• INGRESO 1500 SUELDO DE ESPOSO\n" +
	"• GASTO 50 ALIMENTOS\n"

const (
	textGenericError    = "Ocurrió un error. Por favor, intenta de nuevo o contacta al administrador."
	textUnknownCommand  = "Comando no reconocido. Usa /ayuda para ver las opciones."
	textPhotosDisabled  = "El registro por foto no está habilitado. Usa /start o escribe " + intake.ShorthandFormat + "."
	textPhotoDownload   = "❌ No se pudo descargar la foto. Por favor, intenta de nuevo."
	textAIApology       = "😔 Lo siento, no pude interpretar tu mensaje en este momento. Escribe " + intake.ShorthandFormat + " o usa /start para el registro guiado."
	textGuidedRedirect  = "Por favor, usa el comando /start para registrar."
	textMalformedFormat = "❌ Formato incorrecto. Usa: " + intake.ShorthandFormat + "\nEjemplo: GASTO 50 ALIMENTOS"
)

// UserMessage converts a per-message error into the reply the user sees.
// Ledger errors are shown verbatim; model failures get a generic apology.
func UserMessage(err error) string {
	var extErr *domain.ExtractionError
	var conceptErr *domain.UnknownConceptError
	var typeErr *domain.TypeError
	var amountErr *domain.AmountError

	switch {
	case errors.As(err, &extErr):
		return "❌ " + extErr.Message
	case errors.As(err, &conceptErr):
		msg := fmt.Sprintf("❌ No se encontró el concepto '%s'.", conceptErr.Text)
		if conceptErr.Suggestion != "" {
			msg += fmt.Sprintf(" ¿Quisiste decir '%s'?", conceptErr.Suggestion)
		}
		return msg + " " + textGuidedRedirect
	case errors.As(err, &typeErr):
		return fmt.Sprintf("❌ El tipo debe ser %s o %s. Recibido: %s\n%s",
			domain.LabelIncome, domain.LabelExpense, typeErr.Label, textGuidedRedirect)
	case errors.As(err, &amountErr):
		if amountErr.NotPositive {
			return "❌ El monto debe ser mayor que cero."
		}
		if amountErr.OutOfRange {
			return fmt.Sprintf("❌ El monto admite hasta %d dígitos enteros y %d decimales.",
				domain.MaxIntegerDigits, domain.MaxFractionDigits)
		}
		return "❌ El monto debe ser un número válido."
	case errors.Is(err, domain.ErrMalformedInput):
		return textMalformedFormat
	case errors.Is(err, domain.ErrAICallFailed), errors.Is(err, domain.ErrAIResponseInvalid):
		return textAIApology
	case errors.Is(err, domain.ErrLedgerUnavailable):
		return fmt.Sprintf("❌ Error al guardar el registro: %v", err)
	default:
		return textGenericError
	}
}

// recordedText confirms a transaction registered from a single message.
func recordedText(tx domain.Transaction) string {
	var b strings.Builder
	b.WriteString("✅ Registro rápido completado:\n\n")
	fmt.Fprintf(&b, "👤 Usuario: %s\n", tx.Submitter)
	fmt.Fprintf(&b, "📊 Tipo: %s\n", tx.Type.Label())
	fmt.Fprintf(&b, "🏷️ Categoría: %s\n", tx.Category.Label())
	fmt.Fprintf(&b, "🔖 Concepto: %s\n", tx.Concept)
	fmt.Fprintf(&b, "💰 Monto: %s\n", dialogue.FormatAmount(tx.Amount.StringFixed(2)))
	if tx.Source == domain.SourceAI {
		if tx.InferredDate != "" {
			fmt.Fprintf(&b, "📅 Fecha indicada: %s\n", tx.InferredDate)
		}
		b.WriteString("🤖 Interpretado automáticamente.\n")
	}
	return b.String()
}
