// Package dialogue drives the guided registration flow: action, type,
// category, concept, amount and confirmation, one step per user input.
package dialogue

import "fmt"

// State is the step a guided session is waiting on.
type State int

const (
	ChooseAction State = iota + 1
	ChooseType
	ChooseCategory
	ChooseConcept
	EnterAmount
	Confirm
)

func (s State) String() string {
	switch s {
	case ChooseAction:
		return "choose_action"
	case ChooseType:
		return "choose_type"
	case ChooseCategory:
		return "choose_category"
	case ChooseConcept:
		return "choose_concept"
	case EnterAmount:
		return "enter_amount"
	case Confirm:
		return "confirm"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Intent is a fixed button payload that is not a type, category or concept label.
type Intent int

const (
	IntentRegister Intent = iota + 1
	IntentViewLast
	IntentConfirm
	IntentCancel
)

var intentPayloads = map[Intent]string{
	IntentRegister: "registrar",
	IntentViewLast: "ver_ultimo",
	IntentConfirm:  "confirmar",
	IntentCancel:   "cancelar",
}

// Payload returns the callback data carried by the intent's button.
func (i Intent) Payload() string {
	if p, ok := intentPayloads[i]; ok {
		return p
	}
	return fmt.Sprintf("Intent(%d)", int(i))
}

func (i Intent) String() string { return i.Payload() }

// ParseIntent matches a callback payload exactly.
func ParseIntent(payload string) (Intent, bool) {
	for intent, p := range intentPayloads {
		if p == payload {
			return intent, true
		}
	}
	return 0, false
}
