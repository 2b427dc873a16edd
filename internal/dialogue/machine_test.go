package dialogue

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dvloznov/ledger-bot/internal/catalog"
	"github.com/dvloznov/ledger-bot/internal/domain"
	"github.com/dvloznov/ledger-bot/internal/ledger"
	"github.com/dvloznov/ledger-bot/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, time.October, 18, 9, 30, 0, 0, time.UTC)

type fixture struct {
	machine *Machine
	store   *MemoryStore
	ledger  *ledger.Memory
	now     time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:  NewMemoryStore(),
		ledger: ledger.NewMemory(time.UTC),
		now:    testNow,
	}
	f.machine = NewMachine(f.store, catalog.Default(), f.ledger, func() time.Time { return f.now })
	return f
}

func press(userID int64, data string) Input {
	return Input{UserID: userID, FirstName: "Ana", IsCallback: true, Data: data}
}

func typeText(userID int64, text string) Input {
	return Input{UserID: userID, FirstName: "Ana", Text: text}
}

func (f *fixture) step(t *testing.T, in Input) Reply {
	t.Helper()
	reply, handled, err := f.machine.Handle(context.Background(), in)
	require.NoError(t, err)
	require.True(t, handled)
	return reply
}

func (f *fixture) state(t *testing.T, userID int64) (State, bool) {
	t.Helper()
	sess, ok, err := f.store.Get(context.Background(), userID)
	require.NoError(t, err)
	return sess.State, ok
}

// driveTo walks user 1 through the guided flow up to target.
func (f *fixture) driveTo(t *testing.T, target State) {
	t.Helper()
	_, err := f.machine.Start(context.Background(), 1, "Ana")
	require.NoError(t, err)
	inputs := []Input{
		press(1, "registrar"),
		press(1, "INGRESO"),
		press(1, "FIJO"),
		press(1, "SUELDO DE ESPOSO"),
		typeText(1, "200"),
	}
	for _, in := range inputs {
		if s, _ := f.state(t, 1); s == target {
			return
		}
		f.step(t, in)
	}
	s, _ := f.state(t, 1)
	require.Equal(t, target, s)
}

func TestGuidedFlowScenarioC(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	reply, err := f.machine.Start(ctx, 1, "Ana")
	require.NoError(t, err)
	assert.Contains(t, reply.Text, "Hola Ana!")
	require.Len(t, reply.Buttons, 2)
	assert.Equal(t, "registrar", reply.Buttons[0][0].Data)

	reply = f.step(t, press(1, "registrar"))
	assert.Equal(t, textChooseType, reply.Text)
	assert.True(t, reply.Edit)

	reply = f.step(t, press(1, "INGRESO"))
	assert.Contains(t, reply.Text, "¿Es un ingreso fijo o variable?")

	reply = f.step(t, press(1, "FIJO"))
	assert.Contains(t, reply.Text, "Selecciona el concepto")
	require.Len(t, reply.Buttons, 3, "six income concepts, two per row")
	assert.Equal(t, "SUELDO DE ESPOSA", reply.Buttons[0][0].Data)
	assert.Equal(t, "SUELDO DE ESPOSO", reply.Buttons[0][1].Data)

	reply = f.step(t, press(1, "SUELDO DE ESPOSO"))
	assert.Contains(t, reply.Text, textEnterAmount)

	reply = f.step(t, typeText(1, "abc"))
	assert.Equal(t, textAmountNotNumber, reply.Text)
	s, _ := f.state(t, 1)
	assert.Equal(t, EnterAmount, s)

	reply = f.step(t, typeText(1, "200"))
	assert.True(t, reply.Markdown)
	assert.Contains(t, reply.Text, "Resumen del registro")
	assert.Contains(t, reply.Text, "S/. 200.00")
	assert.Empty(t, f.ledger.Rows(), "nothing written before confirmation")

	reply = f.step(t, press(1, "confirmar"))
	assert.Equal(t, textSaved, reply.Text)

	rows := f.ledger.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"18/10/2026 09:30:00", "Ana", "INGRESO", "FIJO", "SUELDO DE ESPOSO", "200", "October 2026"}, rows[0])

	_, ok := f.state(t, 1)
	assert.False(t, ok, "draft removed after confirmation")
}

func TestEnterAmountRejectsNonPositive(t *testing.T) {
	for _, text := range []string{"0", "-3", "0,00"} {
		t.Run(text, func(t *testing.T) {
			f := newFixture(t)
			f.driveTo(t, EnterAmount)

			reply := f.step(t, typeText(1, text))
			assert.Equal(t, textAmountNotPos, reply.Text)

			sess, ok, err := f.store.Get(context.Background(), 1)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, EnterAmount, sess.State)
			assert.Nil(t, sess.Draft.Amount)
		})
	}
}

func TestEnterAmountAcceptsComma(t *testing.T) {
	f := newFixture(t)
	f.driveTo(t, EnterAmount)

	reply := f.step(t, typeText(1, "12,5"))
	assert.Contains(t, reply.Text, "S/. 12.50")
	s, _ := f.state(t, 1)
	assert.Equal(t, Confirm, s)
}

func TestCancelFromEveryState(t *testing.T) {
	for _, target := range []State{ChooseAction, ChooseType, ChooseCategory, ChooseConcept, EnterAmount, Confirm} {
		t.Run("command/"+target.String(), func(t *testing.T) {
			f := newFixture(t)
			f.driveTo(t, target)

			reply, err := f.machine.Cancel(context.Background(), 1)
			require.NoError(t, err)
			assert.Equal(t, textCancelled, reply.Text)
			_, ok := f.state(t, 1)
			assert.False(t, ok)
			assert.Empty(t, f.ledger.Rows())
		})

		t.Run("button/"+target.String(), func(t *testing.T) {
			f := newFixture(t)
			f.driveTo(t, target)

			reply := f.step(t, press(1, "cancelar"))
			assert.Equal(t, textDiscarded, reply.Text)
			_, ok := f.state(t, 1)
			assert.False(t, ok)
			assert.Empty(t, f.ledger.Rows())
		})
	}
}

func TestConfirmLedgerFailureTearsDownSession(t *testing.T) {
	f := newFixture(t)
	f.driveTo(t, Confirm)
	f.ledger.FailWith = errors.New("permission denied")

	reply := f.step(t, press(1, "confirmar"))
	assert.Contains(t, reply.Text, "Error al guardar el registro")
	assert.Contains(t, reply.Text, "permission denied")

	_, ok := f.state(t, 1)
	assert.False(t, ok, "session is not left half-open")
}

func TestUnknownPayloadRepromptsSameState(t *testing.T) {
	tests := []struct {
		state   State
		payload string
	}{
		{ChooseAction, "INGRESO"},
		{ChooseType, "FIJO"},
		{ChooseCategory, "INGRESO"},
		{ChooseConcept, "ALQUILER"}, // expense concept offered to an income draft
		{Confirm, "ver_ultimo"},
	}
	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			f := newFixture(t)
			f.driveTo(t, tt.state)

			reply := f.step(t, press(1, tt.payload))
			assert.NotEmpty(t, reply.Text)
			s, ok := f.state(t, 1)
			require.True(t, ok)
			assert.Equal(t, tt.state, s)
		})
	}
}

func TestTextOutsideAmountStepIsUnhandled(t *testing.T) {
	for _, target := range []State{ChooseAction, ChooseType, ChooseCategory, ChooseConcept, Confirm} {
		t.Run(target.String(), func(t *testing.T) {
			f := newFixture(t)
			f.driveTo(t, target)

			_, handled, err := f.machine.Handle(context.Background(), typeText(1, "GASTO 50 ALIMENTOS"))
			require.NoError(t, err)
			assert.False(t, handled)
			s, _ := f.state(t, 1)
			assert.Equal(t, target, s)
		})
	}
}

func TestNoSession(t *testing.T) {
	f := newFixture(t)

	_, handled, err := f.machine.Handle(context.Background(), typeText(7, "hola"))
	require.NoError(t, err)
	assert.False(t, handled)

	reply := f.step(t, press(7, "confirmar"))
	assert.Equal(t, textExpired, reply.Text)
	assert.Empty(t, f.ledger.Rows())
}

func TestViewLastRecord(t *testing.T) {
	t.Run("empty ledger", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.machine.Start(context.Background(), 1, "Ana")
		require.NoError(t, err)

		reply := f.step(t, press(1, "ver_ultimo"))
		assert.Equal(t, textNoRecords, reply.Text)
		_, ok := f.state(t, 1)
		assert.False(t, ok, "view last never leaves a session behind")
	})

	t.Run("renders last row", func(t *testing.T) {
		f := newFixture(t)
		tx := domain.NewTransaction(testNow, "Luis", domain.Expense, domain.Variable, "ROPA", decimalOf(t, "80"), domain.SourceShorthand)
		require.NoError(t, f.ledger.Append(context.Background(), tx))
		_, err := f.machine.Start(context.Background(), 1, "Ana")
		require.NoError(t, err)

		reply := f.step(t, press(1, "ver_ultimo"))
		assert.True(t, reply.Markdown)
		assert.Contains(t, reply.Text, "Último registro")
		assert.Contains(t, reply.Text, "Usuario: Luis")
		assert.Contains(t, reply.Text, "Monto: S/. 80")
	})

	t.Run("ledger failure is reported", func(t *testing.T) {
		f := newFixture(t)
		f.ledger.FailWith = errors.New("timeout")
		_, err := f.machine.Start(context.Background(), 1, "Ana")
		require.NoError(t, err)

		reply := f.step(t, press(1, "ver_ultimo"))
		assert.Contains(t, reply.Text, "timeout")
		_, ok := f.state(t, 1)
		assert.False(t, ok)
	})
}

func TestStartOverwritesStaleDraft(t *testing.T) {
	f := newFixture(t)
	f.driveTo(t, EnterAmount)

	_, err := f.machine.Start(context.Background(), 1, "Ana")
	require.NoError(t, err)

	sess, ok, err := f.store.Get(context.Background(), 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, ChooseAction, sess.State)
	assert.Nil(t, sess.Draft)
}

func TestSessionIsolation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const users = 20
	var wg sync.WaitGroup
	for u := int64(1); u <= users; u++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			name := fmt.Sprintf("user-%d", id)
			typ, concept := "INGRESO", "EXTRAS"
			if id%2 == 0 {
				typ, concept = "GASTO", "PASAJES"
			}
			steps := []Input{
				{UserID: id, FirstName: name, IsCallback: true, Data: "registrar"},
				{UserID: id, FirstName: name, IsCallback: true, Data: typ},
				{UserID: id, FirstName: name, IsCallback: true, Data: "VARIABLE"},
				{UserID: id, FirstName: name, IsCallback: true, Data: concept},
				{UserID: id, FirstName: name, Text: fmt.Sprintf("%d", id)},
				{UserID: id, FirstName: name, IsCallback: true, Data: "confirmar"},
			}
			if _, err := f.machine.Start(ctx, id, name); err != nil {
				t.Error(err)
				return
			}
			for _, in := range steps {
				if _, _, err := f.machine.Handle(ctx, in); err != nil {
					t.Error(err)
					return
				}
			}
		}(u)
	}
	wg.Wait()

	rows := f.ledger.Rows()
	require.Len(t, rows, users)
	for _, row := range rows {
		var id int64
		_, err := fmt.Sscanf(row[1], "user-%d", &id)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("%d", id), row[5], "amount belongs to its own user")
		if id%2 == 0 {
			assert.Equal(t, []string{"GASTO", "PASAJES"}, []string{row[2], row[4]})
		} else {
			assert.Equal(t, []string{"INGRESO", "EXTRAS"}, []string{row[2], row[4]})
		}
	}
	assert.Zero(t, f.store.Len())
}

func TestSweep(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.machine.Start(ctx, 1, "Ana")
	require.NoError(t, err)
	f.now = testNow.Add(20 * time.Minute)
	_, err = f.machine.Start(ctx, 2, "Luis")
	require.NoError(t, err)

	f.now = testNow.Add(40 * time.Minute)
	n, err := f.machine.Sweep(ctx, 30*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, ok := f.state(t, 1)
	assert.False(t, ok)
	_, ok = f.state(t, 2)
	assert.True(t, ok)
}

func TestParseIntent(t *testing.T) {
	for _, intent := range []Intent{IntentRegister, IntentViewLast, IntentConfirm, IntentCancel} {
		got, ok := ParseIntent(intent.Payload())
		assert.True(t, ok)
		assert.Equal(t, intent, got)
	}
	_, ok := ParseIntent("CONFIRMAR")
	assert.False(t, ok, "payloads match exactly")
}

func TestMemoryStoreCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	d := domain.NewDraft("Ana")
	d.SetType(domain.Income)
	require.NoError(t, s.Put(ctx, 1, Session{State: ChooseCategory, Draft: d}))

	d.SetType(domain.Expense)
	got, ok, err := s.Get(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domain.Income, *got.Draft.Type)

	got.Draft.SetType(domain.Expense)
	again, _, _ := s.Get(ctx, 1)
	assert.Equal(t, domain.Income, *again.Draft.Type)
}

func TestRenderRecordMissingFields(t *testing.T) {
	text := RenderRecord(&domain.Record{Submitter: "mi_usuario"})
	assert.Contains(t, text, "Fecha: N/A")
	assert.Contains(t, text, `mi\_usuario`)
}

func TestEnterAmountRejectsOversized(t *testing.T) {
	for _, text := range []string{"1e99999999", "10000000000000", "1,23456"} {
		t.Run(text, func(t *testing.T) {
			f := newFixture(t)
			f.driveTo(t, EnterAmount)

			reply := f.step(t, typeText(1, text))
			if text == "1e99999999" {
				assert.Equal(t, textAmountNotNumber, reply.Text)
			} else {
				assert.Equal(t, textAmountTooLarge, reply.Text)
			}
			s, _ := f.state(t, 1)
			assert.Equal(t, EnterAmount, s)
		})
	}
}

type failingDeleteStore struct {
	*MemoryStore
}

func (s failingDeleteStore) Delete(ctx context.Context, userID int64) error {
	return errors.New("store offline")
}

func TestUnknownStateTearsDownSession(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	m := NewMachine(store, catalog.Default(), ledger.NewMemory(time.UTC), func() time.Time { return testNow })
	require.NoError(t, store.Put(ctx, 1, Session{State: State(99), Draft: domain.NewDraft("Ana")}))

	reply, handled, err := m.Handle(ctx, press(1, "registrar"))
	require.Error(t, err)
	assert.True(t, handled)
	assert.Equal(t, textExpired, reply.Text)
	assert.Equal(t, 0, store.Len())
}

func TestUnknownStateLogsFailedDelete(t *testing.T) {
	var buf bytes.Buffer
	ctx := logger.WithContext(context.Background(), logger.NewWithWriter(&buf))
	store := failingDeleteStore{NewMemoryStore()}
	m := NewMachine(store, catalog.Default(), ledger.NewMemory(time.UTC), func() time.Time { return testNow })
	require.NoError(t, store.Put(ctx, 1, Session{State: State(99), Draft: domain.NewDraft("Ana")}))

	_, _, err := m.Handle(ctx, press(1, "registrar"))
	require.Error(t, err)
	assert.Contains(t, buf.String(), "Failed to delete session in unknown state")
	assert.Contains(t, buf.String(), "store offline")
}
