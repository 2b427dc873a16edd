package dialogue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dvloznov/ledger-bot/internal/catalog"
	"github.com/dvloznov/ledger-bot/internal/domain"
	"github.com/dvloznov/ledger-bot/internal/ledger"
	"github.com/dvloznov/ledger-bot/internal/logger"
)

// Input is one user event addressed to the guided flow.
type Input struct {
	UserID    int64
	FirstName string
	// IsCallback marks a button press; Data then holds its payload.
	IsCallback bool
	Data       string
	Text       string
}

// Machine runs the guided dialogue. Steps for the same user are serialized,
// including any ledger call they make, so a session never advances while a
// previous step for it is still in flight.
type Machine struct {
	store   Store
	catalog *catalog.Catalog
	ledger  ledger.Writer
	now     func() time.Time
	locks   *keyLock
}

// NewMachine creates a dialogue machine. now defaults to time.Now.
func NewMachine(store Store, cat *catalog.Catalog, lw ledger.Writer, now func() time.Time) *Machine {
	if now == nil {
		now = time.Now
	}
	return &Machine{
		store:   store,
		catalog: cat,
		ledger:  lw,
		now:     now,
		locks:   newKeyLock(),
	}
}

// Start opens a fresh session at the action menu, discarding any stale draft.
func (m *Machine) Start(ctx context.Context, userID int64, firstName string) (Reply, error) {
	unlock := m.locks.lock(userID)
	defer unlock()

	err := m.store.Put(ctx, userID, Session{State: ChooseAction, UpdatedAt: m.now()})
	if err != nil {
		return Reply{}, fmt.Errorf("Machine.Start: save session: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Debug().Int64("user_id", userID).Msg("Guided session started")

	return actionMenu(firstName), nil
}

// Cancel discards the user's session from whatever state it is in.
func (m *Machine) Cancel(ctx context.Context, userID int64) (Reply, error) {
	unlock := m.locks.lock(userID)
	defer unlock()

	if err := m.store.Delete(ctx, userID); err != nil {
		return Reply{}, fmt.Errorf("Machine.Cancel: delete session: %w", err)
	}
	return Reply{Text: textCancelled}, nil
}

// Handle advances the user's session with in. handled is false when there is
// no session to advance or the session expects a button press and in is a
// text message; the caller should then treat in as a standalone message.
func (m *Machine) Handle(ctx context.Context, in Input) (reply Reply, handled bool, err error) {
	unlock := m.locks.lock(in.UserID)
	defer unlock()

	sess, ok, err := m.store.Get(ctx, in.UserID)
	if err != nil {
		return Reply{}, true, fmt.Errorf("Machine.Handle: load session: %w", err)
	}
	if !ok {
		if in.IsCallback {
			return Reply{Text: textExpired, Edit: true}, true, nil
		}
		return Reply{}, false, nil
	}

	if !in.IsCallback && sess.State != EnterAmount {
		return Reply{}, false, nil
	}

	log := logger.FromContext(ctx).With().
		Int64("user_id", in.UserID).
		Stringer("state", sess.State).
		Logger()
	ctx = logger.WithContext(ctx, log)

	if in.IsCallback {
		if intent, ok := ParseIntent(in.Data); ok && intent == IntentCancel {
			return m.discard(ctx, in.UserID)
		}
	}

	if sess.State != ChooseAction && sess.Draft == nil {
		log.Warn().Msg("Session without draft, discarding")
		if err := m.store.Delete(ctx, in.UserID); err != nil {
			return Reply{}, true, fmt.Errorf("Machine.Handle: delete session: %w", err)
		}
		return Reply{Text: textExpired, Edit: true}, true, nil
	}

	switch sess.State {
	case ChooseAction:
		reply, err = m.chooseAction(ctx, in, sess)
	case ChooseType:
		reply, err = m.chooseType(ctx, in, sess)
	case ChooseCategory:
		reply, err = m.chooseCategory(ctx, in, sess)
	case ChooseConcept:
		reply, err = m.chooseConcept(ctx, in, sess)
	case EnterAmount:
		reply, err = m.enterAmount(ctx, in, sess)
	case Confirm:
		reply, err = m.confirm(ctx, in, sess)
	default:
		if err := m.store.Delete(ctx, in.UserID); err != nil {
			log.Error().Err(err).Msg("Failed to delete session in unknown state")
		}
		return Reply{Text: textExpired}, true, fmt.Errorf("Machine.Handle: unknown state %v", sess.State)
	}
	return reply, true, err
}

// Sweep removes sessions idle for longer than maxAge.
func (m *Machine) Sweep(ctx context.Context, maxAge time.Duration) (int, error) {
	n, err := m.store.DeleteIdle(ctx, m.now().Add(-maxAge))
	if err != nil {
		return 0, fmt.Errorf("Machine.Sweep: %w", err)
	}
	return n, nil
}

func (m *Machine) advance(ctx context.Context, userID int64, sess Session, next State, reply Reply) (Reply, error) {
	sess.State = next
	sess.UpdatedAt = m.now()
	if err := m.store.Put(ctx, userID, sess); err != nil {
		return Reply{}, fmt.Errorf("save session: %w", err)
	}
	return reply, nil
}

func (m *Machine) discard(ctx context.Context, userID int64) (Reply, bool, error) {
	if err := m.store.Delete(ctx, userID); err != nil {
		return Reply{}, true, fmt.Errorf("Machine.Handle: delete session: %w", err)
	}
	return Reply{Text: textDiscarded, Edit: true}, true, nil
}

func (m *Machine) chooseAction(ctx context.Context, in Input, sess Session) (Reply, error) {
	intent, _ := ParseIntent(in.Data)
	switch intent {
	case IntentRegister:
		name := in.FirstName
		if name == "" {
			name = strconv.FormatInt(in.UserID, 10)
		}
		sess.Draft = domain.NewDraft(name)
		return m.advance(ctx, in.UserID, sess, ChooseType, typeMenu())
	case IntentViewLast:
		return m.viewLast(ctx, in.UserID)
	default:
		reply := actionMenu(in.FirstName)
		reply.Edit = true
		return reply, nil
	}
}

// viewLast reads the ledger and ends the session without creating a draft.
func (m *Machine) viewLast(ctx context.Context, userID int64) (Reply, error) {
	log := logger.FromContext(ctx)

	rec, err := m.ledger.LastRecord(ctx)
	if delErr := m.store.Delete(ctx, userID); delErr != nil {
		return Reply{}, fmt.Errorf("delete session: %w", delErr)
	}
	if err != nil {
		log.Error().Err(err).Msg("Failed to read last ledger record")
		return Reply{Text: fmt.Sprintf(textLastFailed, err), Edit: true}, nil
	}
	if rec == nil {
		return Reply{Text: textNoRecords, Edit: true}, nil
	}
	return Reply{Text: RenderRecord(rec), Markdown: true, Edit: true}, nil
}

func (m *Machine) chooseType(ctx context.Context, in Input, sess Session) (Reply, error) {
	t, err := domain.ParseTxType(in.Data)
	if err != nil {
		return typeMenu(), nil
	}
	sess.Draft.SetType(t)
	return m.advance(ctx, in.UserID, sess, ChooseCategory, categoryMenu(t))
}

func (m *Machine) chooseCategory(ctx context.Context, in Input, sess Session) (Reply, error) {
	c, err := domain.ParseCategory(in.Data)
	if err != nil {
		return categoryMenu(*sess.Draft.Type), nil
	}
	sess.Draft.SetCategory(c)
	return m.advance(ctx, in.UserID, sess, ChooseConcept, conceptMenu(m.catalog, *sess.Draft.Type, c))
}

func (m *Machine) chooseConcept(ctx context.Context, in Input, sess Session) (Reply, error) {
	t := *sess.Draft.Type
	if !m.catalog.Contains(t, in.Data) {
		return conceptMenu(m.catalog, t, *sess.Draft.Category), nil
	}
	sess.Draft.SetConcept(in.Data)
	return m.advance(ctx, in.UserID, sess, EnterAmount, amountPrompt(in.Data))
}

func (m *Machine) enterAmount(ctx context.Context, in Input, sess Session) (Reply, error) {
	if in.IsCallback {
		return Reply{Text: textEnterAmount}, nil
	}
	amount, err := domain.ParseAmount(in.Text)
	if err != nil {
		var amountErr *domain.AmountError
		if errors.As(err, &amountErr) {
			switch {
			case amountErr.NotPositive:
				return Reply{Text: textAmountNotPos}, nil
			case amountErr.OutOfRange:
				return Reply{Text: textAmountTooLarge}, nil
			}
		}
		return Reply{Text: textAmountNotNumber}, nil
	}
	sess.Draft.SetAmount(amount)
	return m.advance(ctx, in.UserID, sess, Confirm, summary(sess.Draft))
}

// confirm writes the draft and always ends the session, whether or not the
// write succeeded. Failed writes are not retried.
func (m *Machine) confirm(ctx context.Context, in Input, sess Session) (Reply, error) {
	if intent, _ := ParseIntent(in.Data); intent != IntentConfirm {
		reply := summary(sess.Draft)
		reply.Edit = true
		return reply, nil
	}

	log := logger.FromContext(ctx)

	tx, finErr := sess.Draft.Finalize(m.now())
	var writeErr error
	if finErr == nil {
		writeErr = m.ledger.Append(ctx, tx)
	}

	if err := m.store.Delete(ctx, in.UserID); err != nil {
		return Reply{}, fmt.Errorf("delete session: %w", err)
	}

	if finErr != nil {
		return Reply{}, fmt.Errorf("finalize draft: %w", finErr)
	}
	if writeErr != nil {
		log.Error().Err(writeErr).Msg("Failed to append guided transaction")
		return Reply{Text: fmt.Sprintf(textSaveFailed, writeErr), Edit: true}, nil
	}

	log.Info().
		Str("type", tx.Type.Label()).
		Str("concept", tx.Concept).
		Str("amount", tx.Amount.String()).
		Msg("Guided transaction recorded")
	return Reply{Text: textSaved, Edit: true}, nil
}
