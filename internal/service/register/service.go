// Package register implements the registration writer: one transaction
// creates the registration row and its outbox row, so a registration
// never exists without a durable delivery intent and vice versa.
package register

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/mkarimov/event-gateway/internal/model"
	"github.com/mkarimov/event-gateway/internal/repository"
	"github.com/mkarimov/event-gateway/internal/util"
)

var (
	ErrEventNotFound     = errors.New("event not found")
	ErrEventClosed       = errors.New("event closed for registration")
	ErrAlreadyRegistered = errors.New("already registered for this event")
)

// Result is the pair produced by a successful registration.
type Result struct {
	Registration model.Registration
	Message      model.OutboxMessage
}

// Service writes registrations and their outbox messages atomically.
type Service struct {
	tx      repository.TxRunner
	events  repository.EventsRepository
	regs    repository.RegistrationsRepository
	outbox  repository.OutboxRepository
	ownerID string
}

// New constructs the registration service. ownerID is the tenant id
// stamped into every notification payload.
func New(
	tx repository.TxRunner,
	eventsRepo repository.EventsRepository,
	regsRepo repository.RegistrationsRepository,
	outboxRepo repository.OutboxRepository,
	ownerID string,
) *Service {
	return &Service{
		tx:      tx,
		events:  eventsRepo,
		regs:    regsRepo,
		outbox:  outboxRepo,
		ownerID: ownerID,
	}
}

// Register validates the target event, then inserts the registration and
// exactly one pending outbox message within a single transaction. The
// payload is rendered here so delivery never depends on mutable state.
func (s *Service) Register(ctx context.Context, eventID, fullName, email string) (*Result, error) {
	regID := util.NewID()
	msgID := util.NewID() // idempotency key handed to the gateway
	code := util.ConfirmationCode()

	var res *Result
	err := s.tx.WithTx(ctx, func(tx *sqlx.Tx) error {
		ev, err := s.events.GetByID(ctx, tx, eventID)
		if err != nil {
			return fmt.Errorf("get event: %w", err)
		}
		if ev == nil {
			return ErrEventNotFound
		}
		if !ev.OpenForRegistration(time.Now()) {
			return ErrEventClosed
		}

		reg := model.Registration{
			ID:               regID,
			EventID:          ev.ID,
			FullName:         fullName,
			Email:            email,
			ConfirmationCode: code,
		}

		notif := model.Notification{
			ID:      msgID,
			OwnerID: s.ownerID,
			Email:   email,
			Message: renderMessage(fullName, ev.Name, code),
		}
		payload, err := json.Marshal(notif)
		if err != nil {
			return fmt.Errorf("marshal notification: %w", err)
		}

		if err := s.regs.Insert(ctx, tx, reg); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrAlreadyRegistered
			}
			return fmt.Errorf("insert registration: %w", err)
		}

		msg := model.OutboxMessage{
			ID:             msgID,
			RegistrationID: regID,
			Payload:        payload,
			Status:         model.OutboxStatusPending,
		}
		if err := s.outbox.Insert(ctx, tx, msg); err != nil {
			return fmt.Errorf("insert outbox: %w", err)
		}

		res = &Result{Registration: reg, Message: msg}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return res, nil
}

func renderMessage(fullName, eventName, code string) string {
	return fmt.Sprintf(
		"Hello, %s!\nYou have successfully registered for: %s.\nYour confirmation code: %s",
		fullName, eventName, code,
	)
}
