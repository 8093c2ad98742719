package runtime

import (
	"context"
	"devmatch/contract"
	"devmatch/domain"
	"devmatch/domain/event"
	"devmatch/errors"
	"devmatch/repositories"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"
)

// Broker persists chat messages then fans them out to every live connection
// of the receiver and of the sender.
//
// Delivery is conditioned on persistence: nothing is pushed for a message
// the store did not accept. Sends are not idempotent, a retried send is a new message.
type Broker struct {
	log            *slog.Logger
	registry       contract.IRegistry
	repository     repositories.IMessageRepository
	maxBodyLength  int
	persistTimeout time.Duration
}

func NewBroker(log *slog.Logger, registry contract.IRegistry, repository repositories.IMessageRepository,
	maxBodyLength int, persistTimeout time.Duration) *Broker {
	return &Broker{
		log:            log,
		registry:       registry,
		repository:     repository,
		maxBodyLength:  maxBodyLength,
		persistTimeout: persistTimeout,
	}
}

// Validate rejects a send before any side effect.
// Only an identified session may send, and only on its own behalf.
func (b *Broker) Validate(session *Session, cmd domain.SendMessageCommand) error {
	if err := domain.Validate(cmd); err != nil {
		return err
	}
	if b.maxBodyLength > 0 && utf8.RuneCountInString(cmd.Body) > b.maxBodyLength {
		return fmt.Errorf("%w: body exceeds %d characters", errors.ErrValidation, b.maxBodyLength)
	}
	if session == nil || session.State() != StateIdentified {
		return errors.ErrAnonymousSender
	}
	if session.Identity() != cmd.SenderID {
		return errors.ErrSenderMismatch
	}
	return nil
}

// Persist writes the message through the store, which assigns its ID and timestamp.
// It is the only call of the core that may be slow, it never runs on the dispatcher loop.
func (b *Broker) Persist(ctx context.Context, cmd domain.SendMessageCommand) (domain.Message, error) {
	if b.persistTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.persistTimeout)
		defer cancel()
	}
	message, err := b.repository.CreateMessage(ctx, cmd.SenderID, cmd.ReceiverID, cmd.Body)
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}
	return message, nil
}

// Deliver pushes the persisted message to the receiver's connections and to the
// sender's connections, including the one that originated the send.
// It returns the number of connections reached.
func (b *Broker) Deliver(ctx context.Context, message domain.Message) int {
	sinks := b.registry.SinksFor(message.ReceiverID)
	if message.SenderID != message.ReceiverID {
		sinks = append(sinks, b.registry.SinksFor(message.SenderID)...)
	}

	delivered := 0
	evt := event.MessageDelivered{Message: message}
	for _, sink := range sinks {
		if err := sink.Consume(ctx, evt); err != nil {
			b.log.Warn("Failed to push message",
				"message_id", message.ID,
				"error", err)
			continue
		}
		delivered++
	}
	return delivered
}
