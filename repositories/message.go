//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"context"
	"devmatch/domain"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

const MessagePrefix = "msg:"

type IMessageRepository interface {
	CreateMessage(ctx context.Context, senderID, receiverID, body string) (domain.Message, error)
	History(ctx context.Context, a, b string, cursor *string) ([]domain.Message, *string, error)
}

type MessageRepository struct {
	db            *badger.DB
	log           *slog.Logger
	limitMessages *int
	now           func() time.Time
}

func NewMessageRepository(db *badger.DB, log *slog.Logger, limitMessages *int) *MessageRepository {
	return &MessageRepository{db: db, log: log, limitMessages: limitMessages, now: time.Now}
}

// WithClock replaces the clock used to stamp messages at persistence time.
func (m *MessageRepository) WithClock(now func() time.Time) *MessageRepository {
	m.now = now
	return m
}

// CreateMessage assigns an ID and a creation timestamp then persists the message in BadgerDB.
// The key is formatted as "msg:{pair}:{timestamp_padded}:{uuid}" to:
//  1. Keep both directions of a conversation under the same prefix.
//  2. Ensure chronological sorting using 19-digit zero padding (lexicographical order).
//  3. Prevent data loss by using UUID as a collision disconnector if two messages
//     arrive at the same nanosecond.
func (m *MessageRepository) CreateMessage(ctx context.Context, senderID, receiverID, body string) (domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return domain.Message{}, err
	}
	message := domain.Message{
		ID:         uuid.New(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Body:       body,
		CreatedAt:  m.now().UTC(),
	}
	key := messageKey(message)
	err := m.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, encodeMessage(message))
	})
	if err != nil {
		return domain.Message{}, err
	}
	return message, nil
}

// History returns the conversation between a and b in non-decreasing creation order.
// Without a limit the whole conversation is returned and the cursor is nil.
// With a limit, the newest page is returned (still oldest first) together with
// a cursor pointing to older messages, nil once the beginning is reached.
func (m *MessageRepository) History(ctx context.Context, a, b string, cursor *string) ([]domain.Message, *string, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	prefix := pairPrefix(domain.NewPair(a, b))
	if m.limitMessages == nil {
		messages, err := m.scanForward(prefix)
		return messages, nil, err
	}
	return m.scanPage(prefix, cursor, *m.limitMessages)
}

func (m *MessageRepository) scanForward(prefix []byte) ([]domain.Message, error) {
	var messages []domain.Message
	err := m.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.Prefix = prefix
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			message, err := readMessage(it.Item())
			if err != nil {
				return err
			}
			messages = append(messages, message)
		}
		return nil
	})
	return messages, err
}

// scanPage walks backward from the cursor (or the newest message) and collects at most limit messages.
func (m *MessageRepository) scanPage(prefix []byte, cursor *string, limit int) ([]domain.Message, *string, error) {
	var messages []domain.Message
	var lastKey string
	exhausted := true
	err := m.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		options.Prefix = prefix
		it := txn.NewIterator(options)
		defer it.Close()

		seekKey := append([]byte{}, prefix...)
		switch cursor {
		case nil:
			// Past the newest possible key of the pair
			seekKey = append(seekKey, 0xFF)
		default:
			seekKey = append(seekKey, []byte(*cursor)...)
		}

		it.Seek(seekKey)
		if cursor != nil && it.ValidForPrefix(prefix) && string(it.Item().Key()[len(prefix):]) == *cursor {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if len(messages) == limit {
				m.log.Debug(fmt.Sprintf("Maximum of %d message reached", limit))
				exhausted = false
				break
			}
			item := it.Item()
			// Memorize cursor part of the actual key
			lastKey = string(item.Key()[len(prefix):])
			message, err := readMessage(item)
			if err != nil {
				return err
			}
			messages = append(messages, message)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	slices.Reverse(messages)
	if exhausted {
		return messages, nil, nil
	}
	return messages, &lastKey, nil
}

func readMessage(item *badger.Item) (domain.Message, error) {
	var message domain.Message
	err := item.Value(func(value []byte) error {
		decoded, err := DecodeMessage(value)
		if err != nil {
			return fmt.Errorf("decoding %s: %w", item.Key(), err)
		}
		message = decoded
		return nil
	})
	return message, err
}

func pairPrefix(pair domain.Pair) []byte {
	return []byte(MessagePrefix + pair.StorageKey() + ":")
}

func messageKey(message domain.Message) []byte {
	return []byte(fmt.Sprintf("%s%019d:%s",
		pairPrefix(message.Pair()),
		message.CreatedAt.UnixNano(),
		message.ID,
	))
}
