package handlers

import (
	"context"
	"log/slog"
	"sync"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// UserQueue runs the updates of one user one at a time, in the order they
// were received, while different users proceed in parallel. Its Middleware
// must be the outermost one of a bot created with WithNotAsyncHandlers and a
// single worker, so that updates reach it in arrival order.
type UserQueue struct {
	logger *slog.Logger

	mu      sync.Mutex
	pending map[int64][]func()
	wg      sync.WaitGroup
}

// NewUserQueue creates an empty queue.
func NewUserQueue(logger *slog.Logger) *UserQueue {
	return &UserQueue{
		logger:  logger.With("component", "user_queue"),
		pending: make(map[int64][]func()),
	}
}

// Middleware hands every update to the queue of its sender and returns
// without waiting for the handler. Updates without a sender run on their
// own goroutine.
func (q *UserQueue) Middleware(next tgbot.HandlerFunc) tgbot.HandlerFunc {
	return func(ctx context.Context, b *tgbot.Bot, update *models.Update) {
		run := func() { next(ctx, b, update) }

		userID, ok := UpdateUserID(update)
		if !ok {
			q.wg.Add(1)
			go func() {
				defer q.wg.Done()
				run()
			}()
			return
		}
		q.enqueue(userID, run)
	}
}

func (q *UserQueue) enqueue(userID int64, run func()) {
	q.mu.Lock()
	defer q.mu.Unlock()

	queued, active := q.pending[userID]
	q.pending[userID] = append(queued, run)
	if active {
		return
	}

	q.wg.Add(1)
	go q.drain(userID)
}

// drain runs the user's updates until the queue is empty. The map entry
// exists exactly while a drain goroutine runs for that user.
func (q *UserQueue) drain(userID int64) {
	defer q.wg.Done()

	for {
		q.mu.Lock()
		queued := q.pending[userID]
		if len(queued) == 0 {
			delete(q.pending, userID)
			q.mu.Unlock()
			return
		}
		run := queued[0]
		q.pending[userID] = queued[1:]
		q.mu.Unlock()

		q.logger.Debug("Running queued update", "user_id", userID, "backlog", len(queued)-1)
		run()
	}
}

// Active reports how many users have updates queued or running.
func (q *UserQueue) Active() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Wait blocks until every queued update has been handled.
func (q *UserQueue) Wait() {
	q.wg.Wait()
}

// UpdateUserID returns the id of the user who sent update.
func UpdateUserID(update *models.Update) (int64, bool) {
	switch {
	case update.Message != nil && update.Message.From != nil:
		return update.Message.From.ID, true
	case update.CallbackQuery != nil:
		return update.CallbackQuery.From.ID, true
	case update.EditedMessage != nil && update.EditedMessage.From != nil:
		return update.EditedMessage.From.ID, true
	}
	return 0, false
}
