package repository

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"pi-assistant/internal/models"
)

// HistoryLog is a durable, ordered record of exchanges.
type HistoryLog interface {
	Append(ctx context.Context, ex models.Exchange) (models.Exchange, error)
	List(ctx context.Context) ([]models.Exchange, error)
	Close() error
}

// HistoryRepo owns the in-memory window and, optionally, a durable log.
// Neither operation returns an error: durable failures are logged and the
// repo degrades to memory.
type HistoryRepo struct {
	mu     sync.Mutex // orders appends so window and log agree
	window *Window
	log    HistoryLog
	logger *zap.Logger
	now    func() time.Time
}

// NewHistoryRepo accepts a nil log for memory-only operation.
func NewHistoryRepo(window *Window, log HistoryLog, logger *zap.Logger) *HistoryRepo {
	if window == nil {
		window = NewWindow(DefaultWindowSize)
	}
	return &HistoryRepo{
		window: window,
		log:    log,
		logger: logger,
		now:    time.Now,
	}
}

// persistTimeout bounds a durable write once it is detached from the caller.
const persistTimeout = 5 * time.Second

// Append records one exchange and returns it with its id and timestamp set.
// An answered exchange is persisted even if the caller's ctx is already done.
func (r *HistoryRepo) Append(ctx context.Context, prompt, response string) models.Exchange {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	r.mu.Lock()
	defer r.mu.Unlock()

	ex := models.Exchange{
		Prompt:    prompt,
		Response:  response,
		Timestamp: r.now().UTC().Format(time.RFC3339),
	}

	stored := false
	if r.log != nil {
		saved, err := r.log.Append(ctx, ex)
		if err != nil {
			r.logger.Warn("history persistence failed, keeping exchange in memory only", zap.Error(err))
		} else {
			ex = saved
			stored = true
		}
	}
	if !stored {
		ex.ID = r.window.LastID() + 1
	}

	r.window.Push(ex)
	return ex
}

// List reads the durable log when there is one, else the window. A failed
// read is an empty history. Never returns nil.
func (r *HistoryRepo) List(ctx context.Context) []models.Exchange {
	if r.log != nil {
		records, err := r.log.List(ctx)
		if err != nil {
			r.logger.Warn("failed to read history log", zap.Error(err))
			return []models.Exchange{}
		}
		return records
	}

	records := r.window.All()
	if records == nil {
		return []models.Exchange{}
	}
	return records
}

// Recent is the generation context: the last n exchanges in order.
func (r *HistoryRepo) Recent(n int) []models.Exchange {
	return r.window.Recent(n)
}

func (r *HistoryRepo) Count() int {
	return r.window.Len()
}

func (r *HistoryRepo) Close() error {
	if r.log == nil {
		return nil
	}
	return r.log.Close()
}
