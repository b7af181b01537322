package media

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/japaniel/cardsmith/pkg/db"
)

// File is a dictionary media file queued for storage.
type File struct {
	DictionaryID int64
	Path         string
	MediaType    string
	Content      []byte
}

// Writer buffers dictionary media files and stores each batch inside one
// transaction. A failing file rolls back its whole batch.
type Writer struct {
	mu          sync.Mutex
	buf         []File
	cap         int
	flushTicker *time.Ticker
	closed      bool
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc

	commitCh chan []File
	db       *sql.DB
	written  atomic.Int64
	OnError  func(error)

	// firstErr is the first asynchronous error. Protected by errMu.
	errMu    sync.Mutex
	firstErr error
}

// NewWriter creates a Writer flushing every batchSize files and, when
// flushInterval is positive, on that interval.
func NewWriter(conn *sql.DB, batchSize int, flushInterval time.Duration) *Writer {
	if batchSize <= 0 {
		batchSize = 64
	}
	ctx, cancel := context.WithCancel(context.Background())
	w := &Writer{
		buf:      make([]File, 0, batchSize),
		cap:      batchSize,
		ctx:      ctx,
		cancel:   cancel,
		commitCh: make(chan []File, 2),
		db:       conn,
	}

	w.wg.Add(1)
	go w.committer()

	if flushInterval > 0 {
		w.flushTicker = time.NewTicker(flushInterval)
		w.wg.Add(1)
		go w.loop()
	}
	return w
}

// Submit queues a file.
func (w *Writer) Submit(f File) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrWriterClosed
	}
	w.buf = append(w.buf, f)
	if len(w.buf) >= w.cap {
		w.flushLocked()
	}
	return nil
}

// Written returns the number of files committed so far.
func (w *Writer) Written() int64 { return w.written.Load() }

// flushLocked assumes w.mu is held. A full commit queue blocks Submit.
func (w *Writer) flushLocked() {
	if len(w.buf) == 0 {
		return
	}
	batch := w.buf
	w.buf = make([]File, 0, w.cap)

	select {
	case w.commitCh <- batch:
	case <-w.ctx.Done():
		w.record(fmt.Errorf("media writer: dropping batch of %d files due to context cancellation", len(batch)))
	}
}

func (w *Writer) record(err error) {
	w.errMu.Lock()
	if w.firstErr == nil {
		w.firstErr = err
	}
	w.errMu.Unlock()
	if w.OnError != nil {
		w.OnError(err)
	}
}

func (w *Writer) committer() {
	defer w.wg.Done()
	for batch := range w.commitCh {
		if err := w.executeBatch(batch); err != nil {
			w.record(err)
			continue
		}
		w.written.Add(int64(len(batch)))
	}
}

func (w *Writer) executeBatch(batch []File) error {
	if w.db == nil {
		return fmt.Errorf("media writer: no database")
	}

	// closing cancels w.ctx; queued batches still commit
	tx, err := w.db.BeginTx(context.Background(), nil)
	if err != nil {
		return fmt.Errorf("failed to begin media tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback() // ignored if committed
	}()

	for _, f := range batch {
		if _, err := db.PutDictionaryMedia(tx, f.DictionaryID, f.Path, f.MediaType, f.Content); err != nil {
			return fmt.Errorf("store %s: %w", f.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit media batch (%d files): %w", len(batch), err)
	}
	return nil
}

func (w *Writer) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case <-w.flushTicker.C:
			w.mu.Lock()
			w.flushLocked()
			w.mu.Unlock()
		}
	}
}

// Close flushes the remaining files, waits for every batch and returns the
// first error seen.
func (w *Writer) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrWriterClosed
	}
	w.closed = true
	if w.flushTicker != nil {
		w.flushTicker.Stop()
	}
	w.flushLocked()
	w.mu.Unlock()

	w.cancel()
	close(w.commitCh)
	w.wg.Wait()

	w.errMu.Lock()
	defer w.errMu.Unlock()
	return w.firstErr
}

// ErrWriterClosed is returned by Submit and Close after Close.
var ErrWriterClosed = &WriterError{"media writer closed"}

// WriterError is a typed error for writer operations.
type WriterError struct{ msg string }

func (e *WriterError) Error() string { return e.msg }
