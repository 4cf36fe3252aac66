package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"hfl-auth/internal/client"
	"hfl-auth/internal/util"
)

const (
	auditBufferSize    = 1024
	auditFlushInterval = 5 * time.Second
	auditInsertQuery   = `INSERT INTO auth_audit (id, event_type, phone, outcome, at)`
)

// AuditSink records verification outcomes into ClickHouse asynchronously.
// Rows are buffered and flushed in batches; a full buffer drops the row
// rather than stalling the auth flow. A nil sink is valid and drops
// everything.
type AuditSink struct {
	ch      *client.ClickHouseClient
	rows    chan []interface{}
	done    chan struct{}
	wg      sync.WaitGroup
	started bool
}

func NewAuditSink(ch *client.ClickHouseClient) *AuditSink {
	return &AuditSink{
		ch:   ch,
		rows: make(chan []interface{}, auditBufferSize),
		done: make(chan struct{}),
	}
}

func (s *AuditSink) Start() {
	if s == nil || s.ch == nil || s.started {
		return
	}
	s.started = true
	s.wg.Add(1)
	go s.flushLoop()
}

func (s *AuditSink) Stop() {
	if s == nil || !s.started {
		return
	}
	close(s.done)
	s.wg.Wait()
}

// Record enqueues one outcome row. Never blocks.
func (s *AuditSink) Record(eventType, phone, outcome string) {
	if s == nil || s.ch == nil {
		return
	}
	row := []interface{}{
		uuid.NewString(),
		eventType,
		phone,
		outcome,
		time.Now().UTC(),
	}
	select {
	case s.rows <- row:
	default:
		util.Warn("Audit buffer full, dropping row", zap.String("event_type", eventType))
	}
}

func (s *AuditSink) flushLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(auditFlushInterval)
	defer ticker.Stop()

	batch := make([][]interface{}, 0, 256)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := s.ch.BatchInsert(ctx, auditInsertQuery, batch); err != nil {
			util.Error("Failed to flush audit batch",
				zap.Int("rows", len(batch)),
				zap.Error(err))
		}
		cancel()
		batch = batch[:0]
	}

	for {
		select {
		case row := <-s.rows:
			batch = append(batch, row)
			if len(batch) >= 256 {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-s.done:
			// Drain whatever is queued before exiting.
			for {
				select {
				case row := <-s.rows:
					batch = append(batch, row)
				default:
					flush()
					return
				}
			}
		}
	}
}
