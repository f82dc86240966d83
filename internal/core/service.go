package core

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Defaults applied by NewService for zero-valued options.
const (
	DefaultBatchSize  = 1000
	DefaultSessionTTL = 30 * time.Minute
)

// Options tunes the import service.
type Options struct {
	MaxFileSize   int64         // Largest accepted upload in bytes
	MaxConcurrent int           // Imports parsed or committed at once
	MaxWaitTime   time.Duration // Wait for an import slot before ErrTooManyImports
	BatchSize     int           // Records per insert transaction
	SessionTTL    time.Duration // How long a preview can be committed
	QuotedFields  bool          // Honor quoted commas when tokenizing
}

// Service runs previews and registrations against a Store.
type Service struct {
	store   Store
	limiter *ImportLimiter
	opts    Options
	now     func() time.Time

	mu       sync.Mutex
	sessions map[uuid.UUID]*session
}

type session struct {
	preview   *Preview
	committed bool
	inFlight  bool
	written   map[int]bool // rows stored by earlier attempts
}

// Preview is a parsed upload held until it is committed or expires.
type Preview struct {
	ImportID   uuid.UUID     `json:"importId"`
	RecordType RecordType    `json:"recordType"`
	FileName   string        `json:"fileName"`
	Result     ImportResult  `json:"result"`
	Summary    ImportSummary `json:"summary"`
	CreatedAt  time.Time     `json:"createdAt"`
	ExpiresAt  time.Time     `json:"expiresAt"`
	DurationMs int64         `json:"durationMs"`
}

// Committable reports whether the preview holds records that can be registered.
func (p *Preview) Committable() bool {
	return p.ImportID != uuid.Nil
}

// NewService creates a Service. Zero-valued options take package defaults.
func NewService(store Store, opts Options) *Service {
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = DefaultMaxFileSize
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = DefaultSessionTTL
	}

	return &Service{
		store:    store,
		limiter:  NewImportLimiter(opts.MaxConcurrent, opts.MaxWaitTime),
		opts:     opts,
		now:      time.Now,
		sessions: make(map[uuid.UUID]*session),
	}
}

// Store returns the underlying store.
func (s *Service) Store() Store {
	return s.store
}

// ParseOptions returns the tokenizer options the service parses with.
func (s *Service) ParseOptions() ParseOptions {
	return ParseOptions{QuotedFields: s.opts.QuotedFields}
}

// LimiterStatus reports import slot usage.
func (s *Service) LimiterStatus() ImportLimiterStatus {
	return s.limiter.Status()
}

// Preview reads and parses an upload. When the parse accepted at least one
// record the preview is kept for SessionTTL and can be committed by ImportID.
func (s *Service) Preview(ctx context.Context, rt RecordType, fileName string, r io.Reader) (*Preview, error) {
	schema, ok := SchemaFor(rt)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRecordType, rt)
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	start := s.now()

	text, err := ReadImportText(r, s.opts.MaxFileSize)
	if err != nil {
		return nil, err
	}

	result := ParseWith(text, schema, schema.RequiredHeaders, s.ParseOptions())

	p := &Preview{
		RecordType: rt,
		FileName:   fileName,
		Result:     result,
		Summary:    result.Summary(),
		CreatedAt:  start,
		DurationMs: s.now().Sub(start).Milliseconds(),
	}

	if len(result.Records) > 0 {
		p.ImportID = uuid.New()
		p.ExpiresAt = start.Add(s.opts.SessionTTL)

		s.mu.Lock()
		s.sessions[p.ImportID] = &session{preview: p}
		s.mu.Unlock()
	}

	slog.Info("import previewed",
		append([]any{
			"import_id", p.ImportID,
			"record_type", rt,
			"file", fileName,
			"outcome", p.Summary.Outcome,
			"ready", p.Summary.Ready,
			"errors", len(result.Errors),
			"duration_ms", p.DurationMs,
		}, clientAttrs(ctx)...)...,
	)

	return p, nil
}

// GetPreview returns a live preview session.
func (s *Service) GetPreview(importID uuid.UUID) (*Preview, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.liveSession(importID)
	if err != nil {
		return nil, err
	}
	return sess.preview, nil
}

// liveSession must be called with s.mu held.
func (s *Service) liveSession(importID uuid.UUID) (*session, error) {
	sess, ok := s.sessions[importID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrImportNotFound, importID)
	}
	if s.now().After(sess.preview.ExpiresAt) {
		delete(s.sessions, importID)
		return nil, fmt.Errorf("%w: %s expired", ErrImportNotFound, importID)
	}
	return sess, nil
}

// CommitResult is the outcome of registering a previewed import.
// Errors holds the preview's parse errors followed by registration
// errors, ordered by row.
type CommitResult struct {
	ImportID   uuid.UUID         `json:"importId"`
	RecordType RecordType        `json:"recordType"`
	FileName   string            `json:"fileName"`
	Inserted   int               `json:"inserted"`
	Errors     []ValidationError `json:"errors"`
	DurationMs int64             `json:"durationMs"`
}

// Outcome classifies the commit the same way ImportResult.Outcome does.
func (c CommitResult) Outcome() ImportOutcome {
	switch {
	case c.Inserted == 0:
		return OutcomeFailed
	case len(c.Errors) > 0:
		return OutcomePartial
	default:
		return OutcomeSuccess
	}
}

// Commit registers the records of a preview session.
// A session can be committed once. When storage fails part way, the partial
// result is returned with the error and the session stays open; a retry
// inserts only the records that were not written yet.
func (s *Service) Commit(ctx context.Context, importID uuid.UUID) (*CommitResult, error) {
	s.mu.Lock()
	sess, err := s.liveSession(importID)
	if err == nil && (sess.committed || sess.inFlight) {
		err = fmt.Errorf("%w: %s", ErrImportCommitted, importID)
	}
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	sess.inFlight = true
	s.mu.Unlock()

	committed := false
	defer func() {
		s.mu.Lock()
		sess.inFlight = false
		sess.committed = committed
		s.mu.Unlock()
	}()

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	p := sess.preview
	start := s.now()

	reg, regErr := s.register(ctx, p.RecordType, importID, p.Result.Records, sess.written)
	if reg == nil {
		return nil, fmt.Errorf("commit %s: %w", importID, regErr)
	}
	committed = regErr == nil

	s.mu.Lock()
	if sess.written == nil {
		sess.written = make(map[int]bool, len(reg.written))
	}
	for _, row := range reg.written {
		sess.written[row] = true
	}
	inserted := len(sess.written)
	s.mu.Unlock()

	res := &CommitResult{
		ImportID:   importID,
		RecordType: p.RecordType,
		FileName:   p.FileName,
		Inserted:   inserted,
		Errors:     MergeErrors(p.Result.Errors, reg.Errors),
		DurationMs: s.now().Sub(start).Milliseconds(),
	}

	if committed || inserted > 0 {
		s.recordHistory(ctx, ImportBatch{
			ID:         importID,
			RecordType: p.RecordType,
			FileName:   p.FileName,
			Inserted:   inserted,
			Skipped:    len(p.Result.Records) - inserted,
			Errors:     len(res.Errors),
			DurationMs: res.DurationMs,
			CreatedAt:  start,
		})
	}

	attrs := append([]any{
		"import_id", importID,
		"record_type", p.RecordType,
		"inserted", res.Inserted,
		"errors", len(res.Errors),
		"outcome", res.Outcome(),
		"duration_ms", res.DurationMs,
	}, clientAttrs(ctx)...)

	if regErr != nil {
		slog.Error("import commit incomplete", append(attrs, "error", regErr)...)
		return res, fmt.Errorf("commit %s: %w", importID, regErr)
	}

	slog.Info("import committed", attrs...)
	return res, nil
}

// recordHistory logs but does not return history failures; the records
// are already registered at this point. A retried commit replaces the entry
// written by the failed attempt.
func (s *Service) recordHistory(ctx context.Context, batch ImportBatch) {
	if err := s.store.RecordImport(ctx, batch); err != nil {
		slog.Error("record import history", "import_id", batch.ID, "error", err)
	}
}

// ImportHistory returns the most recent imports for a record type, or for
// all types when rt is empty.
func (s *Service) ImportHistory(ctx context.Context, rt RecordType, limit int) ([]ImportBatch, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.store.ListImports(ctx, rt, limit)
}

// MergeErrors concatenates error lists and orders them by row. Structural
// errors (row 0) come first; errors within a row keep their relative order.
func MergeErrors(lists ...[]ValidationError) []ValidationError {
	var n int
	for _, l := range lists {
		n += len(l)
	}
	merged := make([]ValidationError, 0, n)
	for _, l := range lists {
		merged = append(merged, l...)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Row < merged[j].Row
	})
	return merged
}

// SweepExpired removes preview sessions past their expiry and returns how many.
func (s *Service) SweepExpired() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	for id, sess := range s.sessions {
		if now.After(sess.preview.ExpiresAt) && !sess.inFlight {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

// StartSessionSweeper removes expired previews every interval until ctx is done.
func (s *Service) StartSessionSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	slog.Info("session sweeper started", "interval", interval, "ttl", s.opts.SessionTTL)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("session sweeper stopped")
			return
		case <-ticker.C:
			if n := s.SweepExpired(); n > 0 {
				slog.Debug("expired preview sessions removed", "count", n)
			}
		}
	}
}

// WaitForImports blocks until in-flight previews and commits finish or ctx is done.
func (s *Service) WaitForImports(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}
