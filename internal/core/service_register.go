package core

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// RegisterResult reports what a registration wrote and what it rejected.
type RegisterResult struct {
	ImportID     uuid.UUID         `json:"importId"`
	SuccessCount int               `json:"successCount"`
	Errors       []ValidationError `json:"errors"`

	// rows of the records InsertBatch wrote, in insert order
	written []int
}

// Register persists parsed records under a new import ID.
//
// Records repeating an identifier seen earlier in recs are rejected, then
// records whose identifier is already stored. The rest are inserted in
// batches of Options.BatchSize, one transaction per batch. Rejections are
// reported as ErrorDuplicate entries; a returned error means storage failed
// and SuccessCount holds what was written before the failure.
func (s *Service) Register(ctx context.Context, rt RecordType, recs []Record) (*RegisterResult, error) {
	if _, ok := SchemaFor(rt); !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRecordType, rt)
	}
	return s.register(ctx, rt, uuid.New(), recs, nil)
}

// register dedupes recs and inserts the rest. Records whose row is in done
// were written by an earlier attempt of the same import: they take part in
// deduplication but are neither checked against the store nor inserted again.
func (s *Service) register(ctx context.Context, rt RecordType, importID uuid.UUID, recs []Record, done map[int]bool) (*RegisterResult, error) {
	schema, ok := SchemaFor(rt)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRecordType, rt)
	}

	res := &RegisterResult{
		ImportID: importID,
		Errors:   []ValidationError{},
	}

	unique, dupErrs := dedupeRecords(schema, recs)
	res.Errors = append(res.Errors, dupErrs...)
	if len(done) > 0 {
		pending := unique[:0:0]
		for _, r := range unique {
			if !done[r.Row] {
				pending = append(pending, r)
			}
		}
		unique = pending
	}
	if len(unique) == 0 {
		return res, nil
	}

	ids := make([]string, len(unique))
	for i, r := range unique {
		ids[i] = r.Identifier
	}
	existing, err := s.store.ExistingIdentifiers(ctx, rt, ids)
	if err != nil {
		return nil, fmt.Errorf("check existing %s identifiers: %w", rt, err)
	}

	taken := make(map[string]bool, len(existing))
	for _, id := range existing {
		taken[id] = true
	}

	fresh := unique[:0:0]
	for _, r := range unique {
		if taken[r.Identifier] {
			res.Errors = append(res.Errors, ValidationError{
				Row:        r.Row,
				Identifier: r.Identifier,
				Field:      schema.IdentifierField,
				Value:      r.Identifier,
				Kind:       ErrorDuplicate,
				Message:    fmt.Sprintf("%s %s already registered", schema.IdentifierField, r.Identifier),
			})
			continue
		}
		fresh = append(fresh, r)
	}

	for start := 0; start < len(fresh); start += s.opts.BatchSize {
		end := min(start+s.opts.BatchSize, len(fresh))

		n, err := s.store.InsertBatch(ctx, rt, importID, fresh[start:end])
		res.SuccessCount += n
		for _, r := range fresh[start : start+n] {
			res.written = append(res.written, r.Row)
		}
		if err != nil {
			slog.Error("insert batch failed",
				"import_id", importID,
				"record_type", rt,
				"batch_start", start,
				"inserted", res.SuccessCount,
				"error", err,
			)
			return res, fmt.Errorf("insert %s batch at record %d: %w", rt, start, err)
		}
	}

	res.Errors = MergeErrors(res.Errors)
	return res, nil
}

// dedupeRecords keeps the first record per identifier.
func dedupeRecords(schema Schema, recs []Record) ([]Record, []ValidationError) {
	firstRow := make(map[string]int, len(recs))
	unique := make([]Record, 0, len(recs))
	var errs []ValidationError

	for _, r := range recs {
		if row, seen := firstRow[r.Identifier]; seen {
			errs = append(errs, ValidationError{
				Row:        r.Row,
				Identifier: r.Identifier,
				Field:      schema.IdentifierField,
				Value:      r.Identifier,
				Kind:       ErrorDuplicate,
				Message:    fmt.Sprintf("duplicate identifier %s (first seen in row %d)", r.Identifier, row),
			})
			continue
		}
		firstRow[r.Identifier] = r.Row
		unique = append(unique, r)
	}
	return unique, errs
}

// RegisterObjects validates field maps with the same rules as a CSV row and
// registers the accepted records. Object i is reported as row i+1. Unknown
// keys are ignored. When storage fails after some batches were written, the
// partial result is returned along with the error.
func (s *Service) RegisterObjects(ctx context.Context, rt RecordType, objs []map[string]string) (*CommitResult, error) {
	schema, ok := SchemaFor(rt)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRecordType, rt)
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	start := s.now()
	parsed := ValidateObjects(schema, objs)

	reg, regErr := s.register(ctx, rt, uuid.New(), parsed.Records, nil)
	if reg == nil {
		return nil, regErr
	}

	res := &CommitResult{
		ImportID:   reg.ImportID,
		RecordType: rt,
		Inserted:   reg.SuccessCount,
		Errors:     MergeErrors(parsed.Errors, reg.Errors),
		DurationMs: s.now().Sub(start).Milliseconds(),
	}

	if res.Inserted > 0 {
		s.recordHistory(ctx, ImportBatch{
			ID:         res.ImportID,
			RecordType: rt,
			FileName:   "api",
			Inserted:   res.Inserted,
			Skipped:    len(objs) - res.Inserted,
			Errors:     len(res.Errors),
			DurationMs: res.DurationMs,
			CreatedAt:  start,
		})
	}

	slog.Info("records registered",
		append([]any{
			"import_id", res.ImportID,
			"record_type", rt,
			"submitted", len(objs),
			"inserted", res.Inserted,
			"errors", len(res.Errors),
		}, clientAttrs(ctx)...)...,
	)

	if regErr != nil {
		return res, regErr
	}
	return res, nil
}

// Records returns one page of stored records and the total count.
func (s *Service) Records(ctx context.Context, rt RecordType, limit, offset int) ([]StoredRecord, int64, error) {
	if _, ok := SchemaFor(rt); !ok {
		return nil, 0, fmt.Errorf("%w: %q", ErrUnknownRecordType, rt)
	}
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.List(ctx, rt, limit, offset)
}
