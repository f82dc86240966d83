package core_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/idcards/internal/core"
	_ "github.com/JonMunkholm/idcards/internal/core/records"
	"github.com/JonMunkholm/idcards/internal/store/memstore"
)

const employeeCSV = `fullName,employeeId,department,designation,employeeType,dateOfJoining,mobileNumber
"Dr. Jane Doe","EMP001","CS","Professor","FACULTY","2020-08-15","9876543210"
"John Smith","EMP002","Admin","Clerk","CONTRACTOR","2021-02-01","12345"
"Asha Rao","EMP003","CS","Lecturer","FACULTY","2021-06-01","987654321"
"Asha Rao","EMP003","CS","Lecturer","FACULTY","2021-06-01",""
`

func newService(t *testing.T, opts core.Options) (*core.Service, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	return core.NewService(store, opts), store
}

func TestPreviewAndCommit(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t, core.Options{})

	p, err := svc.Preview(ctx, core.Employee, "staff.csv", strings.NewReader(employeeCSV))
	require.NoError(t, err)
	require.True(t, p.Committable())

	assert.Equal(t, core.OutcomePartial, p.Summary.Outcome)
	assert.Equal(t, 3, p.Summary.Ready)
	assert.Equal(t, 1, p.Summary.SkippedRows)
	assert.Equal(t, 1, p.Summary.ClearedFields)

	res, err := svc.Commit(ctx, p.ImportID)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Inserted)
	assert.Equal(t, core.OutcomePartial, res.Outcome())

	// Parse errors for rows 2 and 3, then the in-file duplicate on row 4.
	require.Len(t, res.Errors, 4)
	rows := make([]int, len(res.Errors))
	for i, e := range res.Errors {
		rows[i] = e.Row
	}
	assert.Equal(t, []int{2, 2, 3, 4}, rows)
	assert.Equal(t, core.ErrorDuplicate, res.Errors[3].Kind)

	count, err := store.Count(ctx, core.Employee)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	history, err := svc.ImportHistory(ctx, core.Employee, 5)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "staff.csv", history[0].FileName)
	assert.Equal(t, 2, history[0].Inserted)
}

func TestCommitTwice(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, core.Options{})

	p, err := svc.Preview(ctx, core.Employee, "staff.csv", strings.NewReader(employeeCSV))
	require.NoError(t, err)

	_, err = svc.Commit(ctx, p.ImportID)
	require.NoError(t, err)

	_, err = svc.Commit(ctx, p.ImportID)
	assert.ErrorIs(t, err, core.ErrImportCommitted)
}

func TestCommitUnknownImport(t *testing.T) {
	svc, _ := newService(t, core.Options{})

	_, err := svc.Commit(context.Background(), uuid.New())
	assert.ErrorIs(t, err, core.ErrImportNotFound)
	assert.Equal(t, "UPL003", core.MapError(err).Code)
}

func TestPreviewStructuralFailureIsNotCommittable(t *testing.T) {
	svc, _ := newService(t, core.Options{})

	p, err := svc.Preview(context.Background(), core.Student, "students.csv",
		strings.NewReader("prn,fullName\n1,Asha\n"))
	require.NoError(t, err)

	assert.False(t, p.Committable())
	assert.Equal(t, core.OutcomeFailed, p.Summary.Outcome)
	require.Len(t, p.Result.Errors, 1)
	assert.Equal(t, "missing required headers: branch, yearOfStudy, dateOfBirth", p.Result.Errors[0].Message)
}

func TestPreviewRejectsOversizedAndEmptyFiles(t *testing.T) {
	svc, _ := newService(t, core.Options{MaxFileSize: 64})

	_, err := svc.Preview(context.Background(), core.Employee, "big.csv", strings.NewReader(employeeCSV))
	assert.ErrorIs(t, err, core.ErrFileTooLarge)

	_, err = svc.Preview(context.Background(), core.Employee, "empty.csv", strings.NewReader(""))
	assert.ErrorIs(t, err, core.ErrEmptyFile)
}

func TestPreviewUnknownRecordType(t *testing.T) {
	svc, _ := newService(t, core.Options{})

	_, err := svc.Preview(context.Background(), core.RecordType("alumni"), "x.csv", strings.NewReader("a\nb"))
	assert.ErrorIs(t, err, core.ErrUnknownRecordType)
}

func TestSessionExpiry(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, core.Options{SessionTTL: 20 * time.Millisecond})

	p, err := svc.Preview(ctx, core.Employee, "staff.csv", strings.NewReader(employeeCSV))
	require.NoError(t, err)

	_, err = svc.GetPreview(p.ImportID)
	require.NoError(t, err)

	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, 1, svc.SweepExpired())

	_, err = svc.Commit(ctx, p.ImportID)
	assert.ErrorIs(t, err, core.ErrImportNotFound)
}

func TestRegisterRejectsPersistedDuplicates(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, core.Options{BatchSize: 2})

	first, err := svc.RegisterObjects(ctx, core.Student, []map[string]string{
		{"prn": "P1", "fullName": "Asha"},
		{"prn": "P2", "fullName": "Ravi"},
		{"prn": "P3", "fullName": "Mira"},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, first.Inserted)
	assert.Empty(t, first.Errors)

	second, err := svc.RegisterObjects(ctx, core.Student, []map[string]string{
		{"prn": "P2", "fullName": "Ravi"},
		{"prn": "P4", "fullName": "Neha", "yearOfStudy": "XE"},
		{"prn": "P5", "fullName": "Kiran"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, second.Inserted)
	require.Len(t, second.Errors, 2)
	assert.Equal(t, core.ErrorDuplicate, second.Errors[0].Kind)
	assert.Equal(t, "REG001", core.MapError(second.Errors[0]).Code)
	assert.Equal(t, "yearOfStudy", second.Errors[1].Field)

	page, total, err := svc.Records(ctx, core.Student, 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 4, total)
	assert.Equal(t, "P5", page[0].Identifier)
}

// failingStore fails InsertBatch after the first call.
type failingStore struct {
	*memstore.Store
	mu    sync.Mutex
	calls int
}

func (f *failingStore) InsertBatch(ctx context.Context, rt core.RecordType, id uuid.UUID, recs []core.Record) (int, error) {
	f.mu.Lock()
	f.calls++
	n := f.calls
	f.mu.Unlock()
	if n > 1 {
		return 0, errors.New("connection reset by peer")
	}
	return f.Store.InsertBatch(ctx, rt, id, recs)
}

func TestRegisterReportsPartialBatches(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{Store: memstore.New()}
	svc := core.NewService(store, core.Options{BatchSize: 2})

	recs := make([]core.Record, 5)
	for i := range recs {
		id := fmt.Sprintf("P%d", i+1)
		recs[i] = core.Record{Row: i + 1, Identifier: id, Fields: map[string]core.Value{"prn": {Text: id}}}
	}

	res, err := svc.Register(ctx, core.Student, recs)
	require.Error(t, err)
	assert.Equal(t, "DB005", core.MapError(err).Code)
	require.NotNil(t, res)
	assert.Equal(t, 2, res.SuccessCount)
}

// flakyStore fails InsertBatch once, on call failOn.
type flakyStore struct {
	*memstore.Store
	failOn int

	mu    sync.Mutex
	calls int
}

func (f *flakyStore) InsertBatch(ctx context.Context, rt core.RecordType, id uuid.UUID, recs []core.Record) (int, error) {
	f.mu.Lock()
	f.calls++
	n := f.calls
	f.mu.Unlock()
	if n == f.failOn {
		return 0, errors.New("write tcp: connection reset by peer")
	}
	return f.Store.InsertBatch(ctx, rt, id, recs)
}

func TestCommitResumesAfterPartialFailure(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{Store: memstore.New(), failOn: 2}
	svc := core.NewService(store, core.Options{BatchSize: 1})

	p, err := svc.Preview(ctx, core.Employee, "staff.csv", strings.NewReader(employeeCSV))
	require.NoError(t, err)

	// EMP001 is written, then the EMP003 batch fails.
	first, err := svc.Commit(ctx, p.ImportID)
	require.Error(t, err)
	assert.Equal(t, "DB005", core.MapError(err).Code)
	require.NotNil(t, first)
	assert.Equal(t, 1, first.Inserted)

	count, err := store.Count(ctx, core.Employee)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	history, err := svc.ImportHistory(ctx, core.Employee, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, 1, history[0].Inserted)

	// The retry writes only EMP003 and reports no duplicates of its own rows.
	second, err := svc.Commit(ctx, p.ImportID)
	require.NoError(t, err)
	assert.Equal(t, 2, second.Inserted)
	for _, e := range second.Errors {
		assert.NotContains(t, e.Message, "already registered")
	}
	rows := make([]int, len(second.Errors))
	for i, e := range second.Errors {
		rows[i] = e.Row
	}
	assert.Equal(t, []int{2, 2, 3, 4}, rows)

	count, err = store.Count(ctx, core.Employee)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	history, err = svc.ImportHistory(ctx, core.Employee, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, 2, history[0].Inserted)
	assert.Equal(t, 1, history[0].Skipped)

	_, err = svc.Commit(ctx, p.ImportID)
	assert.ErrorIs(t, err, core.ErrImportCommitted)
}

func TestRegisterObjectsReturnsPartialResult(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{Store: memstore.New(), failOn: 2}
	svc := core.NewService(store, core.Options{BatchSize: 1})

	res, err := svc.RegisterObjects(ctx, core.Student, []map[string]string{
		{"prn": "P1", "fullName": "Aarav", "yearOfStudy": "TE"},
		{"prn": "P2", "fullName": "Sneha", "yearOfStudy": "SE"},
	})
	require.Error(t, err)
	require.NotNil(t, res)
	assert.Equal(t, 1, res.Inserted)
	assert.Equal(t, core.OutcomeSuccess, res.Outcome())

	history, err := svc.ImportHistory(ctx, core.Student, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, res.ImportID, history[0].ID)
	assert.Equal(t, 1, history[0].Inserted)
}

func TestConcurrentPreviewsRespectLimit(t *testing.T) {
	svc, _ := newService(t, core.Options{MaxConcurrent: 2, MaxWaitTime: 2 * time.Second})

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Preview(context.Background(), core.Employee, "staff.csv", strings.NewReader(employeeCSV))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 0, svc.LimiterStatus().Active)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, svc.WaitForImports(ctx))
}
