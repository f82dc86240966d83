package pgstore

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/idcards/internal/core"
)

// openTestStore connects to IDCARDS_TEST_DATABASE_URL and skips when unset.
// Each test works under its own record type so runs do not collide.
func openTestStore(t *testing.T) (*Store, core.RecordType) {
	t.Helper()

	url := os.Getenv("IDCARDS_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("IDCARDS_TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := Connect(ctx, url, PoolOptions{MaxConns: 4})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	s := New(pool)
	require.NoError(t, s.Migrate(ctx))

	rt := core.RecordType("test_" + uuid.NewString()[:8])
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DELETE FROM id_records WHERE record_type = $1`, string(rt))
		_, _ = pool.Exec(context.Background(), `DELETE FROM import_batches WHERE record_type = $1`, string(rt))
	})
	return s, rt
}

func record(id, name string) core.Record {
	return core.Record{
		Identifier: id,
		Fields: map[string]core.Value{
			"employeeId": {Text: id},
			"fullName":   {Text: name},
		},
	}
}

func TestStore_InsertListCount(t *testing.T) {
	s, rt := openTestStore(t)
	ctx := context.Background()
	importID := uuid.New()

	n, err := s.InsertBatch(ctx, rt, importID, []core.Record{record("E1", "Asha"), record("E2", "Ravi")})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	found, err := s.ExistingIdentifiers(ctx, rt, []string{"E1", "E9"})
	require.NoError(t, err)
	assert.Equal(t, []string{"E1"}, found)

	page, total, err := s.List(ctx, rt, 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, page, 2)
	assert.Equal(t, importID, page[0].ImportID)
	assert.Equal(t, rt, page[0].RecordType)
	assert.NotEmpty(t, page[0].Fields["fullName"])
}

func TestStore_DuplicateRollsBackBatch(t *testing.T) {
	s, rt := openTestStore(t)
	ctx := context.Background()

	_, err := s.InsertBatch(ctx, rt, uuid.New(), []core.Record{record("E1", "Asha")})
	require.NoError(t, err)

	_, err = s.InsertBatch(ctx, rt, uuid.New(), []core.Record{record("E2", "Ravi"), record("E1", "Asha")})
	require.Error(t, err)

	var pgErr *pgconn.PgError
	require.True(t, errors.As(err, &pgErr))
	assert.Equal(t, "23505", pgErr.Code)
	assert.Equal(t, "DB001", core.MapError(err).Code)

	count, err := s.Count(ctx, rt)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestStore_ImportHistory(t *testing.T) {
	s, rt := openTestStore(t)
	ctx := context.Background()
	at := time.Now().UTC().Truncate(time.Millisecond)

	require.NoError(t, s.RecordImport(ctx, core.ImportBatch{
		ID: uuid.New(), RecordType: rt, FileName: "old.csv", Inserted: 1, CreatedAt: at.Add(-time.Hour),
	}))
	require.NoError(t, s.RecordImport(ctx, core.ImportBatch{
		ID: uuid.New(), RecordType: rt, FileName: "new.csv", Inserted: 5, Skipped: 1, Errors: 2, CreatedAt: at,
	}))

	got, err := s.ListImports(ctx, rt, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "new.csv", got[0].FileName)
	assert.Equal(t, 5, got[0].Inserted)
	assert.Equal(t, 2, got[0].Errors)
}

func TestStore_RecordImportReplacesSameID(t *testing.T) {
	s, rt := openTestStore(t)
	ctx := context.Background()
	id := uuid.New()
	at := time.Now().UTC()

	require.NoError(t, s.RecordImport(ctx, core.ImportBatch{ID: id, RecordType: rt, FileName: "a.csv", Inserted: 1, Skipped: 2, CreatedAt: at}))
	require.NoError(t, s.RecordImport(ctx, core.ImportBatch{ID: id, RecordType: rt, FileName: "a.csv", Inserted: 3, CreatedAt: at}))

	got, err := s.ListImports(ctx, rt, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 3, got[0].Inserted)
	assert.Equal(t, 0, got[0].Skipped)
}
