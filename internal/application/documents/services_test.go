package documents

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/bryanwahyu/sheetqa/internal/application"
	domain "github.com/bryanwahyu/sheetqa/internal/domain/documents"
	"github.com/bryanwahyu/sheetqa/internal/infra/spreadsheet"
	"github.com/bryanwahyu/sheetqa/internal/infra/storage"
)

var fixedAt = time.UnixMilli(1700000000123)

func newService(store domain.Store) *Service {
	return &Service{
		Store:  store,
		Parser: spreadsheet.NewParser(),
		Clock:  application.FixedClock{At: fixedAt},
	}
}

func TestUpload_KeepsExtension(t *testing.T) {
	svc := newService(storage.NewMemoryStore())

	f, err := svc.Upload(context.Background(), "Report.Q1.xlsx", strings.NewReader("data"))
	require.NoError(t, err)
	assert.Equal(t, "1700000000123.xlsx", f.StoredName)
	assert.Equal(t, "Report.Q1.xlsx", f.OriginalName)
	assert.True(t, f.UploadedAt.Equal(fixedAt))
}

func TestUpload_DropsOddExtension(t *testing.T) {
	svc := newService(storage.NewMemoryStore())

	f, err := svc.Upload(context.Background(), "notes.tar gz", strings.NewReader("x"))
	require.NoError(t, err)
	assert.Equal(t, "1700000000123", f.StoredName)
}

func TestUpload_CollisionMovesToNextMillisecond(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := newService(store)
	ctx := context.Background()

	first, err := svc.Upload(ctx, "a.xlsx", strings.NewReader("one"))
	require.NoError(t, err)
	second, err := svc.Upload(ctx, "b.xlsx", strings.NewReader("two"))
	require.NoError(t, err)

	assert.Equal(t, "1700000000123.xlsx", first.StoredName)
	assert.Equal(t, "1700000000124.xlsx", second.StoredName)

	rc, err := store.Get(ctx, second.StoredName)
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "two", string(body))
}

func TestUpload_GivesUpAfterMaxAttempts(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := newService(store)
	ctx := context.Background()

	for i := 0; i < maxNameAttempts; i++ {
		_, err := svc.Upload(ctx, "a.xlsx", strings.NewReader("x"))
		require.NoError(t, err)
	}
	_, err := svc.Upload(ctx, "a.xlsx", strings.NewReader("x"))
	assert.ErrorIs(t, err, domain.ErrExists)
}

// drainingStore reads the whole payload before rejecting the first name it is given.
type drainingStore struct {
	domain.Store
	rejected bool
}

func (s *drainingStore) Put(ctx context.Context, name string, r io.Reader) (string, error) {
	if !s.rejected {
		s.rejected = true
		_, _ = io.Copy(io.Discard, r)
		return "", domain.ErrExists
	}
	return s.Store.Put(ctx, name, r)
}

func readStored(t *testing.T, store domain.Store, id string) string {
	t.Helper()
	rc, err := store.Get(context.Background(), id)
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(body)
}

func TestUpload_RetryAfterConsumedReaderKeepsPayload(t *testing.T) {
	mem := storage.NewMemoryStore()
	svc := newService(&drainingStore{Store: mem})

	f, err := svc.Upload(context.Background(), "a.xlsx", strings.NewReader("AAAA-payload"))
	require.NoError(t, err)
	assert.Equal(t, "1700000000124.xlsx", f.StoredName)
	assert.Equal(t, "AAAA-payload", readStored(t, mem, f.StoredName))
}

// gatedReader blocks its first read until gate is closed.
type gatedReader struct {
	gate <-chan struct{}
	r    io.Reader
}

func (g *gatedReader) Read(p []byte) (int, error) {
	<-g.gate
	return g.r.Read(p)
}

func TestUpload_ConcurrentSameInstant(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := newService(store)
	ctx := context.Background()

	gate := make(chan struct{})
	type result struct {
		f   domain.UploadedFile
		err error
	}
	done := make(chan result, 1)
	go func() {
		f, err := svc.Upload(ctx, "a.xlsx", &gatedReader{gate: gate, r: strings.NewReader("AAAA-payload")})
		done <- result{f, err}
	}()

	b, err := svc.Upload(ctx, "b.xlsx", strings.NewReader("BBBB-payload"))
	require.NoError(t, err)
	close(gate)
	a := <-done
	require.NoError(t, a.err)

	assert.NotEqual(t, a.f.StoredName, b.StoredName)
	assert.Equal(t, "AAAA-payload", readStored(t, store, a.f.StoredName))
	assert.Equal(t, "BBBB-payload", readStored(t, store, b.StoredName))
}

type failingStore struct{ domain.Store }

func (failingStore) Put(context.Context, string, io.Reader) (string, error) {
	return "", errors.New("disk full")
}

func TestUpload_StoreFailure(t *testing.T) {
	svc := newService(failingStore{storage.NewMemoryStore()})

	_, err := svc.Upload(context.Background(), "a.xlsx", strings.NewReader("x"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrExists)
}

func TestSpreadsheets_FiltersByExtension(t *testing.T) {
	store := storage.NewMemoryStore()
	ctx := context.Background()
	for _, name := range []string{"1.xlsx", "2.txt", "3.XLSM", "4"} {
		_, err := store.Put(ctx, name, strings.NewReader("x"))
		require.NoError(t, err)
	}

	ids, err := newService(store).Spreadsheets(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"1.xlsx", "3.XLSM"}, ids)
}

func TestParse_StoredWorkbook(t *testing.T) {
	store := storage.NewMemoryStore()
	ctx := context.Background()

	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"a", "b"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{1, 2}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	_, err = store.Put(ctx, "1.xlsx", bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	records, err := newService(store).Parse(ctx, "1.xlsx")
	require.NoError(t, err)
	require.Len(t, records, 1)
	v, ok := records[0].Get("a")
	require.True(t, ok)
	assert.Equal(t, float64(1), v)
}

func TestParse_Missing(t *testing.T) {
	_, err := newService(storage.NewMemoryStore()).Parse(context.Background(), "nope.xlsx")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
