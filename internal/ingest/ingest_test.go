package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/som4n/DataLake/internal/codec"
	"github.com/som4n/DataLake/internal/errs"
	"github.com/som4n/DataLake/internal/metrics"
	"github.com/som4n/DataLake/internal/objstore"
	"github.com/som4n/DataLake/internal/quality"
	"github.com/som4n/DataLake/internal/source"
	"github.com/som4n/DataLake/internal/table"
	"github.com/som4n/DataLake/internal/writer"
)

const salesCSV = "year,month,amount\n2023,1,10\n2023,1,20\n2023,2,5\n2024,1,7\n"

var clock = time.Date(2024, 3, 15, 9, 20, 30, 0, time.UTC)

func salesFile(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "sales.csv")
	require.NoError(t, os.WriteFile(p, []byte(salesCSV), 0o644))
	return p
}

func newIngestor(t *testing.T, store objstore.Store) *Ingestor {
	t.Helper()
	c, err := codec.New("parquet", codec.Options{})
	require.NoError(t, err)
	w := writer.New(store, c, nil)
	w.Now = func() time.Time { return clock }
	return New(&source.Reader{}, w, nil, nil)
}

func decodeObject(t *testing.T, mem *objstore.Memory, key string) *table.Table {
	t.Helper()
	obj, ok := mem.Object(key)
	require.True(t, ok, key)
	c, err := codec.New("parquet", codec.Options{})
	require.NoError(t, err)
	tbl, err := c.Decode(obj.Body)
	require.NoError(t, err)
	return tbl
}

func sumAmount(t *testing.T, tbl *table.Table) int64 {
	t.Helper()
	c, ok := tbl.Column("amount")
	require.True(t, ok)
	var sum int64
	for _, v := range c.Values() {
		sum += v.(int64)
	}
	return sum
}

func TestIngest_PartitionedScenario(t *testing.T) {
	mem := objstore.NewMemory()
	in := newIngestor(t, mem)

	res := in.IngestCSV(context.Background(), salesFile(t), "raw/sales", []string{"year", "month"})
	require.True(t, res.OK(), res.Message)
	assert.Equal(t, 4, res.Rows)
	require.Len(t, res.Objects, 3)

	want := []struct {
		key  string
		rows int
		sum  int64
	}{
		{key: "raw/sales/year=2023/month=1/data_20240315_092030.parquet", rows: 2, sum: 30},
		{key: "raw/sales/year=2023/month=2/data_20240315_092030.parquet", rows: 1, sum: 5},
		{key: "raw/sales/year=2024/month=1/data_20240315_092030.parquet", rows: 1, sum: 7},
	}
	for i, w := range want {
		assert.Equal(t, w.key, res.Objects[i].Key)
		assert.Equal(t, w.rows, res.Objects[i].Rows)
		tbl := decodeObject(t, mem, w.key)
		assert.Equal(t, w.rows, tbl.NumRows())
		assert.Equal(t, w.sum, sumAmount(t, tbl))

		obj, _ := mem.Object(w.key)
		assert.Equal(t, map[string]string{writer.MetaRecordCount: strconv.Itoa(w.rows)}, obj.Meta)
	}
	assert.Equal(t, 3, mem.Puts())
}

func TestIngest_NoKeysWritesWholeTable(t *testing.T) {
	mem := objstore.NewMemory()
	in := newIngestor(t, mem)

	res := in.IngestCSV(context.Background(), salesFile(t), "raw/sales", nil)
	require.True(t, res.OK(), res.Message)
	assert.Equal(t, 4, res.Rows)
	assert.Equal(t, []string{"raw/sales/data_20240315_092030.parquet"}, mem.Keys())
	assert.Equal(t, int64(42), sumAmount(t, decodeObject(t, mem, mem.Keys()[0])))
}

func TestIngest_MissingSourceWritesNothing(t *testing.T) {
	mem := objstore.NewMemory()
	in := newIngestor(t, mem)

	res := in.IngestCSV(context.Background(), filepath.Join(t.TempDir(), "missing.csv"), "raw/sales", []string{"year"})
	assert.False(t, res.OK())
	assert.Equal(t, StatusError, res.Status)
	assert.Equal(t, errs.KindRead, res.Kind())
	assert.Equal(t, errs.KindRead, res.ErrorKind)
	assert.ErrorIs(t, res.Err, os.ErrNotExist)
	assert.NotEmpty(t, res.Message)
	assert.Zero(t, mem.Puts())
}

func TestIngest_InvalidPartitionKeyWritesNothing(t *testing.T) {
	mem := objstore.NewMemory()
	in := newIngestor(t, mem)

	res := in.IngestCSV(context.Background(), salesFile(t), "raw/sales", []string{"day"})
	assert.Equal(t, errs.KindInvalidPartitionKey, res.Kind())
	assert.Zero(t, mem.Puts())
}

func TestIngest_Checks(t *testing.T) {
	rules := quality.Rules{
		"nonempty":        quality.NonEmpty(),
		"positive_amount": quality.Positive("amount"),
		"big":             quality.MinRows(10),
	}

	t.Run("report_only", func(t *testing.T) {
		mem := objstore.NewMemory()
		in := newIngestor(t, mem)
		in.Options = Options{Checks: rules}

		res := in.IngestCSV(context.Background(), salesFile(t), "raw", nil)
		require.True(t, res.OK(), res.Message)
		assert.Equal(t, map[string]bool{"nonempty": true, "positive_amount": true, "big": false}, res.Checks)
		assert.Equal(t, 1, mem.Puts())
	})

	t.Run("fail_on_check", func(t *testing.T) {
		mem := objstore.NewMemory()
		in := newIngestor(t, mem)
		in.Options = Options{Checks: rules, FailOnCheck: true}

		res := in.IngestCSV(context.Background(), salesFile(t), "raw", nil)
		assert.Equal(t, errs.KindQualityCheckFailed, res.Kind())
		assert.Contains(t, res.Message, "big")
		assert.False(t, res.Checks["big"])
		assert.Zero(t, mem.Puts())
	})

	t.Run("evaluation_error", func(t *testing.T) {
		mem := objstore.NewMemory()
		in := newIngestor(t, mem)
		in.Options = Options{Checks: quality.Rules{"bad": quality.NotNull("nope")}}

		res := in.IngestCSV(context.Background(), salesFile(t), "raw", nil)
		assert.Equal(t, errs.KindRuleEvaluation, res.Kind())
		assert.Contains(t, res.Message, "bad")
		assert.Zero(t, mem.Puts())
	})
}

// withTotals derives total_amount and stamps processing_date, the way the
// raw-to-processed jobs enrich sales rows.
func withTotals(tbl *table.Table) (*table.Table, error) {
	amount, ok := tbl.Column("amount")
	if !ok {
		return nil, errors.New("no amount column")
	}
	totals := make([]any, amount.Len())
	dates := make([]any, amount.Len())
	for i, v := range amount.Values() {
		totals[i] = float64(v.(int64)) * 1.5
		dates[i] = clock
	}
	cols := append([]*table.Column{}, tbl.Columns()...)
	cols = append(cols,
		table.MustColumn("total_amount", table.Float64, totals...),
		table.MustColumn("processing_date", table.Timestamp, dates...),
	)
	return table.New(cols...)
}

func TestIngest_Transform(t *testing.T) {
	t.Run("derives_columns", func(t *testing.T) {
		mem := objstore.NewMemory()
		in := newIngestor(t, mem)
		in.Options = Options{Transform: withTotals}

		res := in.IngestCSV(context.Background(), salesFile(t), "processed/sales", []string{"year"})
		require.True(t, res.OK(), res.Message)
		assert.Equal(t, 4, res.Rows)
		require.Len(t, res.Objects, 2)

		tbl := decodeObject(t, mem, res.Objects[0].Key)
		assert.Equal(t, []string{"year", "month", "amount", "total_amount", "processing_date"}, tbl.ColumnNames())
		total, ok := tbl.Column("total_amount")
		require.True(t, ok)
		assert.Equal(t, []any{15.0, 30.0, 7.5}, total.Values())
		date, ok := tbl.Column("processing_date")
		require.True(t, ok)
		assert.Equal(t, clock, date.Value(0))
	})

	t.Run("filtered_rows_are_partitioned", func(t *testing.T) {
		mem := objstore.NewMemory()
		in := newIngestor(t, mem)
		in.Options = Options{Transform: func(tbl *table.Table) (*table.Table, error) {
			year, _ := tbl.Column("year")
			var keep []int
			for i, v := range year.Values() {
				if v.(int64) == 2024 {
					keep = append(keep, i)
				}
			}
			return tbl.Take(keep), nil
		}}

		res := in.IngestCSV(context.Background(), salesFile(t), "processed/sales", []string{"year"})
		require.True(t, res.OK(), res.Message)
		require.Len(t, res.Objects, 1)
		assert.Equal(t, "processed/sales/year=2024/data_20240315_092030.parquet", res.Objects[0].Key)
		assert.Equal(t, 1, res.Rows)
	})

	t.Run("error_writes_nothing", func(t *testing.T) {
		mem := objstore.NewMemory()
		in := newIngestor(t, mem)
		in.Options = Options{Transform: func(*table.Table) (*table.Table, error) {
			return nil, errors.New("currency table unavailable")
		}}

		res := in.IngestCSV(context.Background(), salesFile(t), "processed/sales", nil)
		assert.Equal(t, errs.KindTransform, res.Kind())
		assert.Contains(t, res.Message, "currency table unavailable")
		assert.Zero(t, mem.Puts())
	})

	t.Run("nil_table", func(t *testing.T) {
		mem := objstore.NewMemory()
		in := newIngestor(t, mem)
		in.Options = Options{Transform: func(*table.Table) (*table.Table, error) { return nil, nil }}

		res := in.IngestCSV(context.Background(), salesFile(t), "processed/sales", nil)
		assert.Equal(t, errs.KindTransform, res.Kind())
		assert.Zero(t, mem.Puts())
	})

	t.Run("skipped_when_checks_fail", func(t *testing.T) {
		called := false
		in := newIngestor(t, objstore.NewMemory())
		in.Options = Options{
			Checks:      quality.Rules{"big": quality.MinRows(10)},
			FailOnCheck: true,
			Transform: func(tbl *table.Table) (*table.Table, error) {
				called = true
				return tbl, nil
			},
		}

		res := in.IngestCSV(context.Background(), salesFile(t), "processed/sales", nil)
		assert.Equal(t, errs.KindQualityCheckFailed, res.Kind())
		assert.False(t, called)
	})
}

func TestIngest_ParallelWritesMatchSequential(t *testing.T) {
	seq := objstore.NewMemory()
	par := objstore.NewMemory()

	a := newIngestor(t, seq)
	b := newIngestor(t, par)
	b.Workers = 4

	path := salesFile(t)
	ra := a.IngestCSV(context.Background(), path, "raw", []string{"year", "month"})
	rb := b.IngestCSV(context.Background(), path, "raw", []string{"year", "month"})
	require.True(t, ra.OK())
	require.True(t, rb.OK())
	assert.Equal(t, ra.Objects, rb.Objects)
	assert.Equal(t, seq.Keys(), par.Keys())
}

// failAfter accepts n puts and rejects the rest.
type failAfter struct {
	*objstore.Memory
	mu sync.Mutex
	n  int
}

func (f *failAfter) Put(ctx context.Context, key string, body []byte, meta map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.n == 0 {
		return errors.New("access denied")
	}
	f.n--
	return f.Memory.Put(ctx, key, body, meta)
}

func TestIngest_WriteFailureKeepsEarlierObjects(t *testing.T) {
	store := &failAfter{Memory: objstore.NewMemory(), n: 1}
	in := newIngestor(t, store)

	res := in.IngestCSV(context.Background(), salesFile(t), "raw", []string{"year", "month"})
	assert.Equal(t, errs.KindWrite, res.Kind())
	assert.Contains(t, res.Message, "access denied")
	// the first group was written and is not rolled back
	require.Len(t, res.Objects, 1)
	assert.Equal(t, "raw/year=2023/month=1/data_20240315_092030.parquet", res.Objects[0].Key)
	assert.Equal(t, 2, res.Rows)
	assert.Equal(t, []string{res.Objects[0].Key}, store.Keys())
}

func TestIngest_JSONAndDatabaseWrappers(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "sales.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`[{"region":"east","amount":1},{"region":"west","amount":2}]`), 0o644))

	mem := objstore.NewMemory()
	in := newIngestor(t, mem)

	res := in.IngestJSON(context.Background(), jsonPath, "json", []string{"region"})
	require.True(t, res.OK(), res.Message)
	assert.Len(t, res.Objects, 2)

	res = in.IngestDatabase(context.Background(), "oracle://nowhere", "SELECT 1", "db", nil)
	assert.Equal(t, errs.KindRead, res.Kind())
	assert.Equal(t, 2, mem.Puts())
}

type recordingBackend struct {
	mu       sync.Mutex
	counters map[string]float64
}

func (r *recordingBackend) IncCounter(name string, delta float64, l metrics.Labels) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := name
	if s := l["step"]; s != "" {
		key += "/" + s + "/" + l["status"]
	}
	if k := l["kind"]; k != "" {
		key += "/" + k
	}
	r.counters[key] += delta
}
func (r *recordingBackend) ObserveHistogram(string, float64, metrics.Labels) {}
func (r *recordingBackend) Flush() error                                     { return nil }

func TestIngest_RecordsMetrics(t *testing.T) {
	be := &recordingBackend{counters: map[string]float64{}}
	in := newIngestor(t, objstore.NewMemory())
	in.Metrics = metrics.New(be, "test")

	res := in.IngestCSV(context.Background(), salesFile(t), "raw", []string{"year"})
	require.True(t, res.OK())

	assert.Equal(t, float64(1), be.counters[metrics.StepTotal+"/read/success"])
	assert.Equal(t, float64(1), be.counters[metrics.StepTotal+"/plan/success"])
	assert.Equal(t, float64(1), be.counters[metrics.StepTotal+"/write/success"])
	assert.Equal(t, float64(4), be.counters[metrics.RowsTotal+"/read"])
	assert.Equal(t, float64(4), be.counters[metrics.RowsTotal+"/written"])
	assert.Equal(t, float64(2), be.counters[metrics.ObjectsTotal])
	assert.Zero(t, be.counters[metrics.StepTotal+"/transform/success"])

	in.Options = Options{Transform: withTotals}
	res = in.IngestCSV(context.Background(), salesFile(t), "processed", []string{"year"})
	require.True(t, res.OK(), res.Message)
	assert.Equal(t, float64(1), be.counters[metrics.StepTotal+"/transform/success"])
}
