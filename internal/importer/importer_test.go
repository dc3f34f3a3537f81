package importer

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/etl/internal/apierror"
	"github.com/JonMunkholm/etl/internal/host"
	"github.com/JonMunkholm/etl/internal/hostapi"
)

type profileRights map[string]bool

func (r profileRights) Can(profile, object, action string) (bool, error) {
	return r[profile+"/"+object+"/"+action], nil
}

// noisyModel misbehaves the way a host model can: it prints, panics or fails.
type noisyModel struct {
	print string
	panic any
}

func (m *noisyModel) TypeName() string { return "Noisy" }

func (m *noisyModel) Can(context.Context, *host.Session, int64, host.Action, host.Fields) bool {
	return true
}

func (m *noisyModel) Add(_ context.Context, sess *host.Session, _ host.Fields) (int64, bool) {
	if m.panic != nil {
		panic(m.panic)
	}
	if m.print != "" {
		sess.Printf("%s", m.print)
	}
	return 1, true
}

func (m *noisyModel) Update(context.Context, *host.Session, host.Fields) bool { return true }

func (m *noisyModel) GetFromDB(context.Context, *host.Session, int64) bool { return true }

type registryFunc func(string) (host.Model, bool)

func (f registryFunc) Lookup(name string) (host.Model, bool) { return f(name) }

func personCatalog(store host.Store, rights profileRights) *host.Catalog {
	reg := host.NewTypeRegistry()
	reg.Register(host.ItemType{
		Name: "Person",
		Fields: []host.FieldSpec{
			{Name: "name", Rules: "required"},
			{Name: "age", Rules: "omitempty,number"},
		},
	})
	return host.NewCatalog(reg, store, rights)
}

func newPersonImporter(store host.Store) *ByAPI {
	cat := personCatalog(store, profileRights{"admin/Person/create": true, "admin/Person/update": true, "admin/Person/read": true})
	return NewByAPI(hostapi.New(cat, "https://etl.example.org/api"))
}

func TestImportRecord_CreateThenUpdate(t *testing.T) {
	ctx := context.Background()
	store := host.NewMemStore()
	imp := newPersonImporter(store)
	sess := host.NewSession("u1", "admin", 0)

	errs := imp.ImportRecord(ctx, sess, "Person", map[string]string{"name": "Alice", "age": "30"})
	require.Empty(t, errs)

	list, err := store.List(ctx, "Person", 0)
	require.NoError(t, err)
	require.Len(t, list, 1)

	errs = imp.ImportRecord(ctx, sess, "Person", map[string]any{"id": list[0].ID, "age": "31"})
	require.Empty(t, errs)

	rec, err := store.Get(ctx, "Person", list[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "31", rec.Fields["age"])
	assert.Equal(t, 1, store.Len("Person"))
}

func TestImportRecord_EmptyIDCreates(t *testing.T) {
	store := host.NewMemStore()
	imp := newPersonImporter(store)

	errs := imp.ImportRecord(context.Background(), host.NewSession("u1", "admin", 0), "Person", host.Fields{"id": "", "name": "Bob"})
	require.Empty(t, errs)
	assert.Equal(t, 1, store.Len("Person"))
}

func TestImportRecord_ErrorsArePerRecord(t *testing.T) {
	imp := newPersonImporter(host.NewMemStore())
	sess := host.NewSession("u1", "admin", 0)

	first := imp.ImportRecord(context.Background(), sess, "Ghost", host.Fields{"name": "x"})
	require.Len(t, first, 1)
	assert.Equal(t, "Classe introuvable: Ghost", first[0].Message())

	second := imp.ImportRecord(context.Background(), sess, "Person", host.Fields{"name": "y"})
	assert.Empty(t, second)
	assert.Len(t, first, 1, "returned lists are copies")
}

func TestImportRecord_Denied(t *testing.T) {
	imp := NewByAPI(hostapi.New(personCatalog(host.NewMemStore(), profileRights{}), ""))

	errs := imp.ImportRecord(context.Background(), host.NewSession("u1", "observer", 0), "Person", host.Fields{"name": "Alice"})
	require.Len(t, errs, 1)
	assert.Equal(t, 403, errs[0].HTTPCode())
	assert.Equal(t, "You don't have permission to create this >>> Person", errs[0].Message())
}

func TestImportRecord_Struct(t *testing.T) {
	type person struct {
		Name string `json:"name"`
		Age  string `json:"age,omitempty"`
	}
	store := host.NewMemStore()
	imp := newPersonImporter(store)

	errs := imp.ImportRecord(context.Background(), host.NewSession("u1", "admin", 0), "Person", &person{Name: "Carol"})
	require.Empty(t, errs)
	assert.Equal(t, 1, store.Len("Person"))
}

func TestImportRecord_InvalidData(t *testing.T) {
	imp := newPersonImporter(host.NewMemStore())

	for _, data := range []any{nil, "Alice", 42, []string{"Alice"}} {
		errs := imp.ImportRecord(context.Background(), host.NewSession("u1", "admin", 0), "Person", data)
		require.Len(t, errs, 1)
		assert.Equal(t, "Usage: data must be an object or a mapping", errs[0].Message())
		assert.Equal(t, 500, errs[0].HTTPCode())
	}
}

func TestImportRecord_PanicBecomesServerError(t *testing.T) {
	model := &noisyModel{panic: errors.New("nil map write")}
	imp := NewByAPI(hostapi.New(registryFunc(func(string) (host.Model, bool) { return model, true }), ""))
	sess := host.NewSession("u1", "admin", 0)

	errs := imp.ImportRecord(context.Background(), sess, "Noisy", host.Fields{"name": "x"})
	require.Len(t, errs, 1)
	assert.Equal(t, "SERVER ERROR\nnil map write", errs[0].Message())
	assert.Equal(t, 500, errs[0].HTTPCode())
	assert.Empty(t, errs[0].DocMessage())

	model.panic = nil
	assert.Empty(t, imp.ImportRecord(context.Background(), sess, "Noisy", host.Fields{"name": "x"}), "recovery does not leak into the next record")
}

func TestImportRecord_OutputIsCapturedAsError(t *testing.T) {
	model := &noisyModel{print: "Warning: deprecated field"}
	imp := NewByAPI(hostapi.New(registryFunc(func(string) (host.Model, bool) { return model, true }), ""))
	sess := host.NewSession("u1", "admin", 0)
	before := sess.Output()

	errs := imp.ImportRecord(context.Background(), sess, "Noisy", host.Fields{"name": "x"})
	require.Len(t, errs, 1)
	assert.Equal(t, "Warning: deprecated field", errs[0].Message())
	assert.Equal(t, 500, errs[0].HTTPCode())
	assert.Equal(t, before, sess.Output(), "session output restored")
}

func TestImportRecord_Metrics(t *testing.T) {
	imp := newPersonImporter(host.NewMemStore())
	sess := host.NewSession("u1", "admin", 0)
	m := getMetrics()

	okBefore := testutil.ToFloat64(m.recordsTotal.WithLabelValues("person", "ok"))
	failedBefore := testutil.ToFloat64(m.recordsTotal.WithLabelValues("person", "failed"))

	imp.ImportRecord(context.Background(), sess, "Person", host.Fields{"name": "Dan"})
	imp.ImportRecord(context.Background(), sess, "Person", host.Fields{})

	assert.Equal(t, okBefore+1, testutil.ToFloat64(m.recordsTotal.WithLabelValues("person", "ok")))
	assert.Equal(t, failedBefore+1, testutil.ToFloat64(m.recordsTotal.WithLabelValues("person", "failed")))
}

func TestExtractorByAPI(t *testing.T) {
	ctx := context.Background()
	store := host.NewMemStore()
	_, err := store.Insert(ctx, "Person", 0, host.Fields{"name": "Alice"})
	require.NoError(t, err)
	_, err = store.Insert(ctx, "Person", 8, host.Fields{"name": "Hidden"})
	require.NoError(t, err)

	api := hostapi.New(personCatalog(store, profileRights{"admin/Person/read": true}), "")
	ex := NewExtractorByAPI(api, store)
	sess := host.NewSession("u1", "admin", 0)

	assert.True(t, ex.KnowsSource("person"))
	assert.False(t, ex.KnowsSource("Ghost"))

	rows, err := ex.Extract(ctx, sess, Source{Name: "Person", Type: SourceTypeItemType})
	require.NoError(t, err)
	require.Len(t, rows, 1, "other entities are filtered out")
	assert.Equal(t, "Alice", rows[0]["name"])
	assert.Equal(t, "1", rows[0][host.FieldID])

	_, err = ex.Extract(ctx, sess, Source{Name: "Person", Type: "csv"})
	require.ErrorIs(t, err, apierror.ErrRecoverable)
	assert.Equal(t, "Unsupported source type: csv", api.Errors()[0].Message())
}

// brokenStore fails every lookup of one id with a storage error.
type brokenStore struct {
	*host.MemStore
	brokenID int64
}

func (s brokenStore) Get(ctx context.Context, itemType string, id int64) (host.Record, error) {
	if id == s.brokenID {
		return host.Record{}, errors.New("connection reset by peer")
	}
	return s.MemStore.Get(ctx, itemType, id)
}

func TestImportRecord_StorageFailureStaysOnItsRecord(t *testing.T) {
	ctx := context.Background()
	store := brokenStore{MemStore: host.NewMemStore(), brokenID: 5}
	imp := newPersonImporter(store)
	sess := host.NewSession("u1", "admin", 0)

	first := imp.ImportRecord(ctx, sess, "Person", host.Fields{"id": "5", "name": "Alice"})
	require.NotEmpty(t, first)
	assert.Contains(t, messages(first), "connection reset by peer")
	assert.Empty(t, sess.DrainSQLErrors(), "the failure was collected with its record")

	second := imp.ImportRecord(ctx, sess, "Person", host.Fields{"name": "Bob"})
	assert.Empty(t, second)
	assert.Equal(t, 1, store.Len("Person"))
}

func TestImportRecord_DropsLeftoverHostMessages(t *testing.T) {
	imp := newPersonImporter(host.NewMemStore())
	sess := host.NewSession("u1", "admin", 0)
	sess.LogSQLError(errors.New("stale failure"))
	sess.AddNotification(host.LevelError, "stale notice")

	errs := imp.ImportRecord(context.Background(), sess, "Person", host.Fields{"name": "Eve"})
	assert.Empty(t, errs)
}

func TestImportRecord_UnknownTypesShareOneMetricLabel(t *testing.T) {
	imp := newPersonImporter(host.NewMemStore())
	sess := host.NewSession("u1", "admin", 0)
	m := getMetrics()

	unknownBefore := testutil.ToFloat64(m.recordsTotal.WithLabelValues(unknownItemType, "failed"))
	seriesBefore := testutil.CollectAndCount(m.recordsTotal)

	for _, name := range []string{"Bogus0", "Bogus1", "Bogus2", ""} {
		imp.ImportRecord(context.Background(), sess, name, host.Fields{"name": "x"})
	}

	assert.Equal(t, unknownBefore+4, testutil.ToFloat64(m.recordsTotal.WithLabelValues(unknownItemType, "failed")))
	assert.Equal(t, seriesBefore, testutil.CollectAndCount(m.recordsTotal))
}

func messages(errs []apierror.Error) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Message()
	}
	return out
}
