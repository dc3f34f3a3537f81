package host

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rights grants "profile/object/action" keys; object is the item type name.
type rights map[string]bool

func (r rights) Can(profile, object, action string) (bool, error) {
	return r[profile+"/"+object+"/"+action], nil
}

type brokenAuthz struct{}

func (brokenAuthz) Can(string, string, string) (bool, error) {
	return false, errors.New("policy backend down")
}

// failingStore fails every write with err.
type failingStore struct {
	*MemStore
	err error
}

func (s failingStore) Insert(context.Context, string, int64, Fields) (int64, error) {
	return 0, s.err
}

func (s failingStore) Update(context.Context, string, int64, int64, Fields) error {
	return s.err
}

var personType = ItemType{
	Name:  "Person",
	Group: "Directory",
	Fields: []FieldSpec{
		{Name: "name", Rules: "required,max=10", Normalizer: Normalizers["trim"]},
		{Name: "age", Rules: "omitempty,number"},
	},
}

func TestFields_ID(t *testing.T) {
	tests := []struct {
		name   string
		fields Fields
		want   string
		ok     bool
	}{
		{"missing", Fields{"name": "x"}, "", false},
		{"nil", Fields{"id": nil}, "", false},
		{"empty", Fields{"id": " "}, "", false},
		{"string", Fields{"id": "42"}, "42", true},
		{"int", Fields{"id": 7}, "7", true},
		{"float", Fields{"id": float64(9)}, "9", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.fields.ID()
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.ok, ok)
		})
	}

	_, err := Fields{"id": "abc"}.IntID()
	assert.Error(t, err)
}

func TestFields_EntityID(t *testing.T) {
	id, present, err := Fields{"entities_id": "3"}.EntityID()
	require.NoError(t, err)
	assert.True(t, present)
	assert.Equal(t, int64(3), id)

	_, present, err = Fields{}.EntityID()
	require.NoError(t, err)
	assert.False(t, present)

	_, _, err = Fields{"entities_id": "root"}.EntityID()
	assert.Error(t, err)
}

func TestSanitize(t *testing.T) {
	in := Fields{
		"name":    "<script>alert(1)</script>",
		"age":     30,
		"nested":  map[string]any{"note": "a > b"},
		"tags":    []any{"<b>", 1},
		"aliases": []string{"x<y"},
	}

	out := Sanitize(in)

	assert.Equal(t, "&lt;script&gt;alert(1)&lt;/script&gt;", out["name"])
	assert.Equal(t, 30, out["age"])
	assert.Equal(t, map[string]any{"note": "a &gt; b"}, out["nested"])
	assert.Equal(t, []any{"&lt;b&gt;", 1}, out["tags"])
	assert.Equal(t, []string{"x&lt;y"}, out["aliases"])
	assert.Equal(t, "<script>alert(1)</script>", in["name"], "input must not be modified")
}

func TestSession_NotificationsReadAndClear(t *testing.T) {
	sess := NewSession("u1", "admin", 0)

	sess.AddNotification(LevelError, "second")
	sess.AddNotification(LevelInfo, "first")
	assert.Equal(t, []string{"first", "second"}, sess.Notifications())
	assert.Len(t, sess.Notifications(), 2, "reading does not clear")

	sess.ClearNotifications()
	assert.Empty(t, sess.Notifications())
}

func TestSession_SQLErrorsDrain(t *testing.T) {
	sess := NewSession("u1", "admin", 0)
	sess.LogSQLError(errors.New("duplicate key"))

	assert.Equal(t, []string{"duplicate key"}, sess.DrainSQLErrors())
	assert.Empty(t, sess.DrainSQLErrors())
}

func TestSession_Output(t *testing.T) {
	sess := NewSession("u1", "admin", 0)
	var buf bytes.Buffer

	prev := sess.SetOutput(&buf)
	sess.Printf("hello %d", 1)
	sess.SetOutput(prev)
	sess.Printf("dropped")

	assert.Equal(t, "hello 1", buf.String())
}

func TestSession_Entities(t *testing.T) {
	sess := NewSession("u1", "admin", 2, 0, 5)
	assert.True(t, sess.CanAccessEntity(2))
	assert.True(t, sess.CanAccessEntity(5))
	assert.False(t, sess.CanAccessEntity(9))
}

func TestTypeRegistry(t *testing.T) {
	reg := NewTypeRegistry()
	reg.Register(personType)
	reg.Register(ItemType{Name: "Badge", Group: "Access"})

	got, ok := reg.Get("person")
	require.True(t, ok)
	assert.Equal(t, "Person", got.Name)
	assert.Equal(t, "Person", got.Label, "label defaults to name")

	assert.Equal(t, 2, reg.Count())
	assert.Equal(t, []string{"Access", "Directory"}, reg.Groups())
	assert.Equal(t, "Badge", reg.All()[0].Name)
	assert.Len(t, reg.ByGroup("Directory"), 1)

	assert.Panics(t, func() { reg.Register(ItemType{Name: "PERSON"}) })
	assert.Error(t, reg.TryRegister(ItemType{}))

	reg.Clear()
	assert.Equal(t, 0, reg.Count())
}

func TestParseItemTypes(t *testing.T) {
	reg := NewTypeRegistry()
	data := []byte(`
itemtypes:
  - name: Person
    group: Directory
    fields:
      - name: name
        rules: required
      - name: email
        rules: omitempty,email
        normalize: lower
  - name: Badge
`)

	n, err := ParseItemTypes(reg, data)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	person, ok := reg.Get("Person")
	require.True(t, ok)
	email, ok := person.Field("email")
	require.True(t, ok)
	require.NotNil(t, email.Normalizer)
	assert.Equal(t, "a@b.c", email.Normalizer(" A@B.C "))

	_, err = ParseItemTypes(NewTypeRegistry(), []byte("itemtypes:\n  - name: X\n    fields:\n      - name: y\n        normalize: shout\n"))
	assert.ErrorContains(t, err, "unknown normalizer")
}

func TestMemStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	id, err := s.Insert(ctx, "Person", 0, Fields{"name": "Alice"})
	require.NoError(t, err)

	rec, err := s.Get(ctx, "person", id)
	require.NoError(t, err)
	assert.Equal(t, "Alice", rec.Fields["name"])

	require.NoError(t, s.Update(ctx, "Person", id, 1, Fields{"name": "Alicia"}))
	list, err := s.List(ctx, "Person", 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(1), list[0].EntityID)

	assert.ErrorIs(t, s.Update(ctx, "Person", 99, 0, Fields{}), ErrNotFound)
	require.NoError(t, s.Delete(ctx, "Person", id))
	_, err = s.Get(ctx, "Person", id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestItem_Can(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	otherEntity, err := store.Insert(ctx, "Person", 9, Fields{"name": "Eve"})
	require.NoError(t, err)

	item := NewItem(personType, store, rights{"admin/Person/create": true, "admin/Person/update": true})
	sess := NewSession("u1", "admin", 0)

	assert.True(t, item.Can(ctx, sess, NewItemID, ActionCreate, Fields{}))
	assert.False(t, item.Can(ctx, sess, NewItemID, ActionCreate, Fields{"entities_id": "9"}), "foreign entity")
	assert.False(t, item.Can(ctx, sess, otherEntity, ActionUpdate, nil), "foreign entity")
	assert.True(t, item.Can(ctx, sess, 12345, ActionUpdate, nil), "unknown id is left to GetFromDB")
	assert.False(t, item.Can(ctx, NewSession("u2", "observer", 0), NewItemID, ActionCreate, Fields{}))
	assert.False(t, item.Can(ctx, nil, NewItemID, ActionCreate, Fields{}))
	assert.False(t, NewItem(personType, store, brokenAuthz{}).Can(ctx, sess, NewItemID, ActionCreate, Fields{}))
}

// unreachableStore fails every read with a storage error.
type unreachableStore struct {
	*MemStore
}

func (unreachableStore) Get(context.Context, string, int64) (Record, error) {
	return Record{}, errors.New("connection reset by peer")
}

func TestItem_CanDeniesOnStorageFailure(t *testing.T) {
	item := NewItem(personType, unreachableStore{NewMemStore()}, rights{"admin/Person/update": true})
	sess := NewSession("u1", "admin", 0)

	assert.False(t, item.Can(context.Background(), sess, 5, ActionUpdate, nil))
	assert.Equal(t, []string{"connection reset by peer"}, sess.DrainSQLErrors())
}

func TestItem_AddValidates(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	item := NewItem(personType, store, rights{})
	sess := NewSession("u1", "admin", 3)

	id, ok := item.Add(ctx, sess, Fields{"name": "  Alice ", "age": "30"})
	require.True(t, ok)
	assert.Empty(t, sess.Notifications())

	rec, err := store.Get(ctx, "Person", id)
	require.NoError(t, err)
	assert.Equal(t, int64(3), rec.EntityID, "entity defaults from session")
	assert.Equal(t, "Alice", rec.Fields["name"], "normalized")

	_, ok = item.Add(ctx, sess, Fields{"age": "old"})
	assert.False(t, ok)
	assert.Equal(t, []string{
		"Mandatory field is not filled: name",
		"Invalid value for field age (number)",
	}, sess.Notifications())
	assert.Equal(t, 1, store.Len("Person"))
}

func TestItem_AddStoreFailureGoesToSQLLog(t *testing.T) {
	item := NewItem(personType, failingStore{NewMemStore(), errors.New("insert person: connection reset")}, rights{})
	sess := NewSession("u1", "admin", 0)

	_, ok := item.Add(context.Background(), sess, Fields{"name": "Bob"})
	assert.False(t, ok)
	assert.Equal(t, []string{"insert person: connection reset"}, sess.DrainSQLErrors())
}

func TestItem_UpdateMerges(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	id, err := store.Insert(ctx, "Person", 0, Fields{"name": "Alice", "age": "30"})
	require.NoError(t, err)

	item := NewItem(personType, store, rights{})
	sess := NewSession("u1", "admin", 0)

	require.True(t, item.GetFromDB(ctx, sess, id))
	require.True(t, item.Update(ctx, sess, Fields{"id": id, "age": "31"}))

	rec, err := store.Get(ctx, "Person", id)
	require.NoError(t, err)
	assert.Equal(t, Fields{"name": "Alice", "age": "31"}, rec.Fields)

	assert.False(t, item.Update(ctx, sess, Fields{"id": id, "name": "A name that is too long"}))
	assert.Equal(t, []string{"Field name is too long (max 10)"}, sess.Notifications())
}

func TestItem_GetFromDBMissing(t *testing.T) {
	item := NewItem(personType, NewMemStore(), rights{})
	sess := NewSession("u1", "admin", 0)

	assert.False(t, item.GetFromDB(context.Background(), sess, 1))
	assert.Empty(t, sess.DrainSQLErrors(), "not found is not a storage failure")
	_, bound := item.Current()
	assert.False(t, bound)
}

func TestCatalog_Lookup(t *testing.T) {
	reg := NewTypeRegistry()
	reg.Register(personType)
	cat := NewCatalog(reg, NewMemStore(), rights{})

	m1, ok := cat.Lookup("Person")
	require.True(t, ok)
	m2, _ := cat.Lookup("person")
	assert.Equal(t, "Person", m1.TypeName())
	assert.NotSame(t, m1, m2, "each lookup returns a fresh model")

	_, ok = cat.Lookup("Ghost")
	assert.False(t, ok)
}
