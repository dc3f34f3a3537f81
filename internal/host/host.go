// Package host is the data layer the import writes into: item types, their
// storage, per-request sessions and the permission checks guarding them.
//
// The importer only sees it through the Model and Registry interfaces, so the
// same adapter drives the PostgreSQL catalog in production and fakes in tests.
package host

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Action is a right checked by Model.Can.
type Action string

const (
	ActionRead   Action = "read"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
)

// NewItemID is the id passed to Can when checking the right to create.
const NewItemID int64 = -1

// Well-known field names.
const (
	FieldID       = "id"
	FieldEntityID = "entities_id"
)

// Model is one instance of an item type, bound to a record once loaded.
type Model interface {
	TypeName() string
	Can(ctx context.Context, sess *Session, id int64, action Action, fields Fields) bool
	Add(ctx context.Context, sess *Session, fields Fields) (int64, bool)
	Update(ctx context.Context, sess *Session, fields Fields) bool
	GetFromDB(ctx context.Context, sess *Session, id int64) bool
}

// Registry resolves item type names to fresh model instances.
type Registry interface {
	Lookup(typeName string) (Model, bool)
}

// Authorizer answers profile rights on an object.
type Authorizer interface {
	Can(profile, object, action string) (bool, error)
}

// Fields maps field names to values for one item.
type Fields map[string]any

// ID returns the "id" field rendered as a string. Missing, nil and
// empty values report false.
func (f Fields) ID() (string, bool) {
	v, ok := f[FieldID]
	if !ok || v == nil {
		return "", false
	}
	s := strings.TrimSpace(FormatValue(v))
	return s, s != ""
}

// IntID parses the "id" field.
func (f Fields) IntID() (int64, error) {
	s, ok := f.ID()
	if !ok {
		return 0, fmt.Errorf("missing %s", FieldID)
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", FieldID, s, err)
	}
	return id, nil
}

// EntityID parses "entities_id". The second result is false when it is absent.
func (f Fields) EntityID() (int64, bool, error) {
	v, ok := f[FieldEntityID]
	if !ok || v == nil {
		return 0, false, nil
	}
	id, err := strconv.ParseInt(strings.TrimSpace(FormatValue(v)), 10, 64)
	if err != nil {
		return 0, true, fmt.Errorf("invalid %s %v: %w", FieldEntityID, v, err)
	}
	return id, true, nil
}

// Clone returns a shallow copy.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// FormatValue renders a field value the way it is shown in messages.
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}
