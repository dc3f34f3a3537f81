package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Item is the Model for every registered item type. A fresh Item is bound
// to no record until GetFromDB or Update loads one.
type Item struct {
	typ     ItemType
	store   Store
	authz   Authorizer
	current *Record
}

// NewItem returns an unbound model of typ.
func NewItem(typ ItemType, store Store, authz Authorizer) *Item {
	return &Item{typ: typ, store: store, authz: authz}
}

func (i *Item) TypeName() string { return i.typ.Name }

// Current returns the loaded record.
func (i *Item) Current() (Record, bool) {
	if i.current == nil {
		return Record{}, false
	}
	return *i.current, true
}

// Can checks the profile right on the item type, then that the target
// entity belongs to the session. A missing item passes so the later lookup
// reports it as not found. A storage failure denies and is logged on the
// session.
func (i *Item) Can(ctx context.Context, sess *Session, id int64, action Action, fields Fields) bool {
	if sess == nil {
		return false
	}
	allowed, err := i.authz.Can(sess.Profile, i.typ.Name, string(action))
	if err != nil {
		slog.Error("right check failed", "itemtype", i.typ.Name, "action", action, "error", err)
		return false
	}
	if !allowed {
		return false
	}

	if id == NewItemID {
		entity, present, err := fields.EntityID()
		if err != nil {
			return false
		}
		if !present {
			entity = sess.Entity
		}
		return sess.CanAccessEntity(entity)
	}

	rec, err := i.store.Get(ctx, i.typ.Name, id)
	if errors.Is(err, ErrNotFound) {
		return true
	}
	if err != nil {
		sess.LogSQLError(err)
		return false
	}
	return sess.CanAccessEntity(rec.EntityID)
}

// Add validates and stores a new item. Problems are queued on the session.
func (i *Item) Add(ctx context.Context, sess *Session, fields Fields) (int64, bool) {
	doc, ok := i.prepare(sess, fields, true)
	if !ok {
		return 0, false
	}

	entity, present, err := fields.EntityID()
	if err != nil {
		sess.AddNotification(LevelError, err.Error())
		return 0, false
	}
	if !present {
		entity = sess.Entity
	}

	id, err := i.store.Insert(ctx, i.typ.Name, entity, doc)
	if err != nil {
		sess.LogSQLError(err)
		return 0, false
	}

	i.current = &Record{ItemType: i.typ.Key(), ID: id, EntityID: entity, Fields: doc}
	return id, true
}

// Update merges fields onto the stored item. Only supplied fields are validated.
func (i *Item) Update(ctx context.Context, sess *Session, fields Fields) bool {
	id, err := fields.IntID()
	if err != nil {
		sess.AddNotification(LevelError, err.Error())
		return false
	}
	if i.current == nil || i.current.ID != id {
		if !i.GetFromDB(ctx, sess, id) {
			return false
		}
	}

	doc, ok := i.prepare(sess, fields, false)
	if !ok {
		return false
	}

	entity := i.current.EntityID
	if e, present, err := fields.EntityID(); err != nil {
		sess.AddNotification(LevelError, err.Error())
		return false
	} else if present {
		entity = e
	}

	merged := i.current.Fields.Clone()
	for k, v := range doc {
		merged[k] = v
	}

	if err := i.store.Update(ctx, i.typ.Name, id, entity, merged); err != nil {
		if errors.Is(err, ErrNotFound) {
			sess.AddNotification(LevelError, fmt.Sprintf("Item not found: %s (%d)", i.typ.Name, id))
		} else {
			sess.LogSQLError(err)
		}
		return false
	}

	i.current.EntityID = entity
	i.current.Fields = merged
	return true
}

// GetFromDB loads the item with id and binds the model to it.
func (i *Item) GetFromDB(ctx context.Context, sess *Session, id int64) bool {
	rec, err := i.store.Get(ctx, i.typ.Name, id)
	if err != nil {
		if !errors.Is(err, ErrNotFound) && sess != nil {
			sess.LogSQLError(err)
		}
		return false
	}
	i.current = &rec
	return true
}

// prepare normalizes and validates fields, returning the document to store
// without the id and entity columns. With all set, declared fields missing
// from input are validated as empty.
func (i *Item) prepare(sess *Session, fields Fields, all bool) (Fields, bool) {
	doc := make(Fields, len(fields))
	for k, v := range fields {
		if k == FieldID || k == FieldEntityID {
			continue
		}
		doc[k] = v
	}

	ok := true
	for _, spec := range i.typ.Fields {
		v, present := doc[spec.Name]
		if !present && !all {
			continue
		}
		if s, isString := v.(string); isString && spec.Normalizer != nil {
			v = spec.Normalizer(s)
			doc[spec.Name] = v
		}
		if spec.Rules == "" {
			continue
		}
		if v == nil {
			v = ""
		}
		if err := validate.Var(v, spec.Rules); err != nil {
			ok = false
			sess.AddNotification(LevelError, describeViolation(spec, err))
		}
	}
	return doc, ok
}

func describeViolation(spec FieldSpec, err error) string {
	label := spec.Label
	if label == "" {
		label = spec.Name
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Sprintf("Invalid value for field %s: %v", label, err)
	}

	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("Mandatory field is not filled: %s", label)
	case "max":
		return fmt.Sprintf("Field %s is too long (max %s)", label, fe.Param())
	case "oneof":
		return fmt.Sprintf("Field %s must be one of: %s", label, fe.Param())
	default:
		if fe.Param() != "" {
			return fmt.Sprintf("Invalid value for field %s (%s=%s)", label, fe.Tag(), fe.Param())
		}
		return fmt.Sprintf("Invalid value for field %s (%s)", label, fe.Tag())
	}
}
