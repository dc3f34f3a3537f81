// Package importer pushes single records into the host through the host API
// adapter and reports what went wrong for each one.
package importer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/JonMunkholm/etl/internal/apierror"
	"github.com/JonMunkholm/etl/internal/host"
	"github.com/JonMunkholm/etl/internal/hostapi"
	"github.com/JonMunkholm/etl/internal/logging"
)

// Importer stores one record of an item type. An empty result means the
// record was saved.
type Importer interface {
	ImportRecord(ctx context.Context, sess *host.Session, typeName string, data any) []apierror.Error
}

// ByAPI imports through a hostapi.API. It keeps the adapter's error list
// between calls, so one ByAPI serves one import at a time.
type ByAPI struct {
	api *hostapi.API
}

// NewByAPI returns an importer driving api.
func NewByAPI(api *hostapi.API) *ByAPI {
	return &ByAPI{api: api}
}

// ImportRecord creates the record, or updates it when data carries an id.
func (b *ByAPI) ImportRecord(ctx context.Context, sess *host.Session, typeName string, data any) []apierror.Error {
	b.api.Clear()
	start := time.Now()
	if sess != nil {
		// leftovers of an earlier call belong to no record
		sess.DrainSQLErrors()
		sess.ClearNotifications()
	}

	fields, err := toFields(data)
	switch {
	case err != nil:
		b.api.Add(apierror.New("Usage: data must be an object or a mapping", 500, apierror.DefaultStatusCode, ""))
	case sess == nil:
		b.api.Add(apierror.New("Usage: a session is required", 500, apierror.DefaultStatusCode, ""))
	default:
		if output := b.dispatch(ctx, sess, typeName, fields); output != "" {
			logging.FromContext(ctx).Debug("host wrote output during import",
				"itemtype", typeName,
				"output", output,
			)
			b.api.Add(b.api.NewError(output, 500, apierror.DefaultStatusCode))
		}
	}

	errs := b.api.Errors()
	observeRecord(b.metricLabel(typeName), len(errs) == 0, time.Since(start))
	return errs
}

// metricLabel keeps the itemtype label bounded by the registered types.
func (b *ByAPI) metricLabel(typeName string) string {
	if m, ok := b.api.Registry().Lookup(typeName); ok {
		return m.TypeName()
	}
	return unknownItemType
}

// dispatch runs the create or update with the session output captured and
// panics turned into errors. It returns whatever the host wrote.
func (b *ByAPI) dispatch(ctx context.Context, sess *host.Session, typeName string, fields host.Fields) (output string) {
	var buf bytes.Buffer
	prev := sess.SetOutput(&buf)

	defer func() {
		sess.SetOutput(prev)
		if r := recover(); r != nil {
			logging.FromContext(ctx).Error("panic during import",
				"itemtype", typeName,
				"panic", r,
			)
			b.api.Add(apierror.New(fmt.Sprintf("SERVER ERROR\n%v", r), 500, apierror.DefaultStatusCode, ""))
		}
		output = buf.String()
	}()

	var err error
	if _, hasID := fields.ID(); hasID {
		err = b.api.UpdateItem(ctx, sess, typeName, fields)
	} else {
		_, err = b.api.CreateItem(ctx, sess, typeName, fields)
	}

	if err != nil && !errors.Is(err, apierror.ErrRecoverable) {
		b.api.Add(apierror.New(err.Error(), 500, apierror.DefaultStatusCode, ""))
	}
	return
}

// toFields accepts mappings and structs. Structs go through their JSON form
// so json tags name the fields.
func toFields(data any) (host.Fields, error) {
	switch d := data.(type) {
	case host.Fields:
		return d.Clone(), nil
	case map[string]any:
		return host.Fields(d).Clone(), nil
	case map[string]string:
		out := make(host.Fields, len(d))
		for k, v := range d {
			out[k] = v
		}
		return out, nil
	}

	v := reflect.ValueOf(data)
	for v.Kind() == reflect.Pointer && !v.IsNil() {
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil, fmt.Errorf("unsupported record type %T", data)
	}

	raw, err := json.Marshal(v.Interface())
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	var out host.Fields
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return out, nil
}
