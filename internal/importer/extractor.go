package importer

import (
	"context"
	"strconv"

	"github.com/JonMunkholm/etl/internal/host"
	"github.com/JonMunkholm/etl/internal/hostapi"
)

// SourceTypeItemType names sources read from a host item type.
const SourceTypeItemType = "itemtype"

// DefaultExtractLimit caps a listing when the source sets no limit.
const DefaultExtractLimit = 1000

// Source is one named input of a plan.
type Source struct {
	Name  string // item type name for itemtype sources
	Type  string
	Limit int
}

// Extractor reads records back out of a data source.
type Extractor interface {
	KnowsSource(name string) bool
	Extract(ctx context.Context, sess *host.Session, src Source) ([]host.Fields, error)
}

// ExtractorByAPI lists host items of one type. Problems are recorded on the
// adapter and Extract then returns apierror.ErrRecoverable.
type ExtractorByAPI struct {
	api   *hostapi.API
	store host.Store
}

// NewExtractorByAPI returns an extractor resolving types through api and
// reading from store.
func NewExtractorByAPI(api *hostapi.API, store host.Store) *ExtractorByAPI {
	return &ExtractorByAPI{api: api, store: store}
}

// KnowsSource reports whether name is a registered item type.
func (e *ExtractorByAPI) KnowsSource(name string) bool {
	_, ok := e.api.Registry().Lookup(name)
	return ok
}

// Extract returns the items of src the session may read, id and entity included.
func (e *ExtractorByAPI) Extract(ctx context.Context, sess *host.Session, src Source) ([]host.Fields, error) {
	if src.Type != SourceTypeItemType {
		return nil, e.api.ReturnError("Unsupported source type: "+src.Type, 400, "")
	}
	model, err := e.api.GetModel(src.Name)
	if err != nil {
		return nil, err
	}

	limit := src.Limit
	if limit <= 0 {
		limit = DefaultExtractLimit
	}
	records, err := e.store.List(ctx, src.Name, limit)
	if err != nil {
		return nil, e.api.ReturnError(err.Error(), 500, "")
	}

	out := make([]host.Fields, 0, len(records))
	for _, rec := range records {
		if !model.Can(ctx, sess, rec.ID, host.ActionRead, nil) {
			continue
		}
		fields := rec.Fields.Clone()
		fields[host.FieldID] = strconv.FormatInt(rec.ID, 10)
		fields[host.FieldEntityID] = strconv.FormatInt(rec.EntityID, 10)
		out = append(out, fields)
	}
	observeExtracted(model.TypeName(), len(out))
	return out, nil
}
