// Package hostapi drives the host data layer on behalf of the importer and
// turns every failure into an apierror.Error on its collector.
package hostapi

import (
	"context"
	"errors"
	"strconv"

	"github.com/JonMunkholm/etl/internal/apierror"
	"github.com/JonMunkholm/etl/internal/host"
)

// Status codes recorded by the adapter.
const (
	StatusMethodNotAllowed = "ERROR_METHOD_NOT_ALLOWED"
	StatusAddFailed        = "ERROR_GLPI_ADD"
	StatusUpdateFailed     = "ERROR_GLPI_UPDATE"
	StatusItemNotFound     = "ERROR_ITEM_NOT_FOUND"
)

// ErrBackendOnly is returned by the HTTP-facing entry points the adapter
// does not serve.
var ErrBackendOnly = errors.New("Method not implemented. This class is a backend library. No HTTP support.")

// API is the in-process host API. It is bound to one import and is not safe
// for concurrent use.
type API struct {
	*apierror.Collector
	registry host.Registry
}

// New returns an adapter over registry whose errors cite docBaseURL.
func New(registry host.Registry, docBaseURL string) *API {
	return &API{
		Collector: apierror.NewCollector(docBaseURL),
		registry:  registry,
	}
}

// Registry returns the item type registry the adapter resolves models from.
func (a *API) Registry() host.Registry { return a.registry }

// GetModel resolves typeName to a fresh model.
func (a *API) GetModel(typeName string) (host.Model, error) {
	m, ok := a.registry.Lookup(typeName)
	if !ok {
		a.Add(apierror.New("Classe introuvable: "+typeName, 400, apierror.DefaultStatusCode, ""))
		return nil, apierror.ErrRecoverable
	}
	return m, nil
}

// CreateItem adds a new item of typeName and returns its id.
func (a *API) CreateItem(ctx context.Context, sess *host.Session, typeName string, fields host.Fields) (int64, error) {
	model, err := a.GetModel(typeName)
	if err != nil {
		return 0, err
	}

	if !model.Can(ctx, sess, host.NewItemID, host.ActionCreate, fields) {
		a.AddForItem("You don't have permission to create this", typeName, "", 403, StatusMethodNotAllowed)
		a.collectHostMessages(sess)
		return 0, apierror.ErrRecoverable
	}

	input := fields.Clone()
	if _, present := input[host.FieldEntityID]; !present {
		input[host.FieldEntityID] = sess.Entity
	}

	id, ok := model.Add(ctx, sess, host.Sanitize(input))
	if !ok {
		a.AddForItem("Failed to create", typeName, "", 400, StatusAddFailed)
	}

	a.collectHostMessages(sess)
	if a.HasError() {
		return 0, apierror.ErrRecoverable
	}
	return id, nil
}

// UpdateItem applies fields to the item named by fields["id"]. A failed
// save is recorded but not returned. Host messages are collected on every
// path so none are left on the session for the next record.
func (a *API) UpdateItem(ctx context.Context, sess *host.Session, typeName string, fields host.Fields) error {
	idText, ok := fields.ID()
	if !ok {
		a.Add(a.NewError(
			apierror.ItemMessage("Missing property id. Usage: Provide the ID of the object to update.", typeName, "?", ""),
			400, StatusUpdateFailed,
		))
		return apierror.ErrRecoverable
	}
	defer a.collectHostMessages(sess)

	model, err := a.GetModel(typeName)
	if err != nil {
		return err
	}

	id, err := strconv.ParseInt(idText, 10, 64)
	if err != nil {
		a.AddForItem("Item not found", typeName, idText, 400, StatusItemNotFound)
		return apierror.ErrRecoverable
	}

	if !model.Can(ctx, sess, id, host.ActionUpdate, fields) {
		a.AddForItem("You don't have permission to update this", typeName, idText, 403, StatusMethodNotAllowed)
		return apierror.ErrRecoverable
	}

	if !model.GetFromDB(ctx, sess, id) {
		a.AddForItem("Item not found", typeName, idText, 400, StatusItemNotFound)
		return apierror.ErrRecoverable
	}

	if !model.Update(ctx, sess, host.Sanitize(fields)) {
		a.AddForItem("Update failed for ", typeName, idText, 400, StatusUpdateFailed)
	}
	return nil
}

// ReturnError records an error citing the documentation and unwinds.
func (a *API) ReturnError(message string, httpCode int, statusCode string) error {
	if httpCode == 0 {
		httpCode = apierror.DefaultHTTPCode
	}
	a.Add(a.NewError(message, httpCode, statusCode))
	return apierror.ErrRecoverable
}

// collectHostMessages moves storage failures and queued notifications into
// the collector. Notifications carry host markup and are kept unescaped.
func (a *API) collectHostMessages(sess *host.Session) {
	for _, msg := range sess.DrainSQLErrors() {
		a.Add(a.NewError(msg, 400, apierror.DefaultStatusCode))
	}
	for _, msg := range sess.Notifications() {
		a.Add(a.NewError(msg, 400, apierror.DefaultStatusCode).Raw())
	}
	sess.ClearNotifications()
}

// Call is an HTTP entry point and is not served.
func (a *API) Call() error { return ErrBackendOnly }

// ParseIncomingParams is an HTTP entry point and is not served.
func (a *API) ParseIncomingParams() error { return ErrBackendOnly }

// ReturnResponse is an HTTP entry point and is not served.
func (a *API) ReturnResponse(any, int) error { return ErrBackendOnly }

// ManageUploadedFiles is an HTTP entry point and is not served.
func (a *API) ManageUploadedFiles() error { return ErrBackendOnly }
