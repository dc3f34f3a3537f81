// Package authz answers "may this profile do that to this item type" with a
// casbin RBAC enforcer. Policies are keyed by profile name, lower-case item
// type (or the plugin object) and action.
package authz

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"
	stringadapter "github.com/casbin/casbin/v2/persist/string-adapter"
)

// Actions understood by the default model.
const (
	ActionRead   = "read"
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionUse    = "use"
)

// ObjectPlugin is the object guarding the CSV import screen.
const ObjectPlugin = "plugin_etl"

// RightPluginUse is the profile right name shown to administrators.
const RightPluginUse = "plugin_etl_use"

//go:embed defaults/model.conf
var defaultModel string

//go:embed defaults/policy.csv
var defaultPolicy string

// Authorizer wraps a synced casbin enforcer.
type Authorizer struct {
	enforcer *casbin.SyncedEnforcer
}

// New loads the model and policy from files. An empty path selects the
// embedded default for that part.
func New(modelPath, policyPath string) (*Authorizer, error) {
	var (
		m   model.Model
		err error
	)
	if modelPath == "" {
		m, err = model.NewModelFromString(defaultModel)
	} else {
		m, err = model.NewModelFromFile(modelPath)
	}
	if err != nil {
		return nil, fmt.Errorf("authz model: %w", err)
	}

	if policyPath == "" {
		return newAuthorizer(m, defaultPolicy)
	}
	e, err := casbin.NewSyncedEnforcer(m, fileadapter.NewAdapter(policyPath))
	if err != nil {
		return nil, fmt.Errorf("authz policy %s: %w", policyPath, err)
	}
	e.EnableAutoSave(false)
	return &Authorizer{enforcer: e}, nil
}

// NewFromStrings builds an authorizer from in-memory model text and policy lines.
func NewFromStrings(modelText, policy string) (*Authorizer, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, fmt.Errorf("authz model: %w", err)
	}
	return newAuthorizer(m, policy)
}

// Default returns the authorizer with the embedded model and policy.
func Default() (*Authorizer, error) {
	return NewFromStrings(defaultModel, defaultPolicy)
}

// DefaultModel returns the embedded model text.
func DefaultModel() string { return defaultModel }

func newAuthorizer(m model.Model, policy string) (*Authorizer, error) {
	var (
		e   *casbin.SyncedEnforcer
		err error
	)
	// the string adapter rejects an empty policy
	if strings.TrimSpace(policy) == "" {
		e, err = casbin.NewSyncedEnforcer(m)
	} else {
		e, err = casbin.NewSyncedEnforcer(m, stringadapter.NewAdapter(policy))
	}
	if err != nil {
		return nil, fmt.Errorf("authz enforcer: %w", err)
	}
	e.EnableAutoSave(false)
	return &Authorizer{enforcer: e}, nil
}

// Can reports whether profile may perform action on object.
func (a *Authorizer) Can(profile, object, action string) (bool, error) {
	ok, err := a.enforcer.Enforce(profile, strings.ToLower(object), action)
	if err != nil {
		return false, fmt.Errorf("authz enforce %s/%s/%s: %w", profile, object, action, err)
	}
	return ok, nil
}

// CanUsePlugin reports whether profile holds the CSV import right.
func (a *Authorizer) CanUsePlugin(profile string) (bool, error) {
	return a.Can(profile, ObjectPlugin, ActionUse)
}

// Grant adds an allow rule at runtime. It does not persist.
func (a *Authorizer) Grant(profile, object, action string) error {
	if _, err := a.enforcer.AddPolicy(profile, strings.ToLower(object), action); err != nil {
		return fmt.Errorf("authz grant: %w", err)
	}
	return nil
}

// Revoke removes a rule previously granted or loaded.
func (a *Authorizer) Revoke(profile, object, action string) error {
	if _, err := a.enforcer.RemovePolicy(profile, strings.ToLower(object), action); err != nil {
		return fmt.Errorf("authz revoke: %w", err)
	}
	return nil
}
