package host

// Catalog resolves item types from a TypeRegistry into Items sharing one
// store and one authorizer.
type Catalog struct {
	types *TypeRegistry
	store Store
	authz Authorizer
}

// NewCatalog wires a registry, a store and an authorizer.
func NewCatalog(types *TypeRegistry, store Store, authz Authorizer) *Catalog {
	return &Catalog{types: types, store: store, authz: authz}
}

// Lookup returns a fresh Item for typeName, ignoring case.
func (c *Catalog) Lookup(typeName string) (Model, bool) {
	t, ok := c.types.Get(typeName)
	if !ok {
		return nil, false
	}
	return NewItem(t, c.store, c.authz), true
}

// Types exposes the registry.
func (c *Catalog) Types() *TypeRegistry { return c.types }

// Store exposes the backing store.
func (c *Catalog) Store() Store { return c.store }
