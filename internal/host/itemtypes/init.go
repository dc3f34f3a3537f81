// Package itemtypes registers the built-in item types with host.DefaultTypes.
// Import this package to ensure all item types are registered.
package itemtypes

// Each file uses init() to register the types of one menu group.
