// Package store defines the persistent configuration store contract and its
// database/sql implementation.
//
// The store holds configuration rows keyed by (environment id, key), where a
// null environment id marks a global row that applies to every environment
// unless an environment-specific row overrides it. Environments themselves
// are rows mapping a short uppercase code (DEV, UAT, PROD) to the stable
// numeric id used for all foreign-key relationships.
//
// Expected absence (no matching row) is returned as a nil result with a nil
// error; only transport and query failures produce errors.
package store
