// Package resolver implements tiered configuration resolution.
//
// A value is resolved by trying, in order: the TTL value cache, an
// environment-specific store row, a global store row, a process environment
// variable (restricted to development contexts), and finally a
// caller-supplied default. Store failures degrade to the next tier rather
// than propagating; the only loud failure in the package is
// EnvironmentUnresolvedError from CurrentEnvironmentID, which guards
// foreign-key-bearing operations.
//
// Environment identity is split across two collaborators: the Detector
// produces the current environment code from an override / env var / store
// / fail-safe hierarchy, and the EnvironmentResolver converts codes to the
// stable numeric ids the store requires for foreign keys.
package resolver
