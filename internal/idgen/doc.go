// Package idgen wraps the UUID generator so that it can be stubbed in tests.
// Event and subscription identifiers produced here are opaque strings;
// connection identifiers are NOT generated here, they are composite keys.
package idgen
