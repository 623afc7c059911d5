// Package memory provides in-process implementations of the identity store
// and product owner lookup. It backs local runs and tests.
package memory
