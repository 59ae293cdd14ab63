// Package store defines the persistence contract for harvested records and the rows derived
// from them. Implementations live under internal/storage; this package must not import database
// drivers or concrete clients.
//
// Stores are not safe for concurrent writers. The harvest pipeline funnels every write through a
// single goroutine (see internal/writer) and the normalizer runs sequentially.
package store
