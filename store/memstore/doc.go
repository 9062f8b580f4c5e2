// Package memstore is an in-memory speaker.Store.
//
// Transactions are serialized by a single mutex and rolled back by restoring
// a snapshot taken when the transaction began. Faults lets tests make
// individual operations fail.
package memstore
