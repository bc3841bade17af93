// Package repokit carries the shared repository plumbing: binder
// factories, tx hooks, startup guards, and aliases of the store seams
// so repos import one package instead of two.
package repokit

import "shipledger/internal/platform/store"

type (
	// Queryer is the read/write surface SQL repos program against
	Queryer = store.RowQuerier

	// TxRunner runs a function inside one transaction
	TxRunner = store.TxRunner

	// Rows is an iterable result set
	Rows = store.Rows

	// Row is a single scannable row
	Row = store.Row

	// CommandTag reports what a write touched
	CommandTag = store.CommandTag
)
