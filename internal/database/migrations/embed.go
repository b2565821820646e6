// Package migrations carries the subset of the MoneyWiz Core Data schema that
// the analytics read. It is used to build fixture and demo databases.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
