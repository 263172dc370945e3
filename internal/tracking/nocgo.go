//go:build !cgo

package tracking

// go-sqlite3 needs cgo; builds without it open no library
const cgoEnabled = false
