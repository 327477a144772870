// Package vecdelta versions the module. The codec lives in package
// embedding; SQLite storage, replication and administration live in
// vector, vecsync and vecadmin.
package vecdelta

// Version returns the module name and release.
func Version() string {
	return "vecdelta v0.1.0"
}
