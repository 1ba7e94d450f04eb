/*
Package domain holds the data model shared by every component of the
inspector: execution identifiers, event and response variants, versions and
version paths, backtrace structures and execution statuses.

Values in this package are plain data. They carry no behavior beyond
identifier arithmetic (hierarchy walking, version path navigation) and are
safe to copy across goroutines.
*/
package domain
