/*
Package ports defines the driven-side interfaces of the inspector: the
execution repository client (the backend RPC surface), the notifier used to
report non-fatal fetch failures, and the source store backing the source
code cache.

Adapters under pkg/adapters implement these interfaces; the core packages
depend only on the interfaces.
*/
package ports
