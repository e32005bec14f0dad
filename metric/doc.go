// Package metric provides a process-wide Prometheus registry with
// component-scoped registration and an HTTP exposition server.
//
// Components register their collectors under a component name so that
// duplicate registrations are rejected with a descriptive error rather
// than a prometheus panic. The registry always carries the standard Go
// runtime and process collectors.
package metric
