// Package component defines the lifecycle and discovery contracts shared by
// long-running pieces of the daemon, such as the firehose bridge.
//
// A component moves through created, initialized, started and stopped states.
// Initialize performs setup without a context, Start runs the component under
// a caller-owned context, and Stop shuts it down within a timeout. Components
// additionally expose metadata, health and flow metrics through Discoverable.
package component
