// Package natsclient manages the NATS connection used to republish firehose
// messages.
//
// The client wraps nats.Conn with status tracking, reconnect handling and
// optional Prometheus metrics. Publishing is available both on core NATS
// subjects and on JetStream streams with acknowledgement.
package natsclient
