// Package bridge connects the firehose stream consumer to NATS.
//
// A Bridge keeps a fixed demand window open on the consumer, wraps each
// decoded message in an Envelope carrying a unique id and receive timestamp,
// and publishes it to a configured subject. The bridge carries no reconnect
// policy: a terminal stream failure marks it unhealthy and ends the pump.
package bridge
