// Package jsonrpc holds the wire constants shared by the pool data RPC client
// and service.
package jsonrpc

// Namespace is the namespace under which the pool data service is registered.
const Namespace = "blend"

// Method names as exposed on the wire (namespace_method).
const (
	MethodPoolMeta     = Namespace + "_poolMeta"
	MethodPool         = Namespace + "_pool"
	MethodOracle       = Namespace + "_oracle"
	MethodBackstop     = Namespace + "_backstop"
	MethodBackstopPool = Namespace + "_backstopPool"
)

// ErrCodeNotFound is the JSON-RPC error code returned when the requested
// pool or backstop entry does not exist.
const ErrCodeNotFound = -32004
