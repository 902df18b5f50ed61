// Package grpc serves and probes the gRPC health protocol for the field
// host.
package grpc
