// Package wire converts controller domain values to and from protobuf well-known types.
//
// The same structpb documents are used by the gRPC API and by the on-disk state file,
// so both stay readable with protojson and need no generated code.
package wire
