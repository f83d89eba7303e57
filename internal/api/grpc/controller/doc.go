// Package controller exposes the volt/var controller over gRPC.
//
// The service is described by hand with protobuf well-known types as messages:
// substations and events travel as google.protobuf.Struct documents encoded by
// the wire package.
package controller
