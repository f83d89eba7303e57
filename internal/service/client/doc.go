// Package client implements the lvc-ctl commands: querying substation status,
// listing recent events and issuing controls through the controller gRPC API.
package client
