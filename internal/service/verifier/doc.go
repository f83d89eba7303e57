// Package verifier runs the post-control verification of one substation per call.
//
// VerifyCycle classifies every pending control, counts failures and clears the
// pending flags; GuardTie reports an unsafe bus tie on the belly-up channel.
// Both write through a Sink and surface delivery failures as DeliveryError.
package verifier
