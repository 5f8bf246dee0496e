// Package notify turns ticket lifecycle events into SMS messages.
//
// A notification runs in three steps:
//
//  1. Resolver computes the audience: team members and/or the ticket
//     creator, filtered to users with a phone number, notifications enabled
//     and a valid sms_notifications consent, deduplicated by user id with the
//     ticket_creator role taking precedence.
//  2. Composer renders the role- and event-specific text. It is pure and
//     table driven, keyed by (event type, role).
//  3. Dispatcher sends every message concurrently and waits for all of them.
//     A failed or panicking send is counted, never propagated, so
//     Succeeded+Failed always equals Total.
//
// Per-recipient problems (profile or consent lookups, delivery) are logged
// and absorbed. Only calling-convention errors such as an unknown team
// escape Resolve.
package notify
