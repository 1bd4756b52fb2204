// Package relay turns gateway notifications into user-visible activity and
// answers direct messages.
//
// Sink implements gateway.MessageSink. It forwards status and connect button
// changes to a UI, keeps error notices in the activity log, and hands
// MESSAGE_CREATE payloads to a Handler.
//
// Handler filters messages (self, bots, guild channels, allowlist), then for
// each accepted DM:
//   - logs it and publishes it to the bus
//   - reacts and shows the typing indicator
//   - asks the Responder for a reply and sends it as a Discord reply
//
// Handling runs on a bounded worker pool and Dispatch never blocks.
package relay
