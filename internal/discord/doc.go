// Package discord provides the Discord REST helpers used to answer DMs.
//
// REST endpoint:
//   - https://discord.com/api/v10
//
// Calls used:
//   - POST /users/@me/channels (open DM channel)
//   - POST /channels/{id}/messages (send, chunked at 1990 characters)
//   - PUT /channels/{id}/messages/{id}/reactions/{emoji}/@me
//   - POST /channels/{id}/typing
//
// Requests can be routed through a proxy that takes the target as ?url=.
package discord
