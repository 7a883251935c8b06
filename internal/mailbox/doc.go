// Package mailbox persists the relay's inbox and outbox as newline-delimited
// JSON files.
//
// The inbox holds messages received from the remote operator; consumers read
// unread entries and flip their read flag. The outbox holds replies waiting to
// be published; the bridge drains it each cycle and rewrites the file with
// whatever could not be sent. Lines that are not valid JSON objects are never
// dropped: the inbox carries them through rewrites unchanged and the outbox
// sends them as plain text. Both files assume a single writing process.
package mailbox
