// Package bridge runs the relay loop between an ntfy topic and the local
// mailbox.
//
// Each cycle polls the listen topic, skips ids already seen during this
// process lifetime along with the bridge's own startup notice, answers
// query messages immediately on the reply topic, appends everything else to
// the inbox, and then drains the outbox. Cycles are separated by an
// interruptible wait: Stop wakes the loop at once, while work already in
// flight is allowed to finish under the transport's own timeout.
//
// The seen-id set lives on the Bridge value and is bounded; once it reaches
// capacity the oldest ids are evicted first.
package bridge
