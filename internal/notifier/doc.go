// Package notifier delivers reminder notifications to owners over a chat
// transport adapter.
//
// # Delivery
//
// Deliver is synchronous: it waits on a shared token bucket, bounds each
// adapter call with a timeout and retries transient failures with jittered
// exponential backoff. The caller receives the message reference needed to
// delete the notification later.
package notifier
