/*
Package pubsub provides the per-collection broadcast fabric for mutation
events.

Every collection gets its own broadcast channel, created lazily when the
first subscriber arrives. Mutation handlers publish exactly one event after
a successful storage write; publishing never blocks and never fails.

# Slow consumers

Each subscriber owns a bounded buffer (20,000 events). When a consumer falls
behind, new events for it are dropped and counted instead of stalling the
publisher. The consumer learns how many events it missed through
Subscription.Lagged and simply resumes from there; a lagging stream is never
closed.

# Channel lifecycle

A channel whose subscribers have all disconnected is replaced with a fresh
one on the next subscribe, so abandoned channels do not pin buffer capacity.
Fabric.Close ends every stream, which subscribers observe as a closed event
channel.
*/
package pubsub
