// Momentum - Market Momentum Video Ranking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/momentum

/*
Package cache provides the three-tier cache shared by the ranking pipeline.

# Tiers

Reads go fastest first and stop at the first live value:

  - fast: Redis (RedisTier), shared across replicas, default TTL 4h
  - memory: in-process LRU (MemoryTier), 1000 entries, default TTL 1h
  - durable: Badger on local disk (BadgerTier), default TTL 24h

A hit in a slower tier back-fills the faster ones. Values carry their
absolute expiry in an 8-byte header, so a back-filled copy expires with
its source. An unreachable tier is logged and treated as a miss; the
pipeline keeps working on whatever tiers remain.

# Keys

Keys are built by ResponseKey, SignalKey, TermsKey and RelevanceKey.
RelevanceKey uses Fingerprint, an order-independent hash of the item IDs,
so the same batch scored twice in any order hits the same entry.

Invalidation uses Redis-style globs (* and ?) through DeletePattern:

	n, err := tiered.DeletePattern(ctx, cache.MarketPattern(cache.PrefixResponse, "DE"))

# Success tracking

OutcomeWindow is a bucketed sliding window over success/failure outcomes.
The trend-signal client uses its Rate to stretch request delays when the
upstream starts refusing.

# Thread Safety

All types are safe for concurrent use.
*/
package cache
