// Package store provides SQLite-backed storage for the auto-pick pipeline.
//
// It plays the part of the external document store the pipeline talks to:
//
//   - Entities: listings (orders, plans, foods, restaurants) and users as
//     JSON documents keyed by id, read with Show/Query and patched with Update
//   - Notifications: append-only in-app notification records
//   - Bookings: the normalized per-date booking ledger of each plan
//   - Outbox: email, push and chat messages waiting for delivery
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Update replaces top-level metadata keys inside a single transaction, so an
// order detail write is all-or-nothing. There is no optimistic locking: the
// last writer wins.
package store
