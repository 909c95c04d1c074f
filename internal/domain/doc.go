// Package domain defines the tagged records the auto-pick pipeline works on.
//
// Storage hands out loosely shaped entity documents (an id, an attributes
// object with publicData/metadata/privateData, and images). Everything past
// the storage boundary works on explicit records instead:
//
//   - Order: the booking entity (type, state, delivery hour, price ceiling)
//   - Plan: holds the mutable OrderDetail and the per-date transaction ids
//   - OrderDetail: date key -> SubOrder, one entry per delivery day
//   - SubOrder: restaurant menu, member orders, line items, transaction id
//   - Member / Food: users and food listings as the pipeline needs them
//
// The Decode* functions convert an Entity into a record and return a
// *ValidationError when a required field is missing or malformed.
package domain
