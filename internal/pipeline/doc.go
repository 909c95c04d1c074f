// Package pipeline runs the auto-pick job for one order.
//
// A run loads the order and its plan, resolves members who did not choose
// food, commits the new order detail, and then does the follow-up work:
//
//   - compares the order detail before and after to build a change set
//   - rewrites the plan's booking records in the ledger
//   - makes sure the plan has a chat thread id
//   - fans notifications out to every configured channel
//
// Only loading and the commit can fail a run. Orders that are not in the
// picking phase, or triggers without an order id, are logged and skipped.
// Follow-up failures are logged and never undo the commit.
package pipeline
