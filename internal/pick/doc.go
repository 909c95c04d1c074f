// Package pick decides which food a member who did not choose gets.
//
// Two filters narrow a day's menu for one member:
//
//   - EligibleFoodIDs keeps foods priced at or under the order's per-member
//     ceiling. An unset price counts as zero and is always eligible.
//   - Selector.SafeFoods drops foods whose allergens overlap the member's
//     allergies, comparing text with diacritics and case folded away, so the
//     ingredient "trứng" matches the allergy label "Trứng" for the key "egg".
//
// Selector.Pick then draws one safe food uniformly at random. The random
// source is injected so tests can force a deterministic pick.
package pick
