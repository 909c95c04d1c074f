// Package harness runs the auto-pick job against YAML fixtures and checks
// the outcome.
//
// # Fixture Format
//
// Fixtures seed the document store:
//
//	listings:
//	  - id: F1
//	    title: Cơm gà
//	    publicData: { foodType: savory, allergicIngredients: [sữa] }
//	  - id: order-1
//	    title: Team lunch
//	    metadata: { orderType: group, orderState: picking, plans: [plan-1] }
//	users:
//	  - id: M
//	    email: minh@example.com
//	    profile:
//	      firstName: Minh
//	      lastName: Lê
//	      publicData: { allergies: [egg] }
//
// Date keys inside an order detail must be quoted so they stay strings.
//
// # Scenario Format
//
//	name: worked_example
//	description: "What this scenario validates"
//	fixture: ../fixtures/team_lunch.yaml
//	trigger: { orderId: order-1 }
//	fail_channels: [push]
//	expect:
//	  status: resolved
//	  resolved: 3
//	assertions:
//	  - type: member_order
//	    date: "1760893200000"
//	    member: M
//	    expect: { status: joined, foodId: F1 }
//	  - type: outbox_count
//	    channel: email
//	    count: 2
//
// # Assertion Types
//
//   - member_order: the stored member order of one date matches expect
//   - booking_count: the plan has count ledger records
//   - outbox_count: the outbox of a channel holds count messages
//   - notification_count: a user has count persisted notifications
//   - change_count: the change set has count records
//
// # Deterministic Testing
//
// Every scenario runs against a fresh in-memory store with a seeded random
// source, sequential thread tokens and a frozen clock, so the outcome can be
// compared against a golden snapshot.
package harness
