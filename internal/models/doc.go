// Package models defines the core domain models for the Roomie bills
// backend.
//
// # Models
//
//   - Bill: a shared expense split among team members, with per-member
//     payment state
//   - PaymentRecord: one member's paid flag and timestamp on a bill
//   - TeamMember: a member id plus role, consumed from the team
//     collaborator (not owned here)
//   - Statistics: derived cross-bill totals and per-member debt
//   - Event: closed set of lifecycle event variants (added, settled,
//     due date extended, deleted)
//
// # Design Principles
//
//  1. **Minor units**: all money is int64 minor currency units; no floats
//  2. **Frozen membership**: a bill's Payments map is seeded from the
//     team roster at creation time and never reconciled afterwards
//  3. **Derived state stays derived**: overdue status and Statistics are
//     computed at read time, never stored
//  4. **Avoid circular references**: models reference each other by ID
//     strings, not pointers
package models
