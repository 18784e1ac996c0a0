// Package models defines the core domain models for cost sharing.
//
// # Models
//
//   - User: a person identified by email, created on first login
//   - Group: a named set of members who share expenses, with a fixed creator
//   - Expense: an amount paid by one member and split equally among participants
//   - ExpenseInput: the mutable fields of an expense, used for create and update
//
// # Design Principles
//
// 1. **Storage owns identity**: numeric IDs are assigned by the store, never by callers
// 2. **Populated graphs**: groups carry their creator and members, expenses carry their
// payer and participants, so callers never need follow-up lookups
// 3. **Derived values stay derived**: PerPersonAmount is never persisted; the service
// layer computes it after every read or write
// 4. **Ordering is part of the contract**: members and participants are sorted by user ID
package models
