// Package models defines the core domain models for the owner portal.
//
// # Persisted Models
//
// The following models are stored by the storage layer:
//   - User: A portal account (owner, accountant or admin)
//   - Property: A rental unit managed on behalf of an owner
//   - Review: A guest review synced from Hostaway
//
// # Vendor Models
//
// Reservation and Invoice are read from Hostkit on every request and never
// stored. HostawayListing and HostawayReservation mirror the Hostaway API.
//
// # Derived Models
//
// OwnerStatement and TouristTaxReport are computed by the calculator package
// for one property and date range. They are returned to the caller and
// discarded.
//
// # Money
//
// All monetary amounts use decimal.Decimal. Timestamps on persisted models
// are Unix seconds, matching the storage schema.
package models
