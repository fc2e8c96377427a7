// Package domain contains the core domain entities and value objects for digestmail.
//
// This package represents the innermost layer of the Clean Architecture. It has
// no dependencies on infrastructure concerns (SMTP, HTTP, file system, logging)
// and contains only pure business logic.
//
// # Entities
//
//   - [Event]: A single log event delivered by the event source
//   - [Batch]: A size-bounded, ordered slice of events rendered into one digest
//   - [Message]: A rendered digest email ready for the transport
//   - [Payload]: The template-traversable structure built for one batch
//   - [TailState]: Persistent read offsets for the file tail source
//
// # Design Principles
//
// Domain entities are:
//   - Immutable after construction (where practical)
//   - Free of infrastructure dependencies
//   - Focused on business rules and invariants
//   - Testable without mocks or external systems
package domain
