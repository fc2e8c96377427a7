// Package ports defines the interfaces (ports) that connect the application
// layer to infrastructure adapters.
//
// In Clean Architecture / Hexagonal Architecture, ports are the boundaries
// between the application core and the outside world. They define what the
// application needs from external systems without specifying how those needs
// are fulfilled.
//
// # Port Interfaces
//
//   - [DigestSender]: Delivers one rendered digest email
//   - [Renderer]: Renders a digest payload to HTML
//   - [ErrorSink]: Receives flush failures
//   - [StateRepository]: Persists and loads file tail offsets
//   - [EventSink]: Accepts decoded events from an event source
//   - [Logger]: Structured logging abstraction
//
// # Usage
//
// The application layer (internal/app) depends only on these interfaces.
// Infrastructure adapters (internal/adapters) implement these interfaces
// with concrete implementations (SMTP, file system, zerolog, etc.).
package ports
