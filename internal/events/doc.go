// Package events provides types and interfaces for an event-driven architecture.
//
// This package defines event types and handler interfaces that allow for loose coupling
// between components in the system. Services can emit events without knowing which
// handlers will process them; the posting runner, for example, learns about new
// policy versions and explicit posting requests only through events.
//
// The primary components are:
//   - Event: a typed, tenant-scoped message with a JSON payload
//   - EventHandler: Interface for components that can handle events
//   - EventEmitter: Interface for components that can emit events
package events
