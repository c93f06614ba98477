// Package app is the composition root of the submission review service.
//
// # Architecture Role
//
// The app package builds every collaborator from configuration and hands
// long-running pieces to a system.Manager. It holds no business rules; those
// live in internal/review and the domain packages.
//
// # Package Structure
//
//	internal/
//	├── app/                # Wiring and lifecycle (this package)
//	│   └── system/         # Service interface and Manager
//	├── domain/             # Submission, account and engagement models
//	├── review/             # Submission workflows
//	├── storage/            # Store contracts
//	│   ├── memory/         # In-memory store for tests and local runs
//	│   └── postgres/       # PostgreSQL store on the database gateway
//	├── database/           # sqlx gateway and embedded migrations
//	├── identity/           # Login and JWT verification
//	├── httpapi/            # JSON HTTP surface
//	├── middleware/         # Auth, rate limit, CORS, tracing, metrics
//	├── events/             # Websocket hub and Kafka publisher
//	└── videometrics/       # TikTok metrics provider and refresher
//
// # Lifecycle
//
// Start runs registered services in order: background workers first, then the
// HTTP server. Stop drains them in reverse, so the server stops accepting
// requests before the stores and publishers it depends on are closed.
package app
