// Package parcelhub is the real-time core of a parcel tracking backend: it keeps
// live client connections, binds each one to an authenticated identity and fans
// parcel, payment and notification events out to them.
//
// Works both as a library embedded next to your parcel service AND as a
// standalone server (cmd/parcelhub-server) with a WebSocket endpoint and a
// small REST API for other services.
//
// # Features
//
//   - One active session per browser: a new login from the same browser
//     (same user-agent fingerprint) closes the previous connection
//   - Topics per identity ("identity:<id>") and for admins ("role:admin")
//   - Durable notifications: every notification is stored before it is pushed,
//     and the unread backlog is delivered as one batch on connect
//   - Agent presence reported to admins
//   - Typed event payloads for the whole parcel lifecycle
//   - Repository Pattern with Relica (MySQL, PostgreSQL, SQLite), MongoDB and
//     in-memory adapters
//   - Pluggable Logger and Metrics (Prometheus implementation in metrics/)
//   - Options Pattern for configuration
//
// # Quick Start
//
// Create the hub with a verifier and a notification store:
//
//	repos := relica.NewRepositories(db, "mysql")
//
//	verifier, _ := parcelhub.NewJWTVerifier([]byte(secret), repos.Identity)
//
//	hub, err := parcelhub.NewHub(
//	    parcelhub.WithVerifier(verifier),
//	    parcelhub.WithNotificationRepository(repos.Notification),
//	    parcelhub.WithLogger(logger),
//	)
//
// Serve WebSocket clients:
//
//	srv, err := ws.NewServer(hub, ws.WithLogger(logger))
//	http.Handle("/ws", srv)
//
// Publish domain events from your services:
//
//	hub.ParcelStatusUpdated(parcel)
//	hub.MarkUrgent(ctx, parcel)
//	hub.Notify(ctx, agentID, "Route changed", model.SeverityInfo, "")
//
// # Connection Lifecycle
//
//  1. CONNECT
//     Token → IdentityVerifier → Registry.Bind
//     (evict same-fingerprint connections, bind, join topics)
//     → connection:success → notifications:pending → agent online
//
//  2. LIVE
//     Domain events → Broadcaster → topic snapshot → per-connection queue
//
//  3. DISCONNECT
//     Leave topics → unregister → agent offline if no session is left
//
// # Wire Format
//
// Every frame, in both directions, is a JSON object:
//
//	{"event": "parcel:status-updated", "data": {"parcel": {...}}}
package parcelhub
