// Package ws carries the parcelhub event stream over WebSocket using
// gorilla/websocket.
//
// Server is an http.Handler. Each upgraded request becomes a Conn that is
// handed to the hub: the credential token is taken from the "token" query
// parameter or an "Authorization: Bearer" header, and the User-Agent header
// is the connection fingerprint.
//
//	srv, err := ws.NewServer(hub, ws.WithLogger(logger))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	http.Handle("/ws", srv)
//
// Frames are JSON text messages in both directions:
//
//	{"event": "parcel:status-updated", "data": {...}}
package ws
