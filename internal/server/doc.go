// Package server exposes a bridge's cache and commands over HTTP.
//
// # Routes
//
//	GET  /healthz                    connection state and counters
//	GET  /api/groups                 cached groups
//	GET  /api/groups/{id}
//	PUT  /api/groups/{id}/state      {"state":"ON","brightness":40}
//	GET  /api/lights                 cached lights
//	GET  /api/lights/{address}       ?refresh=true queries the bridge first
//	PUT  /api/lights/{address}/state
//	POST /api/refresh                group list, group info, light status
//	GET  /ws                         snapshot, then one message per cache change
//
// State bodies use the same JSON as the MQTT relay's command topics.
//
// Bridge failures map to HTTP statuses: a request already outstanding is
// 409, a timeout is 504, a lost connection is 503 and a response that
// failed to decode is 502.
//
// # WebSocket
//
// A client receives a "snapshot" message with every cached group and light,
// then an "update" message carrying the touched entities whenever the cache
// changes. Clients may send {"type":"ping"} and get {"type":"pong"} back.
//
// # TLS
//
// When a certificate and key are configured the API is served over HTTPS
// with TLS 1.2 or newer.
package server
