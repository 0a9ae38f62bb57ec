// Package server is the WebSocket gateway of the arena chat service.
//
// A Server wires the connection registry, the room store and the broker
// behind a Hub. The hub owns the transport side: it registers each upgraded
// connection, runs the client pumps, turns inbound frames into broker calls
// and delivers broker events to per-client queues without blocking. Plain
// HTTP endpoints report health, rooms and status.
package server
