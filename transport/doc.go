/*
Package transport is the external residual-in / estimate-out boundary
(spec.md section 6), grounded on
niceyeti-tabular/tabular/server/server.go's websocket pub/sub server:
the same gorilla/websocket upgrader, ping/pong keepalive and write
deadlines. Every "/residual" connection's read loop sends directly
into one shared queue; niceyeti/channerics' OrDone wraps that queue so
Close ends a reader's range loop, and its NewTicker drives the write
pumps' keepalive pings.
*/
package transport
