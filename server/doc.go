/*
Package server owns an editing session, a grid plus the brushes that sculpt it, and
exposes it to a host UI over HTTP.  The host performs its own raycasts and sends hits;
the server routes them through the active brush and publishes an event for every chunk
a brush writes.

Configuration comes from a TOML file:

	[server]
	httpAddress = "localhost:8000"
	corsDomains = ["http://localhost:3000"]

	[auth]
	secret_key = "..."

	[grid]
	extent = [8, 4, 8]
	chunkSize = 32
	groundLevel = 40.0

	[compute]
	workers = 8

	[brushes]
	library = "brushes.toml"

	[kafka]
	servers = ["localhost:9092"]
	topicPrefix = "sculpt"
*/
package server
