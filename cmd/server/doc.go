// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

/*
Package main is the entry point for the Scribe server.

Scribe is a self-hosted Micropub server. Clients such as Quill, Indigenous
or Micropublish post notes, articles, replies, likes, check-ins and photos
to the /micropub endpoint with an IndieAuth bearer token, and Scribe stores
them as entries with permalinks under the configured site URL.

# Application Architecture

The server runs its long-lived components under a Suture v4 supervisor tree:

	RootSupervisor ("scribe")
	├── DataSupervisor ("data-layer")
	│   ├── Store GC (badger value log, badger driver only)
	│   ├── Backup Scheduler (tar.gz archives, BACKUP_ENABLED=true)
	│   └── WAL Compactor (WAL_ENABLED=true)
	├── MessagingSupervisor ("messaging-layer")
	│   ├── Event Bus (watermill router, memory or NATS)
	│   ├── WAL Retry Loop (redelivers undelivered events, WAL_ENABLED=true)
	│   └── WebSocket Hub (live entry feed)
	└── APISupervisor ("api-layer")
	    └── HTTP Server (micropub, media, discovery, health)

Component initialization order:

 1. Configuration: Koanf v2 with defaults, YAML file and environment variables
 2. Logging: zerolog with JSON/console output modes
 3. Store: BadgerDB (default) or SQLite
 4. IndieAuth: token verifier (introspection, jwt or static) and gate
 5. Authorization: Casbin role enforcer seeded from stored users
 6. Events: watermill bus with syndication, websocket and log subscribers,
    optionally behind the badger event WAL
 7. Media: filesystem media endpoint (optional)
 8. Micropub pipeline and HTTP router
 9. Supervisor Tree: Suture v4 process supervision

# Configuration

Configuration is loaded from config.yaml (or CONFIG_PATH) and environment
variables:

	SITE_URL=https://example.com/
	INDIEAUTH_MODE=introspection
	TOKEN_ENDPOINT=https://tokens.indieauth.com/token
	STORE_DRIVER=badger
	STORE_PATH=/data/scribe
	MEDIA_DIR=/data/media
	LOG_LEVEL=info
	BACKUP_ENABLED=true
	BACKUP_DIR=/data/backups

Writes are only accepted from tokens whose me resolves to a user added with
"scribectl user add". MICROPUB_ALLOW_ANONYMOUS=true lifts this for sites
that trust every token their endpoint issues.

When a config file is in use, edits to it are watched and the log level
is reloaded without a restart.

# Graceful Shutdown

SIGINT and SIGTERM cancel the root context. The supervisor stops the HTTP
server first-in-last-out with each service bounded by its shutdown
timeout, after which the store is closed.
*/
package main
