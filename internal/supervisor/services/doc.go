// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

// Package services adapts Scribe components to suture.Service.
//
// Every adapter accepts a small interface rather than the concrete type, so
// tests can supervise fakes:
//
//   - HTTPServerService: an *http.Server, shut down gracefully on cancel
//   - EventBusService: the events.Bus router (Start/Shutdown/IsRunning)
//   - WebSocketHubService: a hub with RunWithContext
//   - StoreGCService: periodic value log GC for the badger store
//   - BackupService: scheduled archives through backup.Manager
//   - WALService: the event WAL retry loop and compactor
package services
