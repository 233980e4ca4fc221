// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

// Command scribectl is the operator CLI for a Scribe installation. It reads
// the same configuration as the server and works on its content store
// directly, so stop the server first when using the badger driver.
//
//	scribectl export --out ./site/content
//	scribectl token --me https://example.com/ --scope "create update media"
//	scribectl hash-token < token.txt
//	scribectl user add --id 1 --login alice --role editor
//	scribectl backup create --dir /data/backups
//	scribectl backup verify /data/backups/scribe-backup-20240301T120000Z-1a2b3c4d.tar.gz
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
