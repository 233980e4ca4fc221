// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

package backup

import (
	"fmt"
	"os"
)

// Prune deletes all but the newest Keep archives and returns how many were
// removed. Archive names sort by creation time.
func (m *Manager) Prune() (int, error) {
	if m.cfg.Keep <= 0 {
		return 0, nil
	}
	paths, err := m.List()
	if err != nil {
		return 0, err
	}
	if len(paths) <= m.cfg.Keep {
		return 0, nil
	}

	removed := 0
	for _, p := range paths[m.cfg.Keep:] {
		if err := os.Remove(p); err != nil {
			return removed, fmt.Errorf("remove %s: %w", p, err)
		}
		removed++
	}
	return removed, nil
}
