package inventory

import (
	"database/sql"

	"github.com/HerbHall/assetscout/pkg/plugin"
)

// migrations returns the inventory module's schema migrations.
func migrations() []plugin.Migration {
	return []plugin.Migration{
		{
			Version:     1,
			Description: "create inventory tables (scans, printers)",
			Up: func(tx *sql.Tx) error {
				stmts := []string{
					`CREATE TABLE inventory_scans (
						id                TEXT PRIMARY KEY,
						trigger_source    TEXT NOT NULL DEFAULT 'manual',
						status            TEXT NOT NULL DEFAULT 'running',
						started_at        TEXT NOT NULL,
						ended_at          TEXT,
						subnets           TEXT NOT NULL DEFAULT '[]',
						hosts_probed      INTEGER NOT NULL DEFAULT 0,
						printers          INTEGER NOT NULL DEFAULT 0,
						truncated         INTEGER NOT NULL DEFAULT 0,
						deadline_exceeded INTEGER NOT NULL DEFAULT 0,
						error_msg         TEXT NOT NULL DEFAULT ''
					)`,
					`CREATE INDEX idx_inventory_scans_started ON inventory_scans(started_at)`,
					`CREATE TABLE inventory_printers (
						id               TEXT PRIMARY KEY,
						ip_address       TEXT NOT NULL,
						mac_address      TEXT,
						manufacturer     TEXT,
						model            TEXT,
						serial_number    TEXT,
						firmware_version TEXT,
						page_count       INTEGER,
						toner_black      INTEGER,
						toner_cyan       INTEGER,
						toner_magenta    INTEGER,
						toner_yellow     INTEGER,
						status           TEXT NOT NULL DEFAULT 'Online',
						first_seen       DATETIME NOT NULL,
						last_seen        DATETIME NOT NULL,
						last_scan_id     TEXT NOT NULL DEFAULT ''
					)`,
					`CREATE INDEX idx_inventory_printers_serial ON inventory_printers(serial_number)`,
					`CREATE INDEX idx_inventory_printers_mac ON inventory_printers(mac_address)`,
					`CREATE INDEX idx_inventory_printers_ip ON inventory_printers(ip_address)`,
				}
				for _, stmt := range stmts {
					if _, err := tx.Exec(stmt); err != nil {
						return err
					}
				}
				return nil
			},
		},
	}
}
