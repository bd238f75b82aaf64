package store

import (
	"database/sql"
	"fmt"
	"sort"
)

// Migration is one versioned schema change. Up runs inside a transaction
// together with the bookkeeping insert, so a failed migration leaves no
// trace in schema_migrations.
type Migration struct {
	Version int64
	Name    string
	Up      func(*sql.Tx) error
}

func migrations() []Migration {
	return []Migration{
		{Version: 1, Name: "initial_topology_tables", Up: initialTopologyTables},
		{Version: 2, Name: "query_indexes", Up: queryIndexes},
	}
}

func runMigrations(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		name       TEXT NOT NULL,
		applied_at TEXT NOT NULL DEFAULT (datetime('now'))
	)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	var current int64
	if err := db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	pending := migrations()
	sort.Slice(pending, func(i, j int) bool { return pending[i].Version < pending[j].Version })

	for _, migration := range pending {
		if migration.Version <= current {
			continue
		}
		if err := applyMigration(db, migration); err != nil {
			return fmt.Errorf("apply migration %d (%s): %w", migration.Version, migration.Name, err)
		}
	}
	return nil
}

func applyMigration(db *sql.DB, migration Migration) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := migration.Up(tx); err != nil {
		return err
	}
	if _, err := tx.Exec(`INSERT INTO schema_migrations (version, name) VALUES (?, ?)`, migration.Version, migration.Name); err != nil {
		return err
	}
	return tx.Commit()
}

func initialTopologyTables(tx *sql.Tx) error {
	_, err := tx.Exec(`
	CREATE TABLE subnets (
		id   TEXT PRIMARY KEY,
		cidr TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL
	);

	CREATE TABLE hardware_nodes (
		id         TEXT PRIMARY KEY,
		hostname   TEXT NOT NULL,
		ip_address TEXT NOT NULL,
		subnet_id  TEXT NOT NULL REFERENCES subnets(id),
		kind       TEXT NOT NULL DEFAULT 'physical',
		UNIQUE (subnet_id, ip_address)
	);
	CREATE UNIQUE INDEX idx_hardware_nodes_hostname ON hardware_nodes(subnet_id, lower(hostname));

	CREATE TABLE virtual_machines (
		id           TEXT PRIMARY KEY,
		hostname     TEXT NOT NULL,
		ip_address   TEXT NOT NULL,
		subnet_id    TEXT NOT NULL REFERENCES subnets(id),
		host_node_id TEXT NOT NULL REFERENCES hardware_nodes(id),
		UNIQUE (subnet_id, ip_address)
	);
	CREATE UNIQUE INDEX idx_virtual_machines_hostname ON virtual_machines(subnet_id, lower(hostname));

	CREATE TABLE storage_servers (
		id         TEXT PRIMARY KEY,
		hostname   TEXT NOT NULL,
		ip_address TEXT NOT NULL,
		subnet_id  TEXT NOT NULL REFERENCES subnets(id),
		UNIQUE (subnet_id, ip_address)
	);
	CREATE UNIQUE INDEX idx_storage_servers_hostname ON storage_servers(subnet_id, lower(hostname));

	CREATE TABLE network_switches (
		id            TEXT PRIMARY KEY,
		hostname      TEXT NOT NULL,
		management_ip TEXT NOT NULL,
		subnet_id     TEXT NOT NULL REFERENCES subnets(id),
		UNIQUE (subnet_id, management_ip)
	);
	CREATE UNIQUE INDEX idx_network_switches_hostname ON network_switches(subnet_id, lower(hostname));

	CREATE TABLE kubernetes_clusters (
		id        TEXT PRIMARY KEY,
		name      TEXT NOT NULL,
		subnet_id TEXT NOT NULL REFERENCES subnets(id)
	);

	CREATE TABLE cluster_nodes (
		cluster_id TEXT NOT NULL REFERENCES kubernetes_clusters(id) ON DELETE CASCADE,
		node_id    TEXT NOT NULL REFERENCES hardware_nodes(id),
		position   INTEGER NOT NULL,
		PRIMARY KEY (cluster_id, node_id)
	);

	CREATE TABLE software_systems (
		id      TEXT PRIMARY KEY,
		name    TEXT NOT NULL,
		version TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE deployment_instances (
		id                TEXT PRIMARY KEY,
		system_id         TEXT NOT NULL REFERENCES software_systems(id),
		target_kind       TEXT NOT NULL,
		target_node_id    TEXT NOT NULL DEFAULT '',
		target_cluster_id TEXT NOT NULL DEFAULT '',
		namespace         TEXT NOT NULL DEFAULT '',
		component_id      TEXT NOT NULL DEFAULT '',
		component_name    TEXT NOT NULL DEFAULT '',
		CHECK (
			(target_kind = 'HOST' AND target_node_id <> '' AND target_cluster_id = '' AND namespace = '')
			OR (target_kind = 'VM' AND target_node_id <> '' AND target_cluster_id = '' AND namespace = '')
			OR (target_kind = 'CLUSTER' AND target_cluster_id <> '' AND target_node_id = '' AND namespace = '')
			OR (target_kind = 'K8S_NAMESPACE' AND target_cluster_id <> '' AND namespace <> '' AND target_node_id = '')
		)
	);

	CREATE TABLE components (
		id   TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE system_components (
		system_id    TEXT NOT NULL REFERENCES software_systems(id) ON DELETE CASCADE,
		component_id TEXT NOT NULL REFERENCES components(id) ON DELETE CASCADE,
		PRIMARY KEY (system_id, component_id)
	);

	CREATE TABLE component_dependencies (
		id                TEXT PRIMARY KEY,
		from_component_id TEXT NOT NULL,
		to_component_id   TEXT NOT NULL,
		label             TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE network_links (
		id          TEXT PRIMARY KEY,
		source_type TEXT NOT NULL,
		source_id   TEXT NOT NULL,
		target_type TEXT NOT NULL,
		target_id   TEXT NOT NULL,
		label       TEXT NOT NULL DEFAULT ''
	);
	`)
	return err
}

func queryIndexes(tx *sql.Tx) error {
	_, err := tx.Exec(`
	CREATE INDEX idx_deployment_instances_system ON deployment_instances(system_id);
	CREATE INDEX idx_deployment_instances_node ON deployment_instances(target_node_id);
	CREATE INDEX idx_deployment_instances_cluster ON deployment_instances(target_cluster_id);
	CREATE INDEX idx_virtual_machines_host ON virtual_machines(host_node_id);
	CREATE INDEX idx_cluster_nodes_node ON cluster_nodes(node_id);
	`)
	return err
}
