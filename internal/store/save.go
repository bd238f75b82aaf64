package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/depmap-project/depmap/internal/domain"
	"github.com/depmap-project/depmap/internal/topology"
	"github.com/depmap-project/depmap/internal/validate"
)

// Extras carries the optional diagram inputs persisted alongside the schema:
// component dependencies and physical network links.
type Extras struct {
	Dependencies []topology.Dependency
	NetworkLinks []topology.NetworkLink
}

// SaveSchema validates the schema, then replaces the stored graph in a
// single transaction. A reader never observes a partially updated graph.
func (s *Store) SaveSchema(ctx context.Context, schema *domain.Schema, extras Extras) error {
	if err := validate.ForImport(schema); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := clearGraph(ctx, tx); err != nil {
		return err
	}
	if err := insertGraph(ctx, tx, schema, extras); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Children first, so foreign keys stay satisfied mid-delete.
var graphTables = []string{
	"component_dependencies",
	"network_links",
	"system_components",
	"components",
	"deployment_instances",
	"cluster_nodes",
	"kubernetes_clusters",
	"virtual_machines",
	"storage_servers",
	"network_switches",
	"hardware_nodes",
	"software_systems",
	"subnets",
}

func clearGraph(ctx context.Context, tx *sql.Tx) error {
	for _, table := range graphTables {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}

func insertGraph(ctx context.Context, tx *sql.Tx, schema *domain.Schema, extras Extras) error {
	for _, subnet := range schema.Subnets {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO subnets (id, cidr, name) VALUES (?, ?, ?)`,
			subnet.ID, subnet.CIDR, subnet.Name); err != nil {
			return fmt.Errorf("insert subnet %s: %w", subnet.ID, err)
		}
	}

	for _, node := range schema.HardwareNodes {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO hardware_nodes (id, hostname, ip_address, subnet_id, kind) VALUES (?, ?, ?, ?, ?)`,
			node.ID, node.Hostname, node.IP, node.SubnetID, string(node.Kind)); err != nil {
			return fmt.Errorf("insert hardware node %s: %w", node.ID, err)
		}
	}

	for _, vm := range schema.VirtualMachines {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO virtual_machines (id, hostname, ip_address, subnet_id, host_node_id) VALUES (?, ?, ?, ?, ?)`,
			vm.ID, vm.Hostname, vm.IP, vm.SubnetID, vm.HostNodeID); err != nil {
			return fmt.Errorf("insert virtual machine %s: %w", vm.ID, err)
		}
	}

	for _, server := range schema.StorageServers {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO storage_servers (id, hostname, ip_address, subnet_id) VALUES (?, ?, ?, ?)`,
			server.ID, server.Hostname, server.IP, server.SubnetID); err != nil {
			return fmt.Errorf("insert storage server %s: %w", server.ID, err)
		}
	}

	for _, sw := range schema.NetworkSwitches {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO network_switches (id, hostname, management_ip, subnet_id) VALUES (?, ?, ?, ?)`,
			sw.ID, sw.Hostname, sw.ManagementIP, sw.SubnetID); err != nil {
			return fmt.Errorf("insert network switch %s: %w", sw.ID, err)
		}
	}

	for _, cluster := range schema.KubernetesClusters {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO kubernetes_clusters (id, name, subnet_id) VALUES (?, ?, ?)`,
			cluster.ID, cluster.Name, cluster.SubnetID); err != nil {
			return fmt.Errorf("insert cluster %s: %w", cluster.ID, err)
		}
		for position, nodeID := range cluster.NodeIDs {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO cluster_nodes (cluster_id, node_id, position) VALUES (?, ?, ?)`,
				cluster.ID, nodeID, position); err != nil {
				return fmt.Errorf("insert cluster node %s/%s: %w", cluster.ID, nodeID, err)
			}
		}
	}

	for _, system := range schema.SoftwareSystems {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO software_systems (id, name, version) VALUES (?, ?, ?)`,
			system.ID, system.Name, system.Version); err != nil {
			return fmt.Errorf("insert system %s: %w", system.ID, err)
		}
	}

	for _, instance := range schema.DeploymentInstances {
		kind, nodeID, clusterID, namespace := domain.TargetWire(instance.Target)
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO deployment_instances (id, system_id, target_kind, target_node_id, target_cluster_id, namespace, component_id, component_name)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			instance.ID, instance.SystemID, string(kind), nodeID, clusterID, namespace,
			instance.ComponentID, instance.ComponentName); err != nil {
			return fmt.Errorf("insert deployment %s: %w", instance.ID, err)
		}

		if instance.ComponentID == "" {
			continue
		}
		// First declaration wins, name falling back to the component id.
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO components (id, name) VALUES (?, COALESCE(NULLIF(?, ''), ?))`,
			instance.ComponentID, instance.ComponentName, instance.ComponentID); err != nil {
			return fmt.Errorf("insert component %s: %w", instance.ComponentID, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO system_components (system_id, component_id) VALUES (?, ?)`,
			instance.SystemID, instance.ComponentID); err != nil {
			return fmt.Errorf("insert system component %s/%s: %w", instance.SystemID, instance.ComponentID, err)
		}
	}

	for _, dep := range extras.Dependencies {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO component_dependencies (id, from_component_id, to_component_id, label) VALUES (?, ?, ?, ?)`,
			dep.ID, dep.FromComponentID, dep.ToComponentID, dep.Label); err != nil {
			return fmt.Errorf("insert dependency %s: %w", dep.ID, err)
		}
	}

	for _, link := range extras.NetworkLinks {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO network_links (id, source_type, source_id, target_type, target_id, label) VALUES (?, ?, ?, ?, ?, ?)`,
			link.ID, link.SourceType, link.SourceID, link.TargetType, link.TargetID, link.Label); err != nil {
			return fmt.Errorf("insert network link %s: %w", link.ID, err)
		}
	}

	return nil
}
