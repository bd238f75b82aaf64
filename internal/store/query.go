package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/depmap-project/depmap/internal/domain"
	"github.com/depmap-project/depmap/internal/topology"
)

// LoadSchema reads the whole stored graph back into a domain schema. Rows
// come out ordered by id; cluster membership keeps its declaration order.
func (s *Store) LoadSchema(ctx context.Context) (*domain.Schema, error) {
	schema := &domain.Schema{}

	rows, err := s.db.QueryContext(ctx, `SELECT id, cidr, name FROM subnets ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load subnets: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id, cidr, name string
		if err := rows.Scan(&id, &cidr, &name); err != nil {
			return nil, fmt.Errorf("scan subnet: %w", err)
		}
		subnet, err := domain.NewSubnet(id, cidr, name)
		if err != nil {
			return nil, err
		}
		schema.Subnets = append(schema.Subnets, subnet)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load subnets: %w", err)
	}

	if err := s.loadHardware(ctx, schema); err != nil {
		return nil, err
	}
	if err := s.loadGuests(ctx, schema); err != nil {
		return nil, err
	}
	if err := s.loadClusters(ctx, schema); err != nil {
		return nil, err
	}
	if err := s.loadDeployments(ctx, schema); err != nil {
		return nil, err
	}
	return schema, nil
}

func (s *Store) loadHardware(ctx context.Context, schema *domain.Schema) error {
	rows, err := s.db.QueryContext(ctx, `SELECT id, hostname, ip_address, subnet_id, kind FROM hardware_nodes ORDER BY id`)
	if err != nil {
		return fmt.Errorf("load hardware nodes: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id, hostname, ip, subnetID, kind string
		if err := rows.Scan(&id, &hostname, &ip, &subnetID, &kind); err != nil {
			return fmt.Errorf("scan hardware node: %w", err)
		}
		parsed, err := domain.ParseNodeKind(kind)
		if err != nil {
			return err
		}
		node, err := domain.NewHardwareNode(id, hostname, ip, subnetID, parsed)
		if err != nil {
			return err
		}
		schema.HardwareNodes = append(schema.HardwareNodes, node)
	}
	return rows.Err()
}

func (s *Store) loadGuests(ctx context.Context, schema *domain.Schema) error {
	rows, err := s.db.QueryContext(ctx, `SELECT id, hostname, ip_address, subnet_id, host_node_id FROM virtual_machines ORDER BY id`)
	if err != nil {
		return fmt.Errorf("load virtual machines: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id, hostname, ip, subnetID, hostNodeID string
		if err := rows.Scan(&id, &hostname, &ip, &subnetID, &hostNodeID); err != nil {
			return fmt.Errorf("scan virtual machine: %w", err)
		}
		vm, err := domain.NewVirtualMachine(id, hostname, ip, subnetID, hostNodeID)
		if err != nil {
			return err
		}
		schema.VirtualMachines = append(schema.VirtualMachines, vm)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("load virtual machines: %w", err)
	}

	storageRows, err := s.db.QueryContext(ctx, `SELECT id, hostname, ip_address, subnet_id FROM storage_servers ORDER BY id`)
	if err != nil {
		return fmt.Errorf("load storage servers: %w", err)
	}
	defer storageRows.Close()
	for storageRows.Next() {
		var id, hostname, ip, subnetID string
		if err := storageRows.Scan(&id, &hostname, &ip, &subnetID); err != nil {
			return fmt.Errorf("scan storage server: %w", err)
		}
		server, err := domain.NewStorageServer(id, hostname, ip, subnetID)
		if err != nil {
			return err
		}
		schema.StorageServers = append(schema.StorageServers, server)
	}
	if err := storageRows.Err(); err != nil {
		return fmt.Errorf("load storage servers: %w", err)
	}

	switchRows, err := s.db.QueryContext(ctx, `SELECT id, hostname, management_ip, subnet_id FROM network_switches ORDER BY id`)
	if err != nil {
		return fmt.Errorf("load network switches: %w", err)
	}
	defer switchRows.Close()
	for switchRows.Next() {
		var id, hostname, ip, subnetID string
		if err := switchRows.Scan(&id, &hostname, &ip, &subnetID); err != nil {
			return fmt.Errorf("scan network switch: %w", err)
		}
		sw, err := domain.NewNetworkSwitch(id, hostname, ip, subnetID)
		if err != nil {
			return err
		}
		schema.NetworkSwitches = append(schema.NetworkSwitches, sw)
	}
	return switchRows.Err()
}

func (s *Store) loadClusters(ctx context.Context, schema *domain.Schema) error {
	memberRows, err := s.db.QueryContext(ctx, `SELECT cluster_id, node_id FROM cluster_nodes ORDER BY cluster_id, position`)
	if err != nil {
		return fmt.Errorf("load cluster nodes: %w", err)
	}
	defer memberRows.Close()
	members := make(map[string][]string)
	for memberRows.Next() {
		var clusterID, nodeID string
		if err := memberRows.Scan(&clusterID, &nodeID); err != nil {
			return fmt.Errorf("scan cluster node: %w", err)
		}
		members[clusterID] = append(members[clusterID], nodeID)
	}
	if err := memberRows.Err(); err != nil {
		return fmt.Errorf("load cluster nodes: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id, name, subnet_id FROM kubernetes_clusters ORDER BY id`)
	if err != nil {
		return fmt.Errorf("load clusters: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id, name, subnetID string
		if err := rows.Scan(&id, &name, &subnetID); err != nil {
			return fmt.Errorf("scan cluster: %w", err)
		}
		cluster, err := domain.NewKubernetesCluster(id, name, subnetID, members[id])
		if err != nil {
			return err
		}
		schema.KubernetesClusters = append(schema.KubernetesClusters, cluster)
	}
	return rows.Err()
}

func (s *Store) loadDeployments(ctx context.Context, schema *domain.Schema) error {
	systemRows, err := s.db.QueryContext(ctx, `SELECT id, name, version FROM software_systems ORDER BY id`)
	if err != nil {
		return fmt.Errorf("load systems: %w", err)
	}
	defer systemRows.Close()
	for systemRows.Next() {
		var id, name, version string
		if err := systemRows.Scan(&id, &name, &version); err != nil {
			return fmt.Errorf("scan system: %w", err)
		}
		system, err := domain.NewSoftwareSystem(id, name, version)
		if err != nil {
			return err
		}
		schema.SoftwareSystems = append(schema.SoftwareSystems, system)
	}
	if err := systemRows.Err(); err != nil {
		return fmt.Errorf("load systems: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id, system_id, target_kind, target_node_id, target_cluster_id, namespace, component_id, component_name
		FROM deployment_instances ORDER BY id`)
	if err != nil {
		return fmt.Errorf("load deployments: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id, systemID, kind, nodeID, clusterID, namespace, componentID, componentName string
		if err := rows.Scan(&id, &systemID, &kind, &nodeID, &clusterID, &namespace, &componentID, &componentName); err != nil {
			return fmt.Errorf("scan deployment: %w", err)
		}
		target, err := domain.DecodeTarget(id, kind, nodeID, clusterID, namespace)
		if err != nil {
			return err
		}
		instance, err := domain.NewDeploymentInstance(id, systemID, target, componentID, componentName)
		if err != nil {
			return err
		}
		schema.DeploymentInstances = append(schema.DeploymentInstances, instance)
	}
	return rows.Err()
}

// SystemTopology resolves one system's deployment topology from the stored
// graph, with the persisted component dependencies and network links
// attached for rendering.
func (s *Store) SystemTopology(ctx context.Context, systemID string) (*topology.Resolved, error) {
	schema, err := s.LoadSchema(ctx)
	if err != nil {
		return nil, err
	}
	resolved, err := topology.Resolve(schema, systemID)
	if err != nil {
		return nil, err
	}

	resolved.Dependencies, err = s.systemDependencies(ctx, systemID)
	if err != nil {
		return nil, err
	}
	resolved.NetworkLinks, err = s.networkLinks(ctx)
	if err != nil {
		return nil, err
	}
	return resolved, nil
}

// SubnetDeployments resolves the deployments grouped under one subnet.
func (s *Store) SubnetDeployments(ctx context.Context, subnetID string) (*topology.SubnetView, error) {
	schema, err := s.LoadSchema(ctx)
	if err != nil {
		return nil, err
	}
	return topology.ResolveSubnet(schema, subnetID)
}

// Dependencies count for a system only when both endpoints belong to it;
// the renderer cannot draw an edge to a component outside the diagram.
func (s *Store) systemDependencies(ctx context.Context, systemID string) ([]topology.Dependency, error) {
	rows, err := s.db.QueryContext(ctx, `
		WITH system_component_ids AS (
			SELECT component_id FROM system_components WHERE system_id = ?
		)
		SELECT d.id, d.from_component_id, d.to_component_id, d.label
		FROM component_dependencies d
		JOIN system_component_ids f ON f.component_id = d.from_component_id
		JOIN system_component_ids t ON t.component_id = d.to_component_id
		ORDER BY d.id`, systemID)
	if err != nil {
		return nil, fmt.Errorf("load dependencies: %w", err)
	}
	defer rows.Close()

	var deps []topology.Dependency
	for rows.Next() {
		var dep topology.Dependency
		if err := rows.Scan(&dep.ID, &dep.FromComponentID, &dep.ToComponentID, &dep.Label); err != nil {
			return nil, fmt.Errorf("scan dependency: %w", err)
		}
		deps = append(deps, dep)
	}
	return deps, rows.Err()
}

func (s *Store) networkLinks(ctx context.Context) ([]topology.NetworkLink, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, source_type, source_id, target_type, target_id, label FROM network_links ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load network links: %w", err)
	}
	defer rows.Close()

	var links []topology.NetworkLink
	for rows.Next() {
		var link topology.NetworkLink
		if err := rows.Scan(&link.ID, &link.SourceType, &link.SourceID, &link.TargetType, &link.TargetID, &link.Label); err != nil {
			return nil, fmt.Errorf("scan network link: %w", err)
		}
		links = append(links, link)
	}
	return links, rows.Err()
}

// NodesHostingSystem reports the hardware nodes and VMs hosting a system,
// directly or through cluster membership.
func (s *Store) NodesHostingSystem(ctx context.Context, systemID string) ([]topology.NodeRecord, error) {
	var name string
	err := s.db.QueryRowContext(ctx, `SELECT name FROM software_systems WHERE id = ?`, systemID).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("system '%s': %w", systemID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("look up system: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		WITH hosting AS (
			SELECT h.id AS node_id, 'hardware' AS node_type, h.hostname, h.ip_address
			FROM deployment_instances d
			JOIN hardware_nodes h ON h.id = d.target_node_id
			WHERE d.system_id = ? AND d.target_kind = 'HOST'
			UNION
			SELECT v.id, 'vm', v.hostname, v.ip_address
			FROM deployment_instances d
			JOIN virtual_machines v ON v.id = d.target_node_id
			WHERE d.system_id = ? AND d.target_kind = 'VM'
			UNION
			SELECT h.id, 'hardware', h.hostname, h.ip_address
			FROM deployment_instances d
			JOIN cluster_nodes cn ON cn.cluster_id = d.target_cluster_id
			JOIN hardware_nodes h ON h.id = cn.node_id
			WHERE d.system_id = ? AND d.target_kind IN ('CLUSTER', 'K8S_NAMESPACE')
		)
		SELECT node_id, node_type, hostname, ip_address
		FROM hosting
		ORDER BY node_type, hostname, node_id`, systemID, systemID, systemID)
	if err != nil {
		return nil, fmt.Errorf("load hosting nodes: %w", err)
	}
	defer rows.Close()

	var records []topology.NodeRecord
	for rows.Next() {
		var record topology.NodeRecord
		if err := rows.Scan(&record.NodeID, &record.NodeType, &record.Hostname, &record.IP); err != nil {
			return nil, fmt.Errorf("scan hosting node: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// SystemsPerSubnet maps each deployment back to the subnet its target lives
// in and reports which systems land where. Subnets without deployments are
// omitted; deployments whose targets dangle resolve to no subnet and drop out.
func (s *Store) SystemsPerSubnet(ctx context.Context) ([]topology.SubnetSystems, error) {
	rows, err := s.db.QueryContext(ctx, `
		WITH deployment_subnets AS (
			SELECT DISTINCT d.system_id,
				COALESCE(h.subnet_id, v.subnet_id, c.subnet_id) AS subnet_id
			FROM deployment_instances d
			LEFT JOIN hardware_nodes h ON d.target_kind = 'HOST' AND h.id = d.target_node_id
			LEFT JOIN virtual_machines v ON d.target_kind = 'VM' AND v.id = d.target_node_id
			LEFT JOIN kubernetes_clusters c ON d.target_kind IN ('CLUSTER', 'K8S_NAMESPACE') AND c.id = d.target_cluster_id
		)
		SELECT sn.id, sn.name, sys.id, sys.name
		FROM deployment_subnets ds
		JOIN subnets sn ON sn.id = ds.subnet_id
		JOIN software_systems sys ON sys.id = ds.system_id
		ORDER BY sn.id, sys.id`)
	if err != nil {
		return nil, fmt.Errorf("load systems per subnet: %w", err)
	}
	defer rows.Close()

	var result []topology.SubnetSystems
	for rows.Next() {
		var subnetID, subnetName, systemID, systemName string
		if err := rows.Scan(&subnetID, &subnetName, &systemID, &systemName); err != nil {
			return nil, fmt.Errorf("scan systems per subnet: %w", err)
		}
		if len(result) == 0 || result[len(result)-1].SubnetID != subnetID {
			result = append(result, topology.SubnetSystems{SubnetID: subnetID, SubnetName: subnetName})
		}
		last := &result[len(result)-1]
		last.Systems = append(last.Systems, topology.SystemRef{ID: systemID, Name: systemName})
	}
	return result, rows.Err()
}

// SystemRow is one line of the systems listing.
type SystemRow struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Version     string `json:"version,omitempty"`
	Components  int    `json:"components"`
	Deployments int    `json:"deployments"`
}

// SubnetRow is one line of the subnets listing.
type SubnetRow struct {
	ID              string `json:"id"`
	CIDR            string `json:"cidr"`
	Name            string `json:"name"`
	HardwareNodes   int    `json:"hardware_nodes"`
	VirtualMachines int    `json:"virtual_machines"`
}

// NodeRow is one line of the nodes listing, covering every addressable
// entity type.
type NodeRow struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Hostname string `json:"hostname"`
	Address  string `json:"address"`
	SubnetID string `json:"subnet_id"`
}

// ListSystems returns all systems with their component and deployment counts.
func (s *Store) ListSystems(ctx context.Context) ([]SystemRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.name, s.version,
			(SELECT COUNT(*) FROM system_components sc WHERE sc.system_id = s.id),
			(SELECT COUNT(*) FROM deployment_instances d WHERE d.system_id = s.id)
		FROM software_systems s
		ORDER BY s.id`)
	if err != nil {
		return nil, fmt.Errorf("list systems: %w", err)
	}
	defer rows.Close()

	var systems []SystemRow
	for rows.Next() {
		var row SystemRow
		if err := rows.Scan(&row.ID, &row.Name, &row.Version, &row.Components, &row.Deployments); err != nil {
			return nil, fmt.Errorf("scan system row: %w", err)
		}
		systems = append(systems, row)
	}
	return systems, rows.Err()
}

// ListSubnets returns all subnets with their node counts.
func (s *Store) ListSubnets(ctx context.Context) ([]SubnetRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sn.id, sn.cidr, sn.name,
			(SELECT COUNT(*) FROM hardware_nodes h WHERE h.subnet_id = sn.id),
			(SELECT COUNT(*) FROM virtual_machines v WHERE v.subnet_id = sn.id)
		FROM subnets sn
		ORDER BY sn.id`)
	if err != nil {
		return nil, fmt.Errorf("list subnets: %w", err)
	}
	defer rows.Close()

	var subnets []SubnetRow
	for rows.Next() {
		var row SubnetRow
		if err := rows.Scan(&row.ID, &row.CIDR, &row.Name, &row.HardwareNodes, &row.VirtualMachines); err != nil {
			return nil, fmt.Errorf("scan subnet row: %w", err)
		}
		subnets = append(subnets, row)
	}
	return subnets, rows.Err()
}

// ListNodes returns every addressable entity: hardware, VMs, storage, and
// switches, ordered by type then id.
func (s *Store) ListNodes(ctx context.Context) ([]NodeRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, 'hardware' AS node_type, hostname, ip_address, subnet_id FROM hardware_nodes
		UNION ALL
		SELECT id, 'vm', hostname, ip_address, subnet_id FROM virtual_machines
		UNION ALL
		SELECT id, 'storage', hostname, ip_address, subnet_id FROM storage_servers
		UNION ALL
		SELECT id, 'switch', hostname, management_ip, subnet_id FROM network_switches
		ORDER BY node_type, id`)
	if err != nil {
		return nil, fmt.Errorf("list nodes: %w", err)
	}
	defer rows.Close()

	var nodes []NodeRow
	for rows.Next() {
		var row NodeRow
		if err := rows.Scan(&row.ID, &row.Type, &row.Hostname, &row.Address, &row.SubnetID); err != nil {
			return nil, fmt.Errorf("scan node row: %w", err)
		}
		nodes = append(nodes, row)
	}
	return nodes, rows.Err()
}
