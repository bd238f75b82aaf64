// Package ingest decodes topology manifests and partial infrastructure
// exports into validated schemas. Records with broken references are dropped
// with a diagnostic instead of failing the whole batch; structurally invalid
// records (bad literals, malformed targets) abort the import.
package ingest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/depmap-project/depmap/internal/domain"
	"github.com/depmap-project/depmap/internal/topology"
	"github.com/depmap-project/depmap/internal/validate"
)

// Manifest is the wire form of a full topology document.
type Manifest struct {
	Subnets             []SubnetRecord             `json:"subnets" yaml:"subnets"`
	HardwareNodes       []HardwareNodeRecord       `json:"hardware_nodes" yaml:"hardware_nodes"`
	VirtualMachines     []VirtualMachineRecord     `json:"virtual_machines" yaml:"virtual_machines"`
	StorageServers      []StorageServerRecord      `json:"storage_servers" yaml:"storage_servers"`
	NetworkSwitches     []NetworkSwitchRecord      `json:"network_switches" yaml:"network_switches"`
	KubernetesClusters  []KubernetesClusterRecord  `json:"kubernetes_clusters" yaml:"kubernetes_clusters"`
	SoftwareSystems     []SoftwareSystemRecord     `json:"software_systems" yaml:"software_systems"`
	DeploymentInstances []DeploymentInstanceRecord `json:"deployment_instances" yaml:"deployment_instances"`
	Dependencies        []DependencyRecord         `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	NetworkLinks        []NetworkLinkRecord        `json:"network_links,omitempty" yaml:"network_links,omitempty"`
}

type SubnetRecord struct {
	ID   string `json:"id" yaml:"id"`
	CIDR string `json:"cidr" yaml:"cidr"`
	Name string `json:"name" yaml:"name"`
}

type HardwareNodeRecord struct {
	ID       string `json:"id" yaml:"id"`
	Hostname string `json:"hostname" yaml:"hostname"`
	IP       string `json:"ip_address" yaml:"ip_address"`
	SubnetID string `json:"subnet_id" yaml:"subnet_id"`
	Kind     string `json:"kind,omitempty" yaml:"kind,omitempty"`
}

type VirtualMachineRecord struct {
	ID         string `json:"id" yaml:"id"`
	Hostname   string `json:"hostname" yaml:"hostname"`
	IP         string `json:"ip_address" yaml:"ip_address"`
	SubnetID   string `json:"subnet_id" yaml:"subnet_id"`
	HostNodeID string `json:"host_node_id" yaml:"host_node_id"`
}

type StorageServerRecord struct {
	ID       string `json:"id" yaml:"id"`
	Hostname string `json:"hostname" yaml:"hostname"`
	IP       string `json:"ip_address" yaml:"ip_address"`
	SubnetID string `json:"subnet_id" yaml:"subnet_id"`
}

type NetworkSwitchRecord struct {
	ID           string `json:"id" yaml:"id"`
	Hostname     string `json:"hostname" yaml:"hostname"`
	ManagementIP string `json:"management_ip" yaml:"management_ip"`
	SubnetID     string `json:"subnet_id" yaml:"subnet_id"`
}

type KubernetesClusterRecord struct {
	ID       string   `json:"id" yaml:"id"`
	Name     string   `json:"name" yaml:"name"`
	SubnetID string   `json:"subnet_id" yaml:"subnet_id"`
	NodeIDs  []string `json:"node_ids" yaml:"node_ids"`
}

type SoftwareSystemRecord struct {
	ID      string `json:"id" yaml:"id"`
	Name    string `json:"name" yaml:"name"`
	Version string `json:"version,omitempty" yaml:"version,omitempty"`
}

type DeploymentInstanceRecord struct {
	ID              string `json:"id" yaml:"id"`
	SystemID        string `json:"system_id" yaml:"system_id"`
	TargetKind      string `json:"target_kind" yaml:"target_kind"`
	TargetNodeID    string `json:"target_node_id,omitempty" yaml:"target_node_id,omitempty"`
	TargetClusterID string `json:"target_cluster_id,omitempty" yaml:"target_cluster_id,omitempty"`
	Namespace       string `json:"namespace,omitempty" yaml:"namespace,omitempty"`
	ComponentID     string `json:"component_id,omitempty" yaml:"component_id,omitempty"`
	ComponentName   string `json:"component_name,omitempty" yaml:"component_name,omitempty"`
}

type DependencyRecord struct {
	ID              string `json:"id" yaml:"id"`
	FromComponentID string `json:"from_component_id" yaml:"from_component_id"`
	ToComponentID   string `json:"to_component_id" yaml:"to_component_id"`
	Label           string `json:"label,omitempty" yaml:"label,omitempty"`
}

type NetworkLinkRecord struct {
	ID         string `json:"id" yaml:"id"`
	SourceType string `json:"source_type" yaml:"source_type"`
	SourceID   string `json:"source_id" yaml:"source_id"`
	TargetType string `json:"target_type" yaml:"target_type"`
	TargetID   string `json:"target_id" yaml:"target_id"`
	Label      string `json:"label,omitempty" yaml:"label,omitempty"`
}

// DecodeManifest parses a JSON or YAML manifest. The format is sniffed from
// the first non-space byte: '{' or '[' means JSON, anything else YAML.
func DecodeManifest(data []byte) (*Manifest, error) {
	trimmed := bytes.TrimLeftFunc(data, unicode.IsSpace)
	if len(trimmed) == 0 {
		return nil, errors.New("manifest is empty")
	}

	var m Manifest
	if trimmed[0] == '{' || trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &m); err != nil {
			return nil, fmt.Errorf("decode JSON manifest: %w", err)
		}
		return &m, nil
	}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode YAML manifest: %w", err)
	}
	return &m, nil
}

// Extras returns the pass-through metadata carried by the manifest in the
// resolver's shapes.
func (m *Manifest) Extras() ([]topology.Dependency, []topology.NetworkLink) {
	var dependencies []topology.Dependency
	for _, record := range m.Dependencies {
		dependencies = append(dependencies, topology.Dependency{
			ID:              record.ID,
			FromComponentID: record.FromComponentID,
			ToComponentID:   record.ToComponentID,
			Label:           record.Label,
		})
	}
	var links []topology.NetworkLink
	for _, record := range m.NetworkLinks {
		links = append(links, topology.NetworkLink{
			ID:         record.ID,
			SourceType: record.SourceType,
			SourceID:   record.SourceID,
			TargetType: record.TargetType,
			TargetID:   record.TargetID,
			Label:      record.Label,
		})
	}
	return dependencies, links
}

// Build constructs a validated schema from the manifest. Records whose
// references cannot be resolved within the manifest are skipped with a
// missing_reference diagnostic; field-level construction failures and the
// final import validation abort with an error. source names the manifest in
// diagnostic context (a file path, usually).
func (m *Manifest) Build(source string) (*domain.Schema, *Diagnostics, error) {
	if source == "" {
		source = "manifest"
	}
	diags := NewDiagnostics()
	schema := &domain.Schema{}

	subnetIDs := make(map[string]struct{}, len(m.Subnets))
	for _, record := range m.Subnets {
		subnet, err := domain.NewSubnet(record.ID, record.CIDR, record.Name)
		if err != nil {
			return nil, diags, err
		}
		schema.Subnets = append(schema.Subnets, subnet)
		subnetIDs[subnet.ID] = struct{}{}
	}

	hardwareIDs := make(map[string]struct{}, len(m.HardwareNodes))
	for _, record := range m.HardwareNodes {
		if _, ok := subnetIDs[record.SubnetID]; !ok {
			diags.Add("missing_reference", "Hardware node references unknown subnet.", LevelWarning, map[string]string{
				"source":     source,
				"entity":     "hardware_node",
				"entity_id":  record.ID,
				"field":      "subnet_id",
				"missing_id": record.SubnetID,
			})
			continue
		}
		kind, err := domain.ParseNodeKind(record.Kind)
		if err != nil {
			return nil, diags, err
		}
		node, err := domain.NewHardwareNode(record.ID, record.Hostname, record.IP, record.SubnetID, kind)
		if err != nil {
			return nil, diags, err
		}
		schema.HardwareNodes = append(schema.HardwareNodes, node)
		hardwareIDs[node.ID] = struct{}{}
	}

	vmIDs := make(map[string]struct{}, len(m.VirtualMachines))
	for _, record := range m.VirtualMachines {
		missingField, missingID := "", ""
		if _, ok := subnetIDs[record.SubnetID]; !ok {
			missingField, missingID = "subnet_id", record.SubnetID
		} else if _, ok := hardwareIDs[record.HostNodeID]; !ok {
			missingField, missingID = "host_node_id", record.HostNodeID
		}
		if missingField != "" {
			diags.Add("missing_reference", "Virtual machine references unknown object.", LevelWarning, map[string]string{
				"source":     source,
				"entity":     "virtual_machine",
				"entity_id":  record.ID,
				"field":      missingField,
				"missing_id": missingID,
			})
			continue
		}
		vm, err := domain.NewVirtualMachine(record.ID, record.Hostname, record.IP, record.SubnetID, record.HostNodeID)
		if err != nil {
			return nil, diags, err
		}
		schema.VirtualMachines = append(schema.VirtualMachines, vm)
		vmIDs[vm.ID] = struct{}{}
	}

	clusterIDs := make(map[string]struct{}, len(m.KubernetesClusters))
	for _, record := range m.KubernetesClusters {
		if _, ok := subnetIDs[record.SubnetID]; !ok {
			diags.Add("missing_reference", "Kubernetes cluster references unknown subnet.", LevelWarning, map[string]string{
				"source":     source,
				"entity":     "kubernetes_cluster",
				"entity_id":  record.ID,
				"field":      "subnet_id",
				"missing_id": record.SubnetID,
			})
			continue
		}
		nodeIDs := make([]string, 0, len(record.NodeIDs))
		for _, nodeID := range record.NodeIDs {
			if _, ok := hardwareIDs[nodeID]; !ok {
				diags.Add("missing_reference", "Kubernetes cluster node assignment references unknown hardware node.", LevelWarning, map[string]string{
					"source":     source,
					"entity":     "kubernetes_cluster",
					"entity_id":  record.ID,
					"field":      "node_ids",
					"missing_id": nodeID,
				})
				continue
			}
			nodeIDs = append(nodeIDs, nodeID)
		}
		cluster, err := domain.NewKubernetesCluster(record.ID, record.Name, record.SubnetID, nodeIDs)
		if err != nil {
			return nil, diags, err
		}
		schema.KubernetesClusters = append(schema.KubernetesClusters, cluster)
		clusterIDs[cluster.ID] = struct{}{}
	}

	for _, record := range m.StorageServers {
		if _, ok := subnetIDs[record.SubnetID]; !ok {
			diags.Add("missing_reference", "Storage server references unknown subnet.", LevelWarning, map[string]string{
				"source":     source,
				"entity":     "storage_server",
				"entity_id":  record.ID,
				"field":      "subnet_id",
				"missing_id": record.SubnetID,
			})
			continue
		}
		storage, err := domain.NewStorageServer(record.ID, record.Hostname, record.IP, record.SubnetID)
		if err != nil {
			return nil, diags, err
		}
		schema.StorageServers = append(schema.StorageServers, storage)
	}

	for _, record := range m.NetworkSwitches {
		if _, ok := subnetIDs[record.SubnetID]; !ok {
			diags.Add("missing_reference", "Network switch references unknown subnet.", LevelWarning, map[string]string{
				"source":     source,
				"entity":     "network_switch",
				"entity_id":  record.ID,
				"field":      "subnet_id",
				"missing_id": record.SubnetID,
			})
			continue
		}
		sw, err := domain.NewNetworkSwitch(record.ID, record.Hostname, record.ManagementIP, record.SubnetID)
		if err != nil {
			return nil, diags, err
		}
		schema.NetworkSwitches = append(schema.NetworkSwitches, sw)
	}

	systemIDs := make(map[string]struct{}, len(m.SoftwareSystems))
	for _, record := range m.SoftwareSystems {
		system, err := domain.NewSoftwareSystem(record.ID, record.Name, record.Version)
		if err != nil {
			return nil, diags, err
		}
		schema.SoftwareSystems = append(schema.SoftwareSystems, system)
		systemIDs[system.ID] = struct{}{}
	}

	for _, record := range m.DeploymentInstances {
		target, err := domain.DecodeTarget(record.ID, record.TargetKind, record.TargetNodeID, record.TargetClusterID, record.Namespace)
		if err != nil {
			return nil, diags, err
		}

		missingField, missingID := "", ""
		if _, ok := systemIDs[record.SystemID]; !ok {
			missingField, missingID = "system_id", record.SystemID
		} else {
			switch target.(type) {
			case domain.HostTarget:
				if _, ok := hardwareIDs[record.TargetNodeID]; !ok {
					missingField, missingID = "target_node_id", record.TargetNodeID
				}
			case domain.VMTarget:
				if _, ok := vmIDs[record.TargetNodeID]; !ok {
					missingField, missingID = "target_node_id", record.TargetNodeID
				}
			case domain.ClusterTarget, domain.NamespaceTarget:
				if _, ok := clusterIDs[record.TargetClusterID]; !ok {
					missingField, missingID = "target_cluster_id", record.TargetClusterID
				}
			}
		}
		if missingField != "" {
			diags.Add("missing_reference", "Deployment instance references unknown object.", LevelError, map[string]string{
				"source":     source,
				"entity":     "deployment_instance",
				"entity_id":  record.ID,
				"field":      missingField,
				"missing_id": missingID,
			})
			continue
		}

		instance, err := domain.NewDeploymentInstance(record.ID, record.SystemID, target, record.ComponentID, record.ComponentName)
		if err != nil {
			return nil, diags, err
		}
		schema.DeploymentInstances = append(schema.DeploymentInstances, instance)
	}

	if err := validate.ForImport(schema); err != nil {
		return nil, diags, err
	}
	return schema, diags, nil
}
