// Package topology flattens a validated schema into the joined, render-ready
// view of one system or one subnet: relation rows, grouping maps, and the
// entity lists the diagram layer consumes. Resolution is pure map lookups,
// linear in the number of deployment instances; the same shapes are produced
// whether the records came from an in-memory schema or from persisted rows.
package topology

import (
	"errors"
	"fmt"
	"sort"

	"github.com/depmap-project/depmap/internal/domain"
)

// ErrNotFound reports that the requested system or subnet scope does not
// exist in the schema.
var ErrNotFound = errors.New("not found")

// Resolved is the flattened topology for one software system: the full
// physical graph plus the system's deployments joined to their targets.
type Resolved struct {
	System             domain.SoftwareSystem      `json:"system"`
	Subnets            []domain.Subnet            `json:"subnets"`
	HardwareNodes      []domain.HardwareNode      `json:"hardware_nodes"`
	VirtualMachines    []domain.VirtualMachine    `json:"virtual_machines"`
	KubernetesClusters []domain.KubernetesCluster `json:"kubernetes_clusters"`
	Deployments        []Deployment               `json:"deployments"`
	Clusters           map[string][]ClusterNode   `json:"clusters"`
	Components         []Component                `json:"components"`
	Relations          []Relation                 `json:"relations"`
	HostingNodes       []NodeRecord               `json:"hosting_nodes"`
	Dependencies       []Dependency               `json:"dependencies,omitempty"`
	NetworkLinks       []NetworkLink              `json:"network_links,omitempty"`
}

// Deployment is one deployment instance flattened back to its wire fields.
type Deployment struct {
	ID              string `json:"id"`
	TargetKind      string `json:"target_kind"`
	TargetNodeID    string `json:"target_node_id,omitempty"`
	TargetClusterID string `json:"target_cluster_id,omitempty"`
	Namespace       string `json:"namespace,omitempty"`
	ComponentID     string `json:"component_id,omitempty"`
	ComponentName   string `json:"component_name,omitempty"`
}

// ClusterNode is one member row of a cluster's node membership.
type ClusterNode struct {
	NodeID   string `json:"node_id"`
	Hostname string `json:"hostname"`
	IP       string `json:"ip_address"`
}

// NodeRecord is a distinct physical or virtual node hosting a system.
type NodeRecord struct {
	NodeID   string `json:"node_id"`
	NodeType string `json:"node_type"`
	Hostname string `json:"hostname"`
	IP       string `json:"ip_address"`
}

// Component is a distinct deployable component of a system.
type Component struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Relation is one (deployment, resolved target, owning subnet) row.
type Relation struct {
	DeploymentID  string `json:"deployment_id"`
	ComponentID   string `json:"component_id,omitempty"`
	ComponentName string `json:"component_name,omitempty"`
	SystemID      string `json:"system_id"`
	TargetKind    string `json:"target_kind"`
	TargetID      string `json:"target_id"`
	TargetName    string `json:"target_name"`
	Namespace     string `json:"namespace,omitempty"`
	SubnetID      string `json:"subnet_id"`
	SubnetName    string `json:"subnet_name"`
}

// Dependency is an optional component-to-component edge. It is pass-through
// metadata: never validated by the schema checks, silently skipped by the
// renderer when an endpoint is unknown.
type Dependency struct {
	ID              string `json:"id"`
	FromComponentID string `json:"from_component_id"`
	ToComponentID   string `json:"to_component_id"`
	Label           string `json:"label,omitempty"`
}

// NetworkLink is an optional edge between two infrastructure endpoints,
// referenced by type (hardware, host, vm, cluster, namespace) and id.
type NetworkLink struct {
	ID         string `json:"id"`
	SourceType string `json:"source_type"`
	SourceID   string `json:"source_id"`
	TargetType string `json:"target_type"`
	TargetID   string `json:"target_id"`
	Label      string `json:"label,omitempty"`
}

// Resolve flattens schema into the render-ready view for systemID. The whole
// physical graph is included so diagrams always show topology; deployments,
// components, relations, and hosting nodes are scoped to the system. The
// schema is expected to be validated; unresolvable targets degrade to
// relation rows with empty subnet fields rather than failing.
func Resolve(s *domain.Schema, systemID string) (*Resolved, error) {
	system, ok := findSystem(s, systemID)
	if !ok {
		return nil, fmt.Errorf("system '%s': %w", systemID, ErrNotFound)
	}

	subnets := make(map[string]domain.Subnet, len(s.Subnets))
	for _, subnet := range s.Subnets {
		subnets[subnet.ID] = subnet
	}
	hardware := make(map[string]domain.HardwareNode, len(s.HardwareNodes))
	for _, node := range s.HardwareNodes {
		hardware[node.ID] = node
	}
	vms := make(map[string]domain.VirtualMachine, len(s.VirtualMachines))
	for _, vm := range s.VirtualMachines {
		vms[vm.ID] = vm
	}
	clusters := make(map[string]domain.KubernetesCluster, len(s.KubernetesClusters))
	for _, cluster := range s.KubernetesClusters {
		clusters[cluster.ID] = cluster
	}

	resolved := &Resolved{
		System:             system,
		Subnets:            sortedSubnets(s.Subnets),
		HardwareNodes:      sortedHardware(s.HardwareNodes),
		VirtualMachines:    sortedVMs(s.VirtualMachines),
		KubernetesClusters: sortedClusters(s.KubernetesClusters),
		Clusters:           clusterMembership(s.KubernetesClusters, hardware),
	}

	hostingSeen := make(map[string]struct{})
	componentSeen := make(map[string]struct{})

	for _, inst := range s.DeploymentInstances {
		if inst.SystemID != systemID {
			continue
		}

		kind, nodeID, clusterID, namespace := domain.TargetWire(inst.Target)
		resolved.Deployments = append(resolved.Deployments, Deployment{
			ID:              inst.ID,
			TargetKind:      string(kind),
			TargetNodeID:    nodeID,
			TargetClusterID: clusterID,
			Namespace:       namespace,
			ComponentID:     inst.ComponentID,
			ComponentName:   inst.ComponentName,
		})

		if inst.ComponentID != "" {
			if _, seen := componentSeen[inst.ComponentID]; !seen {
				componentSeen[inst.ComponentID] = struct{}{}
				name := inst.ComponentName
				if name == "" {
					name = inst.ComponentID
				}
				resolved.Components = append(resolved.Components, Component{ID: inst.ComponentID, Name: name})
			}
		}

		relation := Relation{
			DeploymentID:  inst.ID,
			ComponentID:   inst.ComponentID,
			ComponentName: inst.ComponentName,
			SystemID:      inst.SystemID,
			TargetKind:    string(kind),
			Namespace:     namespace,
		}

		switch t := inst.Target.(type) {
		case domain.HostTarget:
			if node, ok := hardware[t.NodeID]; ok {
				relation.TargetID = node.ID
				relation.TargetName = node.Hostname
				relation.SubnetID = node.SubnetID
				addHostingNode(resolved, hostingSeen, NodeRecord{NodeID: node.ID, NodeType: "hardware", Hostname: node.Hostname, IP: node.IP})
			}
		case domain.VMTarget:
			if vm, ok := vms[t.VMID]; ok {
				relation.TargetID = vm.ID
				relation.TargetName = vm.Hostname
				relation.SubnetID = vm.SubnetID
				addHostingNode(resolved, hostingSeen, NodeRecord{NodeID: vm.ID, NodeType: "vm", Hostname: vm.Hostname, IP: vm.IP})
			}
		case domain.ClusterTarget:
			relateCluster(&relation, clusters, t.ClusterID)
			addClusterHostingNodes(resolved, hostingSeen, clusters, hardware, t.ClusterID)
		case domain.NamespaceTarget:
			relateCluster(&relation, clusters, t.ClusterID)
			addClusterHostingNodes(resolved, hostingSeen, clusters, hardware, t.ClusterID)
		}

		if subnet, ok := subnets[relation.SubnetID]; ok {
			relation.SubnetName = subnet.Name
		}
		resolved.Relations = append(resolved.Relations, relation)
	}

	sort.Slice(resolved.Deployments, func(i, j int) bool { return resolved.Deployments[i].ID < resolved.Deployments[j].ID })
	sort.Slice(resolved.Relations, func(i, j int) bool { return resolved.Relations[i].DeploymentID < resolved.Relations[j].DeploymentID })
	sort.Slice(resolved.Components, func(i, j int) bool {
		if resolved.Components[i].Name != resolved.Components[j].Name {
			return resolved.Components[i].Name < resolved.Components[j].Name
		}
		return resolved.Components[i].ID < resolved.Components[j].ID
	})
	sort.Slice(resolved.HostingNodes, func(i, j int) bool {
		if resolved.HostingNodes[i].NodeType != resolved.HostingNodes[j].NodeType {
			return resolved.HostingNodes[i].NodeType < resolved.HostingNodes[j].NodeType
		}
		return resolved.HostingNodes[i].Hostname < resolved.HostingNodes[j].Hostname
	})

	return resolved, nil
}

func relateCluster(relation *Relation, clusters map[string]domain.KubernetesCluster, clusterID string) {
	if cluster, ok := clusters[clusterID]; ok {
		relation.TargetID = cluster.ID
		relation.TargetName = cluster.Name
		relation.SubnetID = cluster.SubnetID
	}
}

func addHostingNode(resolved *Resolved, seen map[string]struct{}, record NodeRecord) {
	key := record.NodeType + ":" + record.NodeID
	if _, dup := seen[key]; dup {
		return
	}
	seen[key] = struct{}{}
	resolved.HostingNodes = append(resolved.HostingNodes, record)
}

func addClusterHostingNodes(resolved *Resolved, seen map[string]struct{}, clusters map[string]domain.KubernetesCluster, hardware map[string]domain.HardwareNode, clusterID string) {
	cluster, ok := clusters[clusterID]
	if !ok {
		return
	}
	for _, nodeID := range cluster.NodeIDs {
		if node, ok := hardware[nodeID]; ok {
			addHostingNode(resolved, seen, NodeRecord{NodeID: node.ID, NodeType: "hardware", Hostname: node.Hostname, IP: node.IP})
		}
	}
}

func clusterMembership(clusters []domain.KubernetesCluster, hardware map[string]domain.HardwareNode) map[string][]ClusterNode {
	membership := make(map[string][]ClusterNode, len(clusters))
	for _, cluster := range clusters {
		nodes := make([]ClusterNode, 0, len(cluster.NodeIDs))
		for _, nodeID := range cluster.NodeIDs {
			if node, ok := hardware[nodeID]; ok {
				nodes = append(nodes, ClusterNode{NodeID: node.ID, Hostname: node.Hostname, IP: node.IP})
			}
		}
		sort.Slice(nodes, func(i, j int) bool { return nodes[i].NodeID < nodes[j].NodeID })
		membership[cluster.ID] = nodes
	}
	return membership
}

func findSystem(s *domain.Schema, systemID string) (domain.SoftwareSystem, bool) {
	for _, system := range s.SoftwareSystems {
		if system.ID == systemID {
			return system, true
		}
	}
	return domain.SoftwareSystem{}, false
}

func sortedSubnets(in []domain.Subnet) []domain.Subnet {
	out := make([]domain.Subnet, len(in))
	copy(out, in)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func sortedHardware(in []domain.HardwareNode) []domain.HardwareNode {
	out := make([]domain.HardwareNode, len(in))
	copy(out, in)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func sortedVMs(in []domain.VirtualMachine) []domain.VirtualMachine {
	out := make([]domain.VirtualMachine, len(in))
	copy(out, in)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func sortedClusters(in []domain.KubernetesCluster) []domain.KubernetesCluster {
	out := make([]domain.KubernetesCluster, len(in))
	copy(out, in)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
