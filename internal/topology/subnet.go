package topology

import (
	"fmt"
	"sort"

	"github.com/depmap-project/depmap/internal/domain"
)

// SubnetView is the deployment picture of one subnet: every system with at
// least one deployment whose resolved target lives in the subnet, grouped
// system -> component -> deployments.
type SubnetView struct {
	Subnet    domain.Subnet       `json:"subnet"`
	Systems   []SystemDeployments `json:"systems"`
	Relations []Relation          `json:"relations"`
}

// SystemDeployments groups one system's in-subnet deployments by component.
type SystemDeployments struct {
	ID         string                 `json:"id"`
	Name       string                 `json:"name"`
	Version    string                 `json:"version,omitempty"`
	Components []ComponentDeployments `json:"components"`
}

// ComponentDeployments lists the deployments of one component. Instances
// without a component id are grouped under their deployment id.
type ComponentDeployments struct {
	ID          string       `json:"id"`
	Name        string       `json:"name,omitempty"`
	Deployments []Deployment `json:"deployments"`
}

// DeploymentCount is the total number of deployments across all systems.
func (v *SubnetView) DeploymentCount() int {
	total := 0
	for _, system := range v.Systems {
		for _, component := range system.Components {
			total += len(component.Deployments)
		}
	}
	return total
}

// ResolveSubnet builds the deployment view of subnetID. A deployment belongs
// to the subnet when its resolved target (node, VM, or cluster) is assigned
// there. The schema is expected to be validated.
func ResolveSubnet(s *domain.Schema, subnetID string) (*SubnetView, error) {
	subnet, ok := findSubnet(s, subnetID)
	if !ok {
		return nil, fmt.Errorf("subnet '%s': %w", subnetID, ErrNotFound)
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
	systems := make(map[string]domain.SoftwareSystem, len(s.SoftwareSystems))
	for _, system := range s.SoftwareSystems {
		systems[system.ID] = system
	}

	view := &SubnetView{Subnet: subnet}
	grouped := make(map[string]map[string][]Deployment)

	for _, inst := range s.DeploymentInstances {
		targetID, targetName := "", ""
		switch t := inst.Target.(type) {
		case domain.HostTarget:
			node, ok := hardware[t.NodeID]
			if !ok || node.SubnetID != subnetID {
				continue
			}
			targetID, targetName = node.ID, node.Hostname
		case domain.VMTarget:
			vm, ok := vms[t.VMID]
			if !ok || vm.SubnetID != subnetID {
				continue
			}
			targetID, targetName = vm.ID, vm.Hostname
		case domain.ClusterTarget:
			cluster, ok := clusters[t.ClusterID]
			if !ok || cluster.SubnetID != subnetID {
				continue
			}
			targetID, targetName = cluster.ID, cluster.Name
		case domain.NamespaceTarget:
			cluster, ok := clusters[t.ClusterID]
			if !ok || cluster.SubnetID != subnetID {
				continue
			}
			targetID, targetName = cluster.ID, cluster.Name
		default:
			continue
		}

		kind, nodeID, clusterID, namespace := domain.TargetWire(inst.Target)
		deployment := Deployment{
			ID:              inst.ID,
			TargetKind:      string(kind),
			TargetNodeID:    nodeID,
			TargetClusterID: clusterID,
			Namespace:       namespace,
			ComponentID:     inst.ComponentID,
			ComponentName:   inst.ComponentName,
		}

		componentKey := inst.ComponentID
		if componentKey == "" {
			componentKey = inst.ID
		}
		if grouped[inst.SystemID] == nil {
			grouped[inst.SystemID] = make(map[string][]Deployment)
		}
		grouped[inst.SystemID][componentKey] = append(grouped[inst.SystemID][componentKey], deployment)

		view.Relations = append(view.Relations, Relation{
			DeploymentID:  inst.ID,
			ComponentID:   inst.ComponentID,
			ComponentName: inst.ComponentName,
			SystemID:      inst.SystemID,
			TargetKind:    string(kind),
			TargetID:      targetID,
			TargetName:    targetName,
			Namespace:     namespace,
			SubnetID:      subnet.ID,
			SubnetName:    subnet.Name,
		})
	}

	for systemID, components := range grouped {
		entry := SystemDeployments{ID: systemID, Name: systemID}
		if system, ok := systems[systemID]; ok {
			entry.Name = system.Name
			entry.Version = system.Version
		}
		for componentID, deployments := range components {
			sort.Slice(deployments, func(i, j int) bool { return deployments[i].ID < deployments[j].ID })
			entry.Components = append(entry.Components, ComponentDeployments{
				ID:          componentID,
				Name:        componentName(deployments),
				Deployments: deployments,
			})
		}
		sort.Slice(entry.Components, func(i, j int) bool { return entry.Components[i].ID < entry.Components[j].ID })
		view.Systems = append(view.Systems, entry)
	}

	sort.Slice(view.Systems, func(i, j int) bool { return view.Systems[i].ID < view.Systems[j].ID })
	sort.Slice(view.Relations, func(i, j int) bool { return view.Relations[i].DeploymentID < view.Relations[j].DeploymentID })

	return view, nil
}

func componentName(deployments []Deployment) string {
	for _, d := range deployments {
		if d.ComponentName != "" {
			return d.ComponentName
		}
	}
	return ""
}

// SubnetSystems is one row of the systems-per-subnet summary.
type SubnetSystems struct {
	SubnetID   string      `json:"subnet_id"`
	SubnetName string      `json:"subnet_name"`
	Systems    []SystemRef `json:"systems"`
}

// SystemRef identifies a deployed system by id and display name.
type SystemRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SystemsBySubnet lists, per subnet, the distinct systems with at least one
// deployment resolved into it. Subnets without deployments are omitted.
func SystemsBySubnet(s *domain.Schema) []SubnetSystems {
	perSubnet := make(map[string]map[string]struct{})
	for _, subnet := range s.Subnets {
		view, err := ResolveSubnet(s, subnet.ID)
		if err != nil {
			continue
		}
		for _, system := range view.Systems {
			if perSubnet[subnet.ID] == nil {
				perSubnet[subnet.ID] = make(map[string]struct{})
			}
			perSubnet[subnet.ID][system.ID] = struct{}{}
		}
	}

	systems := make(map[string]domain.SoftwareSystem, len(s.SoftwareSystems))
	for _, system := range s.SoftwareSystems {
		systems[system.ID] = system
	}

	var rows []SubnetSystems
	for _, subnet := range s.Subnets {
		ids, ok := perSubnet[subnet.ID]
		if !ok {
			continue
		}
		row := SubnetSystems{SubnetID: subnet.ID, SubnetName: subnet.Name}
		for id := range ids {
			ref := SystemRef{ID: id, Name: id}
			if system, ok := systems[id]; ok {
				ref.Name = system.Name
			}
			row.Systems = append(row.Systems, ref)
		}
		sort.Slice(row.Systems, func(i, j int) bool { return row.Systems[i].ID < row.Systems[j].ID })
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].SubnetID < rows[j].SubnetID })
	return rows
}

func findSubnet(s *domain.Schema, subnetID string) (domain.Subnet, bool) {
	for _, subnet := range s.Subnets {
		if subnet.ID == subnetID {
			return subnet, true
		}
	}
	return domain.Subnet{}, false
}
