package domain

import (
	"fmt"
	"net/netip"
	"strings"
)

// NodeKind labels the physical role of a hardware node. It is descriptive
// metadata only; no validation or rendering logic branches on it.
type NodeKind string

const (
	NodeKindPhysical NodeKind = "physical"
	NodeKindK8sNode  NodeKind = "k8s-node"
	NodeKindStorage  NodeKind = "storage"
	NodeKindSwitch   NodeKind = "switch"
	NodeKindVMHost   NodeKind = "vm-host"
)

// String returns the string representation of the node kind
func (k NodeKind) String() string {
	return string(k)
}

// IsValid checks if the node kind is one of the known literals
func (k NodeKind) IsValid() bool {
	switch k {
	case NodeKindPhysical, NodeKindK8sNode, NodeKindStorage, NodeKindSwitch, NodeKindVMHost:
		return true
	default:
		return false
	}
}

// ParseNodeKind parses a string to NodeKind. An empty string maps to
// NodeKindPhysical, matching the default for bare hardware records.
func ParseNodeKind(s string) (NodeKind, error) {
	if s == "" {
		return NodeKindPhysical, nil
	}
	kind := NodeKind(strings.ToLower(s))
	if !kind.IsValid() {
		return "", fmt.Errorf("invalid node kind: %s (must be physical, k8s-node, storage, switch, or vm-host)", s)
	}
	return kind, nil
}

// Subnet is a network address block that owns addressable entities.
type Subnet struct {
	ID   string `json:"id"`
	CIDR string `json:"cidr"`
	Name string `json:"name"`
}

// HardwareNode is a physical machine inside a subnet.
type HardwareNode struct {
	ID       string   `json:"id"`
	Hostname string   `json:"hostname"`
	IP       string   `json:"ip_address"`
	SubnetID string   `json:"subnet_id"`
	Kind     NodeKind `json:"kind"`
}

// VirtualMachine is a guest addressed inside a subnet and pinned to the
// hardware node that hosts it.
type VirtualMachine struct {
	ID         string `json:"id"`
	Hostname   string `json:"hostname"`
	IP         string `json:"ip_address"`
	SubnetID   string `json:"subnet_id"`
	HostNodeID string `json:"host_node_id"`
}

// StorageServer is an addressable storage appliance inside a subnet.
type StorageServer struct {
	ID       string `json:"id"`
	Hostname string `json:"hostname"`
	IP       string `json:"ip_address"`
	SubnetID string `json:"subnet_id"`
}

// NetworkSwitch is an addressable switch; its address is the management IP.
type NetworkSwitch struct {
	ID           string `json:"id"`
	Hostname     string `json:"hostname"`
	ManagementIP string `json:"management_ip"`
	SubnetID     string `json:"subnet_id"`
}

// KubernetesCluster groups hardware nodes into a scheduling domain. NodeIDs
// preserves declaration order.
type KubernetesCluster struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	SubnetID string   `json:"subnet_id"`
	NodeIDs  []string `json:"node_ids"`
}

// SoftwareSystem is a deployable system. Version is optional; empty means
// unversioned.
type SoftwareSystem struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}

// DeploymentInstance ties a software system to one concrete infrastructure
// target. ComponentID and ComponentName are optional display grouping.
type DeploymentInstance struct {
	ID            string
	SystemID      string
	Target        Target
	ComponentID   string
	ComponentName string
}

// NewSubnet builds a Subnet, rejecting blank fields and unparseable CIDRs.
func NewSubnet(id, cidr, name string) (Subnet, error) {
	if err := requireFields("Subnet", field{"id", id}, field{"cidr", cidr}, field{"name", name}); err != nil {
		return Subnet{}, err
	}
	if err := validateCIDR(cidr); err != nil {
		return Subnet{}, err
	}
	return Subnet{ID: id, CIDR: cidr, Name: name}, nil
}

// NewHardwareNode builds a HardwareNode. An empty kind defaults to physical.
func NewHardwareNode(id, hostname, ip, subnetID string, kind NodeKind) (HardwareNode, error) {
	if err := requireFields("HardwareNode", field{"id", id}, field{"hostname", hostname}, field{"ip_address", ip}, field{"subnet_id", subnetID}); err != nil {
		return HardwareNode{}, err
	}
	if err := validateIP(ip); err != nil {
		return HardwareNode{}, err
	}
	if kind == "" {
		kind = NodeKindPhysical
	}
	if !kind.IsValid() {
		return HardwareNode{}, fmt.Errorf("invalid node kind: %s (must be physical, k8s-node, storage, switch, or vm-host)", kind)
	}
	return HardwareNode{ID: id, Hostname: hostname, IP: ip, SubnetID: subnetID, Kind: kind}, nil
}

// NewVirtualMachine builds a VirtualMachine.
func NewVirtualMachine(id, hostname, ip, subnetID, hostNodeID string) (VirtualMachine, error) {
	if err := requireFields("VirtualMachine", field{"id", id}, field{"hostname", hostname}, field{"ip_address", ip}, field{"subnet_id", subnetID}, field{"host_node_id", hostNodeID}); err != nil {
		return VirtualMachine{}, err
	}
	if err := validateIP(ip); err != nil {
		return VirtualMachine{}, err
	}
	return VirtualMachine{ID: id, Hostname: hostname, IP: ip, SubnetID: subnetID, HostNodeID: hostNodeID}, nil
}

// NewStorageServer builds a StorageServer.
func NewStorageServer(id, hostname, ip, subnetID string) (StorageServer, error) {
	if err := requireFields("StorageServer", field{"id", id}, field{"hostname", hostname}, field{"ip_address", ip}, field{"subnet_id", subnetID}); err != nil {
		return StorageServer{}, err
	}
	if err := validateIP(ip); err != nil {
		return StorageServer{}, err
	}
	return StorageServer{ID: id, Hostname: hostname, IP: ip, SubnetID: subnetID}, nil
}

// NewNetworkSwitch builds a NetworkSwitch addressed by its management IP.
func NewNetworkSwitch(id, hostname, managementIP, subnetID string) (NetworkSwitch, error) {
	if err := requireFields("NetworkSwitch", field{"id", id}, field{"hostname", hostname}, field{"management_ip", managementIP}, field{"subnet_id", subnetID}); err != nil {
		return NetworkSwitch{}, err
	}
	if err := validateIP(managementIP); err != nil {
		return NetworkSwitch{}, err
	}
	return NetworkSwitch{ID: id, Hostname: hostname, ManagementIP: managementIP, SubnetID: subnetID}, nil
}

// NewKubernetesCluster builds a KubernetesCluster. The member list may be
// empty; member existence is a whole-graph concern.
func NewKubernetesCluster(id, name, subnetID string, nodeIDs []string) (KubernetesCluster, error) {
	if err := requireFields("KubernetesCluster", field{"id", id}, field{"name", name}, field{"subnet_id", subnetID}); err != nil {
		return KubernetesCluster{}, err
	}
	members := make([]string, len(nodeIDs))
	copy(members, nodeIDs)
	return KubernetesCluster{ID: id, Name: name, SubnetID: subnetID, NodeIDs: members}, nil
}

// NewSoftwareSystem builds a SoftwareSystem. Version may be empty.
func NewSoftwareSystem(id, name, version string) (SoftwareSystem, error) {
	if err := requireFields("SoftwareSystem", field{"id", id}, field{"name", name}); err != nil {
		return SoftwareSystem{}, err
	}
	return SoftwareSystem{ID: id, Name: name, Version: version}, nil
}

// NewDeploymentInstance builds a DeploymentInstance around an already
// constructed target.
func NewDeploymentInstance(id, systemID string, target Target, componentID, componentName string) (DeploymentInstance, error) {
	if err := requireFields("DeploymentInstance", field{"id", id}, field{"system_id", systemID}); err != nil {
		return DeploymentInstance{}, err
	}
	if target == nil {
		return DeploymentInstance{}, newError(ErrInvalidTargetKind, fmt.Sprintf("deployment instance '%s' target_kind is required", id))
	}
	return DeploymentInstance{ID: id, SystemID: systemID, Target: target, ComponentID: componentID, ComponentName: componentName}, nil
}

type field struct {
	name  string
	value string
}

func requireFields(typ string, fields ...field) error {
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return newError(ErrMissingOrEmptyField, fmt.Sprintf("%s.%s is required", typ, f.name))
		}
	}
	return nil
}

func validateCIDR(value string) error {
	if _, err := netip.ParsePrefix(value); err != nil {
		return newError(ErrInvalidAddressLiteral, fmt.Sprintf("invalid CIDR '%s'", value))
	}
	return nil
}

func validateIP(value string) error {
	if _, err := netip.ParseAddr(value); err != nil {
		return newError(ErrInvalidAddressLiteral, fmt.Sprintf("invalid IP address '%s'", value))
	}
	return nil
}
