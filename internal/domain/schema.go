package domain

import (
	"fmt"
	"strings"
)

// Schema is the aggregate root: the full set of records a validation or
// render cycle operates on. It is built once from an external payload or
// persisted rows, validated, read, and discarded. Nothing mutates it after
// validation; corrections rebuild the aggregate.
type Schema struct {
	Subnets             []Subnet
	HardwareNodes       []HardwareNode
	VirtualMachines     []VirtualMachine
	StorageServers      []StorageServer
	NetworkSwitches     []NetworkSwitch
	KubernetesClusters  []KubernetesCluster
	SoftwareSystems     []SoftwareSystem
	DeploymentInstances []DeploymentInstance
}

// Validate runs the whole-graph consistency checks and returns the first
// violation. The order is fixed so repeated runs over the same data report
// the same error:
//
//  1. id uniqueness per collection
//  2. subnet CIDR uniqueness
//  3. foreign keys, collection by collection in declaration order
//  4. deployment target shape and reference per instance
//  5. hostname/IP uniqueness scan across all addressable entities
func (s *Schema) Validate() error {
	subnetIDs, err := uniqueIDs(len(s.Subnets), "subnet", func(i int) string { return s.Subnets[i].ID })
	if err != nil {
		return err
	}
	hardwareIDs, err := uniqueIDs(len(s.HardwareNodes), "hardware node", func(i int) string { return s.HardwareNodes[i].ID })
	if err != nil {
		return err
	}
	vmIDs, err := uniqueIDs(len(s.VirtualMachines), "virtual machine", func(i int) string { return s.VirtualMachines[i].ID })
	if err != nil {
		return err
	}
	if _, err := uniqueIDs(len(s.StorageServers), "storage server", func(i int) string { return s.StorageServers[i].ID }); err != nil {
		return err
	}
	if _, err := uniqueIDs(len(s.NetworkSwitches), "network switch", func(i int) string { return s.NetworkSwitches[i].ID }); err != nil {
		return err
	}
	clusterIDs, err := uniqueIDs(len(s.KubernetesClusters), "kubernetes cluster", func(i int) string { return s.KubernetesClusters[i].ID })
	if err != nil {
		return err
	}
	systemIDs, err := uniqueIDs(len(s.SoftwareSystems), "software system", func(i int) string { return s.SoftwareSystems[i].ID })
	if err != nil {
		return err
	}
	if _, err := uniqueIDs(len(s.DeploymentInstances), "deployment instance", func(i int) string { return s.DeploymentInstances[i].ID }); err != nil {
		return err
	}

	seenCIDRs := make(map[string]struct{}, len(s.Subnets))
	for _, subnet := range s.Subnets {
		if _, dup := seenCIDRs[subnet.CIDR]; dup {
			return newError(ErrDuplicateCIDR, fmt.Sprintf("duplicate subnet.cidr '%s'", subnet.CIDR))
		}
		seenCIDRs[subnet.CIDR] = struct{}{}
	}

	for _, node := range s.HardwareNodes {
		if err := assertRef(node.SubnetID, subnetIDs, fmt.Sprintf("hardware node '%s' subnet_id", node.ID)); err != nil {
			return err
		}
	}
	for _, vm := range s.VirtualMachines {
		if err := assertRef(vm.SubnetID, subnetIDs, fmt.Sprintf("virtual machine '%s' subnet_id", vm.ID)); err != nil {
			return err
		}
		if err := assertRef(vm.HostNodeID, hardwareIDs, fmt.Sprintf("virtual machine '%s' host_node_id", vm.ID)); err != nil {
			return err
		}
	}
	for _, storage := range s.StorageServers {
		if err := assertRef(storage.SubnetID, subnetIDs, fmt.Sprintf("storage server '%s' subnet_id", storage.ID)); err != nil {
			return err
		}
	}
	for _, sw := range s.NetworkSwitches {
		if err := assertRef(sw.SubnetID, subnetIDs, fmt.Sprintf("network switch '%s' subnet_id", sw.ID)); err != nil {
			return err
		}
	}
	for _, cluster := range s.KubernetesClusters {
		if err := assertRef(cluster.SubnetID, subnetIDs, fmt.Sprintf("kubernetes cluster '%s' subnet_id", cluster.ID)); err != nil {
			return err
		}
		for _, nodeID := range cluster.NodeIDs {
			if err := assertRef(nodeID, hardwareIDs, fmt.Sprintf("kubernetes cluster '%s' node_id", cluster.ID)); err != nil {
				return err
			}
		}
	}

	for _, inst := range s.DeploymentInstances {
		if err := assertRef(inst.SystemID, systemIDs, fmt.Sprintf("deployment instance '%s' system_id", inst.ID)); err != nil {
			return err
		}
		if err := validateInstanceTarget(inst, hardwareIDs, vmIDs, clusterIDs); err != nil {
			return err
		}
	}

	return s.validateHostnameIPUniqueness()
}

func validateInstanceTarget(inst DeploymentInstance, hardwareIDs, vmIDs, clusterIDs map[string]struct{}) error {
	switch t := inst.Target.(type) {
	case HostTarget:
		return assertTargetRef(t.NodeID, hardwareIDs, inst.ID, "target_node_id", TargetKindHost)
	case VMTarget:
		return assertTargetRef(t.VMID, vmIDs, inst.ID, "target_node_id", TargetKindVM)
	case ClusterTarget:
		return assertTargetRef(t.ClusterID, clusterIDs, inst.ID, "target_cluster_id", TargetKindCluster)
	case NamespaceTarget:
		if err := assertTargetRef(t.ClusterID, clusterIDs, inst.ID, "target_cluster_id", TargetKindNamespace); err != nil {
			return err
		}
		if strings.TrimSpace(t.Namespace) == "" {
			return newError(ErrInvalidTargetShape, fmt.Sprintf("deployment instance '%s' must include namespace for K8S_NAMESPACE target", inst.ID))
		}
		return nil
	default:
		return newError(ErrInvalidTargetKind, fmt.Sprintf("deployment instance '%s' target_kind is required", inst.ID))
	}
}

// addressableRecord is one row of the hostname/IP scan across hardware
// nodes, VMs, storage servers, and switches.
type addressableRecord struct {
	id       string
	subnetID string
	hostname string
	ip       string
}

func (s *Schema) addressableRecords() []addressableRecord {
	records := make([]addressableRecord, 0, len(s.HardwareNodes)+len(s.VirtualMachines)+len(s.StorageServers)+len(s.NetworkSwitches))
	for _, node := range s.HardwareNodes {
		records = append(records, addressableRecord{node.ID, node.SubnetID, node.Hostname, node.IP})
	}
	for _, vm := range s.VirtualMachines {
		records = append(records, addressableRecord{vm.ID, vm.SubnetID, vm.Hostname, vm.IP})
	}
	for _, storage := range s.StorageServers {
		records = append(records, addressableRecord{storage.ID, storage.SubnetID, storage.Hostname, storage.IP})
	}
	for _, sw := range s.NetworkSwitches {
		records = append(records, addressableRecord{sw.ID, sw.SubnetID, sw.Hostname, sw.ManagementIP})
	}
	return records
}

func (s *Schema) validateHostnameIPUniqueness() error {
	type key struct{ subnetID, value string }
	scopedHosts := make(map[key]string)
	scopedIPs := make(map[key]string)

	for _, record := range s.addressableRecords() {
		hostKey := key{record.subnetID, strings.ToLower(record.hostname)}
		if first, dup := scopedHosts[hostKey]; dup {
			return newError(ErrDuplicateHostname, fmt.Sprintf(
				"duplicate hostname '%s' in subnet '%s' (%s, %s)", record.hostname, record.subnetID, first, record.id))
		}
		scopedHosts[hostKey] = record.id

		ipKey := key{record.subnetID, record.ip}
		if first, dup := scopedIPs[ipKey]; dup {
			return newError(ErrDuplicateAddress, fmt.Sprintf(
				"duplicate IP '%s' in subnet '%s' (%s, %s)", record.ip, record.subnetID, first, record.id))
		}
		scopedIPs[ipKey] = record.id
	}
	return nil
}

func uniqueIDs(n int, label string, id func(int) string) (map[string]struct{}, error) {
	ids := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		v := id(i)
		if _, dup := ids[v]; dup {
			return nil, newError(ErrDuplicateID, fmt.Sprintf("duplicate %s id '%s'", label, v))
		}
		ids[v] = struct{}{}
	}
	return ids, nil
}

func assertRef(value string, allowed map[string]struct{}, field string) error {
	if value == "" {
		return newError(ErrMissingOrEmptyField, field+" is required")
	}
	if _, ok := allowed[value]; !ok {
		return newError(ErrDanglingReference, fmt.Sprintf("%s '%s' does not reference an existing object", field, value))
	}
	return nil
}

func assertTargetRef(value string, allowed map[string]struct{}, instanceID, wireField string, kind TargetKind) error {
	if value == "" {
		return newError(ErrInvalidTargetShape, fmt.Sprintf("deployment instance '%s' must include %s for %s target", instanceID, wireField, kind))
	}
	if _, ok := allowed[value]; !ok {
		return newError(ErrDanglingReference, fmt.Sprintf(
			"deployment instance '%s' %s '%s' does not reference an existing object", instanceID, wireField, value))
	}
	return nil
}
