// Package validate layers deployment-boundary checks on top of the schema's
// structural validation. ForImport gates persistence of freshly ingested
// data; ForDiagram gates rendering of an already-resolved topology. Both are
// fail-fast: the first violation is returned and nothing else is inspected.
// Messages in this layer carry a "Suggested fix:" remediation and name
// entities by their wire spelling (hardware_node, virtual_machine, ...).
package validate

import (
	"fmt"
	"net/netip"
	"strings"

	"github.com/depmap-project/depmap/internal/domain"
	"github.com/depmap-project/depmap/internal/topology"
)

// ForImport runs the full structural validation and then the ingestion-only
// checks: every address must sit inside its subnet's CIDR, and no two
// records may share an address within a subnet.
func ForImport(s *domain.Schema) error {
	if err := s.Validate(); err != nil {
		return err
	}

	networks, err := subnetNetworks(s.Subnets)
	if err != nil {
		return err
	}

	for _, node := range s.HardwareNodes {
		_, ok := networks[node.SubnetID]
		if err := requireRef(node.SubnetID, ok, "hardware_node", node.ID, "subnet_id", "Create the subnet first or update subnet_id."); err != nil {
			return err
		}
		if err := ensureIPInSubnet(node.IP, node.SubnetID, networks, "hardware_node", node.ID); err != nil {
			return err
		}
	}
	for _, vm := range s.VirtualMachines {
		_, ok := networks[vm.SubnetID]
		if err := requireRef(vm.SubnetID, ok, "virtual_machine", vm.ID, "subnet_id", "Create the subnet first or update subnet_id."); err != nil {
			return err
		}
		if err := ensureIPInSubnet(vm.IP, vm.SubnetID, networks, "virtual_machine", vm.ID); err != nil {
			return err
		}
	}
	for _, storage := range s.StorageServers {
		_, ok := networks[storage.SubnetID]
		if err := requireRef(storage.SubnetID, ok, "storage_server", storage.ID, "subnet_id", "Create the subnet first or update subnet_id."); err != nil {
			return err
		}
		if err := ensureIPInSubnet(storage.IP, storage.SubnetID, networks, "storage_server", storage.ID); err != nil {
			return err
		}
	}
	for _, sw := range s.NetworkSwitches {
		_, ok := networks[sw.SubnetID]
		if err := requireRef(sw.SubnetID, ok, "network_switch", sw.ID, "subnet_id", "Create the subnet first or update subnet_id."); err != nil {
			return err
		}
		if err := ensureIPInSubnet(sw.ManagementIP, sw.SubnetID, networks, "network_switch", sw.ID); err != nil {
			return err
		}
	}

	return noDuplicateAddresses(addressRecords(s), "assign a unique IP per subnet.")
}

// ForDiagram re-checks a resolved topology right before rendering. It is
// lenient about anything the renderer can skip on its own, and strict about
// what would produce a lying diagram: broken subnet references, addresses
// outside their subnet, address conflicts, and malformed deployment targets.
func ForDiagram(systemID string, resolved *topology.Resolved) error {
	networks, err := subnetNetworks(resolved.Subnets)
	if err != nil {
		return err
	}

	for _, node := range resolved.HardwareNodes {
		_, ok := networks[node.SubnetID]
		if err := requireRef(node.SubnetID, ok, "hardware_node", node.ID, "subnet_id", "Fix hardware node subnet_id or add the missing subnet."); err != nil {
			return err
		}
		if err := ensureIPInSubnet(node.IP, node.SubnetID, networks, "hardware_node", node.ID); err != nil {
			return err
		}
	}
	for _, vm := range resolved.VirtualMachines {
		_, ok := networks[vm.SubnetID]
		if err := requireRef(vm.SubnetID, ok, "virtual_machine", vm.ID, "subnet_id", "Fix VM subnet_id or add the missing subnet."); err != nil {
			return err
		}
		if err := ensureIPInSubnet(vm.IP, vm.SubnetID, networks, "virtual_machine", vm.ID); err != nil {
			return err
		}
	}

	records := make([]addressRecord, 0, len(resolved.HardwareNodes)+len(resolved.VirtualMachines))
	for _, node := range resolved.HardwareNodes {
		records = append(records, addressRecord{id: node.ID, subnetID: node.SubnetID, address: node.IP})
	}
	for _, vm := range resolved.VirtualMachines {
		records = append(records, addressRecord{id: vm.ID, subnetID: vm.SubnetID, address: vm.IP})
	}
	if err := noDuplicateAddresses(records, "assign unique target addresses before diagram generation."); err != nil {
		return err
	}

	hardwareIDs := make(map[string]struct{}, len(resolved.HardwareNodes))
	for _, node := range resolved.HardwareNodes {
		hardwareIDs[node.ID] = struct{}{}
	}
	vmIDs := make(map[string]struct{}, len(resolved.VirtualMachines))
	for _, vm := range resolved.VirtualMachines {
		vmIDs[vm.ID] = struct{}{}
	}
	clusterIDs := make(map[string]struct{}, len(resolved.KubernetesClusters))
	for _, cluster := range resolved.KubernetesClusters {
		clusterIDs[cluster.ID] = struct{}{}
	}

	for _, d := range resolved.Deployments {
		kind := domain.TargetKind(d.TargetKind)
		if !kind.IsValid() {
			return &domain.Error{
				Kind: domain.ErrInvalidTargetKind,
				Message: fmt.Sprintf(
					"diagram generation blocked for system '%s': deployment_instance '%s' uses unsupported target_kind '%s'. Supported target kinds: %s. Suggested fix: map deployment to one of the supported target kinds.",
					systemID, d.ID, d.TargetKind, supportedKindList(),
				),
			}
		}

		switch kind {
		case domain.TargetKindHost:
			_, ok := hardwareIDs[d.TargetNodeID]
			if err := requireRef(d.TargetNodeID, ok, "deployment_instance", d.ID, "target_node_id", "Set target_node_id to an existing hardware node id."); err != nil {
				return err
			}
		case domain.TargetKindVM:
			_, ok := vmIDs[d.TargetNodeID]
			if err := requireRef(d.TargetNodeID, ok, "deployment_instance", d.ID, "target_node_id", "Set target_node_id to an existing VM id."); err != nil {
				return err
			}
		case domain.TargetKindCluster:
			_, ok := clusterIDs[d.TargetClusterID]
			if err := requireRef(d.TargetClusterID, ok, "deployment_instance", d.ID, "target_cluster_id", "Set target_cluster_id to an existing kubernetes cluster id."); err != nil {
				return err
			}
		case domain.TargetKindNamespace:
			_, ok := clusterIDs[d.TargetClusterID]
			if err := requireRef(d.TargetClusterID, ok, "deployment_instance", d.ID, "target_cluster_id", "Set target_cluster_id to an existing kubernetes cluster id."); err != nil {
				return err
			}
			if d.Namespace == "" {
				return &domain.Error{
					Kind:    domain.ErrInvalidTargetShape,
					Message: fmt.Sprintf("deployment_instance '%s' is missing namespace for K8S_NAMESPACE target. Suggested fix: set a non-empty namespace value.", d.ID),
				}
			}
		}
	}

	return nil
}

type addressRecord struct {
	id       string
	subnetID string
	address  string
}

func addressRecords(s *domain.Schema) []addressRecord {
	records := make([]addressRecord, 0, len(s.HardwareNodes)+len(s.VirtualMachines)+len(s.StorageServers)+len(s.NetworkSwitches))
	for _, node := range s.HardwareNodes {
		records = append(records, addressRecord{id: node.ID, subnetID: node.SubnetID, address: node.IP})
	}
	for _, vm := range s.VirtualMachines {
		records = append(records, addressRecord{id: vm.ID, subnetID: vm.SubnetID, address: vm.IP})
	}
	for _, storage := range s.StorageServers {
		records = append(records, addressRecord{id: storage.ID, subnetID: storage.SubnetID, address: storage.IP})
	}
	for _, sw := range s.NetworkSwitches {
		records = append(records, addressRecord{id: sw.ID, subnetID: sw.SubnetID, address: sw.ManagementIP})
	}
	return records
}

func noDuplicateAddresses(records []addressRecord, suggestion string) error {
	seen := make(map[[2]string]string, len(records))
	for _, record := range records {
		if record.subnetID == "" || record.address == "" {
			continue
		}
		key := [2]string{record.subnetID, record.address}
		if first, dup := seen[key]; dup {
			return &domain.Error{
				Kind: domain.ErrDuplicateAddress,
				Message: fmt.Sprintf(
					"duplicate addressing conflict: address '%s' is assigned to '%s' and '%s' in subnet '%s'. Suggested fix: %s",
					record.address, first, record.id, record.subnetID, suggestion,
				),
			}
		}
		seen[key] = record.id
	}
	return nil
}

func subnetNetworks(subnets []domain.Subnet) (map[string]netip.Prefix, error) {
	networks := make(map[string]netip.Prefix, len(subnets))
	for _, subnet := range subnets {
		prefix, err := netip.ParsePrefix(subnet.CIDR)
		if err != nil {
			return nil, &domain.Error{
				Kind:    domain.ErrInvalidAddressLiteral,
				Message: fmt.Sprintf("invalid CIDR '%s'", subnet.CIDR),
			}
		}
		networks[subnet.ID] = prefix
	}
	return networks, nil
}

func requireRef(value string, ok bool, entity, entityID, field, suggestion string) error {
	if value == "" || !ok {
		return &domain.Error{
			Kind: domain.ErrDanglingReference,
			Message: fmt.Sprintf(
				"missing foreign key reference: %s '%s' field '%s' points to '%s'. Suggested fix: %s",
				entity, entityID, field, value, suggestion,
			),
		}
	}
	return nil
}

func ensureIPInSubnet(ip, subnetID string, networks map[string]netip.Prefix, entity, entityID string) error {
	network, ok := networks[subnetID]
	if !ok {
		return nil
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return &domain.Error{
			Kind:    domain.ErrInvalidAddressLiteral,
			Message: fmt.Sprintf("invalid IP address '%s'", ip),
		}
	}
	if !network.Contains(addr) {
		return &domain.Error{
			Kind: domain.ErrAddressOutsideSubnet,
			Message: fmt.Sprintf(
				"invalid subnet/CIDR assignment: %s '%s' uses address '%s' outside subnet '%s' (%s). Suggested fix: use an address inside the subnet CIDR or move the entity to the correct subnet.",
				entity, entityID, ip, subnetID, network.Masked(),
			),
		}
	}
	return nil
}

func supportedKindList() string {
	return strings.Join(domain.SupportedTargetKinds(), ", ")
}
