package ingest

import (
	"github.com/depmap-project/depmap/internal/domain"
)

// VMMappingPayload is a partial export carrying only VM-to-host mappings,
// typically produced by a hypervisor inventory tool.
type VMMappingPayload struct {
	VirtualMachines []VirtualMachineRecord `json:"virtual_machines" yaml:"virtual_machines"`
}

// ImportVMMappings builds virtual machines from a partial payload, checking
// references against the host and subnet ids already known to the caller.
// VMs with unknown references are dropped with an ERROR diagnostic.
func ImportVMMappings(payload *VMMappingPayload, knownHostIDs, knownSubnetIDs map[string]struct{}) ([]domain.VirtualMachine, *Diagnostics, error) {
	diags := NewDiagnostics()
	var vms []domain.VirtualMachine

	for _, record := range payload.VirtualMachines {
		if _, ok := knownSubnetIDs[record.SubnetID]; !ok {
			diags.Add("missing_reference", "VM references unknown subnet.", LevelError, map[string]string{
				"entity":     "virtual_machine",
				"entity_id":  record.ID,
				"field":      "subnet_id",
				"missing_id": record.SubnetID,
			})
			continue
		}
		if _, ok := knownHostIDs[record.HostNodeID]; !ok {
			diags.Add("missing_reference", "VM host mapping references unknown hardware node.", LevelError, map[string]string{
				"entity":     "virtual_machine",
				"entity_id":  record.ID,
				"field":      "host_node_id",
				"missing_id": record.HostNodeID,
			})
			continue
		}

		vm, err := domain.NewVirtualMachine(record.ID, record.Hostname, record.IP, record.SubnetID, record.HostNodeID)
		if err != nil {
			return nil, diags, err
		}
		vms = append(vms, vm)
	}

	return vms, diags, nil
}
