package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSubnet(t *testing.T) {
	tests := []struct {
		name     string
		id       string
		cidr     string
		label    string
		wantKind ErrorKind
	}{
		{
			name:  "valid subnet",
			id:    "subnet-prod",
			cidr:  "10.0.0.0/24",
			label: "production",
		},
		{
			name:     "blank id",
			id:       "  ",
			cidr:     "10.0.0.0/24",
			label:    "production",
			wantKind: ErrMissingOrEmptyField,
		},
		{
			name:     "missing cidr",
			id:       "subnet-prod",
			cidr:     "",
			label:    "production",
			wantKind: ErrMissingOrEmptyField,
		},
		{
			name:     "unparseable cidr",
			id:       "subnet-prod",
			cidr:     "10.0.0.0/99",
			label:    "production",
			wantKind: ErrInvalidAddressLiteral,
		},
		{
			name:     "cidr without prefix length",
			id:       "subnet-prod",
			cidr:     "10.0.0.0",
			label:    "production",
			wantKind: ErrInvalidAddressLiteral,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subnet, err := NewSubnet(tt.id, tt.cidr, tt.label)
			if tt.wantKind != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantKind, KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.id, subnet.ID)
			assert.Equal(t, tt.cidr, subnet.CIDR)
		})
	}
}

func TestNewSubnetErrorNamesField(t *testing.T) {
	_, err := NewSubnet("subnet-prod", "", "production")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Subnet.cidr is required")

	_, err = NewSubnet("subnet-prod", "not-a-cidr", "production")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid CIDR 'not-a-cidr'")
}

func TestNewHardwareNode(t *testing.T) {
	tests := []struct {
		name     string
		ip       string
		kind     NodeKind
		wantKind ErrorKind
		wantErr  bool
	}{
		{
			name: "valid with explicit kind",
			ip:   "10.0.0.10",
			kind: NodeKindK8sNode,
		},
		{
			name: "empty kind defaults to physical",
			ip:   "10.0.0.10",
		},
		{
			name:     "invalid ip",
			ip:       "10.0.0.300",
			wantKind: ErrInvalidAddressLiteral,
			wantErr:  true,
		},
		{
			name:    "unknown kind",
			ip:      "10.0.0.10",
			kind:    NodeKind("mainframe"),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node, err := NewHardwareNode("node-01", "host-01", tt.ip, "subnet-prod", tt.kind)
			if tt.wantErr {
				require.Error(t, err)
				if tt.wantKind != "" {
					assert.Equal(t, tt.wantKind, KindOf(err))
				}
				return
			}
			require.NoError(t, err)
			if tt.kind == "" {
				assert.Equal(t, NodeKindPhysical, node.Kind)
			} else {
				assert.Equal(t, tt.kind, node.Kind)
			}
		})
	}
}

func TestNewVirtualMachineRequiresHostNode(t *testing.T) {
	_, err := NewVirtualMachine("vm-01", "vm-host", "10.0.0.21", "subnet-prod", "")
	require.Error(t, err)
	assert.Equal(t, ErrMissingOrEmptyField, KindOf(err))
	assert.Contains(t, err.Error(), "VirtualMachine.host_node_id is required")
}

func TestNewNetworkSwitchValidatesManagementIP(t *testing.T) {
	_, err := NewNetworkSwitch("switch-01", "sw-01", "garbage", "subnet-mgmt")
	require.Error(t, err)
	assert.Equal(t, ErrInvalidAddressLiteral, KindOf(err))

	sw, err := NewNetworkSwitch("switch-01", "sw-01", "10.0.1.40", "subnet-mgmt")
	require.NoError(t, err)
	assert.Equal(t, "10.0.1.40", sw.ManagementIP)
}

func TestNewKubernetesClusterCopiesMembers(t *testing.T) {
	members := []string{"node-a", "node-b"}
	cluster, err := NewKubernetesCluster("cluster-01", "prod", "subnet-prod", members)
	require.NoError(t, err)

	members[0] = "mutated"
	assert.Equal(t, []string{"node-a", "node-b"}, cluster.NodeIDs)
}

func TestNewSoftwareSystemVersionOptional(t *testing.T) {
	sys, err := NewSoftwareSystem("sys-payments", "payments-api", "")
	require.NoError(t, err)
	assert.Empty(t, sys.Version)

	_, err = NewSoftwareSystem("sys-payments", "", "1.0.0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SoftwareSystem.name is required")
}

func TestParseNodeKind(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    NodeKind
		wantErr bool
	}{
		{name: "physical", in: "physical", want: NodeKindPhysical},
		{name: "uppercase folds", in: "K8S-NODE", want: NodeKindK8sNode},
		{name: "empty defaults", in: "", want: NodeKindPhysical},
		{name: "vm-host", in: "vm-host", want: NodeKindVMHost},
		{name: "unknown", in: "quantum", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseNodeKind(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
