package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/depmap-project/depmap/internal/domain"
)

const demoManifestJSON = `{
  "subnets": [
    {"id": "subnet-prod", "cidr": "10.0.0.0/24", "name": "production"},
    {"id": "subnet-mgmt", "cidr": "10.0.1.0/24", "name": "management"}
  ],
  "hardware_nodes": [
    {"id": "node-baremetal-01", "hostname": "bm-prod-01", "ip_address": "10.0.0.10", "subnet_id": "subnet-prod", "kind": "physical"},
    {"id": "node-k8s-worker-01", "hostname": "k8s-worker-01", "ip_address": "10.0.0.11", "subnet_id": "subnet-prod", "kind": "k8s-node"}
  ],
  "virtual_machines": [
    {"id": "vm-app-01", "hostname": "vm-app-01", "ip_address": "10.0.0.21", "subnet_id": "subnet-prod", "host_node_id": "node-baremetal-01"}
  ],
  "storage_servers": [
    {"id": "storage-nas-01", "hostname": "nas-01", "ip_address": "10.0.1.30", "subnet_id": "subnet-mgmt"}
  ],
  "network_switches": [
    {"id": "switch-core-01", "hostname": "sw-core-01", "management_ip": "10.0.1.40", "subnet_id": "subnet-mgmt"}
  ],
  "kubernetes_clusters": [
    {"id": "cluster-prod-01", "name": "prod-cluster", "subnet_id": "subnet-prod", "node_ids": ["node-k8s-worker-01"]}
  ],
  "software_systems": [
    {"id": "sys-payments", "name": "payments-api", "version": "2.4.1"},
    {"id": "sys-observability", "name": "observability-stack", "version": "1.7.0"}
  ],
  "deployment_instances": [
    {"id": "deploy-payments-vm", "system_id": "sys-payments", "target_kind": "VM", "target_node_id": "vm-app-01", "component_id": "payments-service"},
    {"id": "deploy-observability-ns", "system_id": "sys-observability", "target_kind": "K8S_NAMESPACE", "target_cluster_id": "cluster-prod-01", "namespace": "monitoring", "component_id": "prometheus"}
  ]
}`

const demoManifestYAML = `subnets:
  - id: subnet-prod
    cidr: 10.0.0.0/24
    name: production
  - id: subnet-mgmt
    cidr: 10.0.1.0/24
    name: management
hardware_nodes:
  - id: node-baremetal-01
    hostname: bm-prod-01
    ip_address: 10.0.0.10
    subnet_id: subnet-prod
    kind: physical
  - id: node-k8s-worker-01
    hostname: k8s-worker-01
    ip_address: 10.0.0.11
    subnet_id: subnet-prod
    kind: k8s-node
virtual_machines:
  - id: vm-app-01
    hostname: vm-app-01
    ip_address: 10.0.0.21
    subnet_id: subnet-prod
    host_node_id: node-baremetal-01
storage_servers:
  - id: storage-nas-01
    hostname: nas-01
    ip_address: 10.0.1.30
    subnet_id: subnet-mgmt
network_switches:
  - id: switch-core-01
    hostname: sw-core-01
    management_ip: 10.0.1.40
    subnet_id: subnet-mgmt
kubernetes_clusters:
  - id: cluster-prod-01
    name: prod-cluster
    subnet_id: subnet-prod
    node_ids:
      - node-k8s-worker-01
software_systems:
  - id: sys-payments
    name: payments-api
    version: 2.4.1
  - id: sys-observability
    name: observability-stack
    version: 1.7.0
deployment_instances:
  - id: deploy-payments-vm
    system_id: sys-payments
    target_kind: VM
    target_node_id: vm-app-01
    component_id: payments-service
  - id: deploy-observability-ns
    system_id: sys-observability
    target_kind: K8S_NAMESPACE
    target_cluster_id: cluster-prod-01
    namespace: monitoring
    component_id: prometheus
`

func TestDecodeManifestJSON(t *testing.T) {
	m, err := DecodeManifest([]byte(demoManifestJSON))
	require.NoError(t, err)
	assert.Len(t, m.Subnets, 2)
	assert.Equal(t, "node-baremetal-01", m.HardwareNodes[0].ID)
	assert.Equal(t, "10.0.0.10", m.HardwareNodes[0].IP)
}

func TestDecodeManifestYAML(t *testing.T) {
	fromYAML, err := DecodeManifest([]byte(demoManifestYAML))
	require.NoError(t, err)
	fromJSON, err := DecodeManifest([]byte(demoManifestJSON))
	require.NoError(t, err)

	assert.Equal(t, fromJSON, fromYAML)
}

func TestDecodeManifestSniffsLeadingWhitespace(t *testing.T) {
	m, err := DecodeManifest([]byte("\n\t  " + demoManifestJSON))
	require.NoError(t, err)
	assert.Len(t, m.Subnets, 2)
}

func TestDecodeManifestErrors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr string
	}{
		{name: "empty", data: "", wantErr: "manifest is empty"},
		{name: "whitespace only", data: "  \n\t", wantErr: "manifest is empty"},
		{name: "broken json", data: `{"subnets": [`, wantErr: "decode JSON manifest"},
		{name: "yaml sequence root", data: "- one\n- two\n", wantErr: "decode YAML manifest"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeManifest([]byte(tt.data))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestBuildReconstructsDemoSchema(t *testing.T) {
	m, err := DecodeManifest([]byte(demoManifestJSON))
	require.NoError(t, err)

	schema, diags, err := m.Build("demo.json")
	require.NoError(t, err)
	assert.Empty(t, diags.Entries)
	assert.Equal(t, domain.DemoSchema(), schema)
}

func TestBuildSkipsRecordsWithUnknownReferences(t *testing.T) {
	manifest := &Manifest{
		Subnets: []SubnetRecord{{ID: "subnet-a", CIDR: "10.0.0.0/24", Name: "a"}},
		HardwareNodes: []HardwareNodeRecord{
			{ID: "node-lost", Hostname: "lost-01", IP: "10.9.0.1", SubnetID: "subnet-ghost"},
			{ID: "node-ok", Hostname: "ok-01", IP: "10.0.0.1", SubnetID: "subnet-a"},
		},
		VirtualMachines: []VirtualMachineRecord{
			// Cascades: its host was skipped above.
			{ID: "vm-orphan", Hostname: "vm-01", IP: "10.0.0.2", SubnetID: "subnet-a", HostNodeID: "node-lost"},
		},
	}

	schema, diags, err := manifest.Build("partial.json")
	require.NoError(t, err)

	require.Len(t, schema.HardwareNodes, 1)
	assert.Equal(t, "node-ok", schema.HardwareNodes[0].ID)
	assert.Empty(t, schema.VirtualMachines)

	require.Len(t, diags.Entries, 2)
	first := diags.Entries[0]
	assert.Equal(t, "missing_reference", first.Code)
	assert.Equal(t, "Hardware node references unknown subnet.", first.Message)
	assert.Equal(t, LevelWarning, first.Level)
	assert.Equal(t, map[string]string{
		"source":     "partial.json",
		"entity":     "hardware_node",
		"entity_id":  "node-lost",
		"field":      "subnet_id",
		"missing_id": "subnet-ghost",
	}, first.Context)

	second := diags.Entries[1]
	assert.Equal(t, "Virtual machine references unknown object.", second.Message)
	assert.Equal(t, "host_node_id", second.Context["field"])
	assert.Equal(t, "node-lost", second.Context["missing_id"])
	assert.False(t, diags.HasErrors())
}

func TestBuildFlagsDanglingDeploymentAsError(t *testing.T) {
	manifest := &Manifest{
		SoftwareSystems: []SoftwareSystemRecord{{ID: "sys-a", Name: "a"}},
		DeploymentInstances: []DeploymentInstanceRecord{
			{ID: "deploy-x", SystemID: "sys-ghost", TargetKind: "CLUSTER", TargetClusterID: "cluster-a"},
		},
	}

	schema, diags, err := manifest.Build("")
	require.NoError(t, err)
	assert.Empty(t, schema.DeploymentInstances)
	require.Len(t, diags.Entries, 1)
	assert.Equal(t, LevelError, diags.Entries[0].Level)
	assert.Equal(t, "Deployment instance references unknown object.", diags.Entries[0].Message)
	assert.Equal(t, "manifest", diags.Entries[0].Context["source"])
	assert.Equal(t, "system_id", diags.Entries[0].Context["field"])
	assert.True(t, diags.HasErrors())
}

func TestBuildFailsOnUnsupportedTargetKind(t *testing.T) {
	manifest := &Manifest{
		SoftwareSystems: []SoftwareSystemRecord{{ID: "sys-a", Name: "a"}},
		DeploymentInstances: []DeploymentInstanceRecord{
			{ID: "deploy-x", SystemID: "sys-a", TargetKind: "LAMBDA"},
		},
	}

	_, _, err := manifest.Build("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported target_kind 'LAMBDA'")
}

func TestBuildFailsOnMalformedTargetShape(t *testing.T) {
	manifest := &Manifest{
		SoftwareSystems: []SoftwareSystemRecord{{ID: "sys-a", Name: "a"}},
		DeploymentInstances: []DeploymentInstanceRecord{
			{ID: "deploy-x", SystemID: "sys-a", TargetKind: "VM", TargetNodeID: "vm-1", TargetClusterID: "cluster-1"},
		},
	}

	_, _, err := manifest.Build("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must not set target_cluster_id for VM target")
}

func TestBuildFailsOnInvalidFieldLiteral(t *testing.T) {
	manifest := &Manifest{
		Subnets: []SubnetRecord{{ID: "subnet-a", CIDR: "not-a-cidr", Name: "a"}},
	}

	_, _, err := manifest.Build("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid CIDR 'not-a-cidr'")
}

func TestBuildRunsImportValidation(t *testing.T) {
	manifest := &Manifest{
		Subnets: []SubnetRecord{{ID: "subnet-a", CIDR: "10.0.0.0/24", Name: "a"}},
		HardwareNodes: []HardwareNodeRecord{
			{ID: "node-out", Hostname: "out-01", IP: "192.168.1.1", SubnetID: "subnet-a"},
		},
	}

	_, _, err := manifest.Build("")
	require.Error(t, err)
	assert.Equal(t, domain.ErrAddressOutsideSubnet, domain.KindOf(err))
}

func TestManifestExtras(t *testing.T) {
	m, err := DecodeManifest([]byte(`{
  "dependencies": [
    {"id": "dep-1", "from_component_id": "web", "to_component_id": "db", "label": "reads"}
  ],
  "network_links": [
    {"id": "link-1", "source_type": "host", "source_id": "node-a", "target_type": "vm", "target_id": "vm-b"}
  ]
}`))
	require.NoError(t, err)

	dependencies, links := m.Extras()
	require.Len(t, dependencies, 1)
	assert.Equal(t, "web", dependencies[0].FromComponentID)
	assert.Equal(t, "reads", dependencies[0].Label)
	require.Len(t, links, 1)
	assert.Equal(t, "host", links[0].SourceType)
	assert.Empty(t, links[0].Label)
}
