package topology

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/depmap-project/depmap/internal/domain"
)

func TestResolveSystemOnVM(t *testing.T) {
	schema := domain.DemoSchema()

	resolved, err := Resolve(schema, "sys-payments")
	require.NoError(t, err)

	assert.Equal(t, "payments-api", resolved.System.Name)
	assert.Equal(t, "2.4.1", resolved.System.Version)

	// The physical graph is always complete, independent of the system.
	assert.Len(t, resolved.Subnets, 2)
	assert.Len(t, resolved.HardwareNodes, 2)
	assert.Len(t, resolved.VirtualMachines, 1)
	assert.Len(t, resolved.KubernetesClusters, 1)

	require.Len(t, resolved.Deployments, 1)
	deployment := resolved.Deployments[0]
	assert.Equal(t, "deploy-payments-vm", deployment.ID)
	assert.Equal(t, "VM", deployment.TargetKind)
	assert.Equal(t, "vm-app-01", deployment.TargetNodeID)
	assert.Empty(t, deployment.TargetClusterID)

	require.Len(t, resolved.Relations, 1)
	relation := resolved.Relations[0]
	assert.Equal(t, "vm-app-01", relation.TargetID)
	assert.Equal(t, "vm-app-01", relation.TargetName)
	assert.Equal(t, "subnet-prod", relation.SubnetID)
	assert.Equal(t, "production", relation.SubnetName)

	require.Len(t, resolved.HostingNodes, 1)
	assert.Equal(t, NodeRecord{NodeID: "vm-app-01", NodeType: "vm", Hostname: "vm-app-01", IP: "10.0.0.21"}, resolved.HostingNodes[0])

	require.Len(t, resolved.Components, 1)
	assert.Equal(t, Component{ID: "payments-service", Name: "payments-service"}, resolved.Components[0])
}

func TestResolveSystemOnNamespace(t *testing.T) {
	schema := domain.DemoSchema()

	resolved, err := Resolve(schema, "sys-observability")
	require.NoError(t, err)

	require.Len(t, resolved.Relations, 1)
	relation := resolved.Relations[0]
	assert.Equal(t, "K8S_NAMESPACE", relation.TargetKind)
	assert.Equal(t, "cluster-prod-01", relation.TargetID)
	assert.Equal(t, "prod-cluster", relation.TargetName)
	assert.Equal(t, "monitoring", relation.Namespace)
	assert.Equal(t, "subnet-prod", relation.SubnetID)

	// Namespace deployments are hosted on the cluster's member nodes.
	require.Len(t, resolved.HostingNodes, 1)
	assert.Equal(t, "node-k8s-worker-01", resolved.HostingNodes[0].NodeID)
	assert.Equal(t, "hardware", resolved.HostingNodes[0].NodeType)

	members, ok := resolved.Clusters["cluster-prod-01"]
	require.True(t, ok)
	require.Len(t, members, 1)
	assert.Equal(t, ClusterNode{NodeID: "node-k8s-worker-01", Hostname: "k8s-worker-01", IP: "10.0.0.11"}, members[0])
}

func TestResolveUnknownSystem(t *testing.T) {
	_, err := Resolve(domain.DemoSchema(), "sys-ghost")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "system 'sys-ghost'")
}

func TestResolveIsOrderIndependent(t *testing.T) {
	forward := domain.DemoSchema()

	reversed := domain.DemoSchema()
	reverse(reversed.Subnets)
	reverse(reversed.HardwareNodes)
	reverse(reversed.SoftwareSystems)
	reverse(reversed.DeploymentInstances)

	a, err := Resolve(forward, "sys-payments")
	require.NoError(t, err)
	b, err := Resolve(reversed, "sys-payments")
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestResolveDegradesOnDanglingTarget(t *testing.T) {
	schema := domain.DemoSchema()
	schema.DeploymentInstances = []domain.DeploymentInstance{
		{ID: "deploy-orphan", SystemID: "sys-payments", Target: domain.VMTarget{VMID: "vm-ghost"}},
	}

	resolved, err := Resolve(schema, "sys-payments")
	require.NoError(t, err)

	require.Len(t, resolved.Relations, 1)
	assert.Empty(t, resolved.Relations[0].TargetID)
	assert.Empty(t, resolved.Relations[0].SubnetID)
	assert.Empty(t, resolved.HostingNodes)
}

func TestResolveSubnet(t *testing.T) {
	schema := domain.DemoSchema()

	view, err := ResolveSubnet(schema, "subnet-prod")
	require.NoError(t, err)

	assert.Equal(t, "production", view.Subnet.Name)
	assert.Equal(t, 2, view.DeploymentCount())

	require.Len(t, view.Systems, 2)
	assert.Equal(t, "sys-observability", view.Systems[0].ID)
	assert.Equal(t, "observability-stack", view.Systems[0].Name)
	assert.Equal(t, "1.7.0", view.Systems[0].Version)
	assert.Equal(t, "sys-payments", view.Systems[1].ID)

	require.Len(t, view.Systems[1].Components, 1)
	component := view.Systems[1].Components[0]
	assert.Equal(t, "payments-service", component.ID)
	require.Len(t, component.Deployments, 1)
	assert.Equal(t, "deploy-payments-vm", component.Deployments[0].ID)

	require.Len(t, view.Relations, 2)
	assert.Equal(t, "deploy-observability-ns", view.Relations[0].DeploymentID)
	assert.Equal(t, "prod-cluster", view.Relations[0].TargetName)
}

func TestResolveSubnetWithoutDeployments(t *testing.T) {
	view, err := ResolveSubnet(domain.DemoSchema(), "subnet-mgmt")
	require.NoError(t, err)

	assert.Empty(t, view.Systems)
	assert.Empty(t, view.Relations)
	assert.Equal(t, 0, view.DeploymentCount())
}

func TestResolveSubnetUnknown(t *testing.T) {
	_, err := ResolveSubnet(domain.DemoSchema(), "subnet-ghost")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "subnet 'subnet-ghost'")
}

func TestResolveSubnetGroupsByDeploymentWithoutComponent(t *testing.T) {
	schema := domain.DemoSchema()
	schema.DeploymentInstances = append(schema.DeploymentInstances, domain.DeploymentInstance{
		ID:       "deploy-bare",
		SystemID: "sys-payments",
		Target:   domain.HostTarget{NodeID: "node-baremetal-01"},
	})

	view, err := ResolveSubnet(schema, "subnet-prod")
	require.NoError(t, err)

	var payments SystemDeployments
	for _, system := range view.Systems {
		if system.ID == "sys-payments" {
			payments = system
		}
	}
	require.Len(t, payments.Components, 2)
	assert.Equal(t, "deploy-bare", payments.Components[0].ID)
	assert.Equal(t, "payments-service", payments.Components[1].ID)
}

func TestSystemsBySubnet(t *testing.T) {
	rows := SystemsBySubnet(domain.DemoSchema())

	require.Len(t, rows, 1)
	assert.Equal(t, "subnet-prod", rows[0].SubnetID)
	assert.Equal(t, "production", rows[0].SubnetName)
	require.Len(t, rows[0].Systems, 2)
	assert.Equal(t, SystemRef{ID: "sys-observability", Name: "observability-stack"}, rows[0].Systems[0])
	assert.Equal(t, SystemRef{ID: "sys-payments", Name: "payments-api"}, rows[0].Systems[1])
}

func reverse[T any](s []T) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
