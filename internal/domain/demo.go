package domain

// DemoDatasetName identifies the built-in demonstration dataset.
const DemoDatasetName = "baseline-demo"

// DemoSchema builds a small, valid topology used by `depmap seed` and as a
// known-good fixture: two subnets, a bare-metal host carrying an app VM, a
// one-node Kubernetes cluster, management-plane storage and switching, and
// two systems deployed onto the VM and into a cluster namespace.
func DemoSchema() *Schema {
	return &Schema{
		Subnets: []Subnet{
			{ID: "subnet-prod", CIDR: "10.0.0.0/24", Name: "production"},
			{ID: "subnet-mgmt", CIDR: "10.0.1.0/24", Name: "management"},
		},
		HardwareNodes: []HardwareNode{
			{ID: "node-baremetal-01", Hostname: "bm-prod-01", IP: "10.0.0.10", SubnetID: "subnet-prod", Kind: NodeKindPhysical},
			{ID: "node-k8s-worker-01", Hostname: "k8s-worker-01", IP: "10.0.0.11", SubnetID: "subnet-prod", Kind: NodeKindK8sNode},
		},
		VirtualMachines: []VirtualMachine{
			{ID: "vm-app-01", Hostname: "vm-app-01", IP: "10.0.0.21", SubnetID: "subnet-prod", HostNodeID: "node-baremetal-01"},
		},
		StorageServers: []StorageServer{
			{ID: "storage-nas-01", Hostname: "nas-01", IP: "10.0.1.30", SubnetID: "subnet-mgmt"},
		},
		NetworkSwitches: []NetworkSwitch{
			{ID: "switch-core-01", Hostname: "sw-core-01", ManagementIP: "10.0.1.40", SubnetID: "subnet-mgmt"},
		},
		KubernetesClusters: []KubernetesCluster{
			{ID: "cluster-prod-01", Name: "prod-cluster", SubnetID: "subnet-prod", NodeIDs: []string{"node-k8s-worker-01"}},
		},
		SoftwareSystems: []SoftwareSystem{
			{ID: "sys-payments", Name: "payments-api", Version: "2.4.1"},
			{ID: "sys-observability", Name: "observability-stack", Version: "1.7.0"},
		},
		DeploymentInstances: []DeploymentInstance{
			{
				ID:          "deploy-payments-vm",
				SystemID:    "sys-payments",
				Target:      VMTarget{VMID: "vm-app-01"},
				ComponentID: "payments-service",
			},
			{
				ID:          "deploy-observability-ns",
				SystemID:    "sys-observability",
				Target:      NamespaceTarget{ClusterID: "cluster-prod-01", Namespace: "monitoring"},
				ComponentID: "prometheus",
			},
		},
	}
}
