package ingest

import (
	"fmt"

	"github.com/depmap-project/depmap/internal/domain"
)

// K8sInventory is a partial export of Kubernetes clusters with their
// namespaces and the workloads scheduled into them.
type K8sInventory struct {
	Clusters []K8sClusterRecord `json:"clusters" yaml:"clusters"`
}

type K8sClusterRecord struct {
	ID         string               `json:"id" yaml:"id"`
	Name       string               `json:"name" yaml:"name"`
	SubnetID   string               `json:"subnet_id" yaml:"subnet_id"`
	NodeIDs    []string             `json:"node_ids" yaml:"node_ids"`
	Namespaces []K8sNamespaceRecord `json:"namespaces,omitempty" yaml:"namespaces,omitempty"`
}

type K8sNamespaceRecord struct {
	Name      string              `json:"name" yaml:"name"`
	Workloads []K8sWorkloadRecord `json:"workloads,omitempty" yaml:"workloads,omitempty"`
}

type K8sWorkloadRecord struct {
	SystemID     string `json:"system_id" yaml:"system_id"`
	SystemName   string `json:"system_name,omitempty" yaml:"system_name,omitempty"`
	Version      string `json:"version,omitempty" yaml:"version,omitempty"`
	DeploymentID string `json:"deployment_id,omitempty" yaml:"deployment_id,omitempty"`
	ComponentID  string `json:"component_id,omitempty" yaml:"component_id,omitempty"`
}

// K8sImport is the schema fragment produced from a cluster inventory.
type K8sImport struct {
	Clusters    []domain.KubernetesCluster
	Systems     []domain.SoftwareSystem
	Deployments []domain.DeploymentInstance
}

// ImportK8sInventory turns a cluster inventory into clusters, software
// systems, and K8S_NAMESPACE deployment instances. Workloads without an
// explicit deployment id get `<cluster>:<namespace>:<system>`. Clusters and
// node placements with unknown references are dropped with an ERROR
// diagnostic.
func ImportK8sInventory(inventory *K8sInventory, knownNodeIDs, knownSubnetIDs map[string]struct{}) (*K8sImport, *Diagnostics, error) {
	diags := NewDiagnostics()
	result := &K8sImport{}
	seenSystems := make(map[string]struct{})

	for _, clusterRecord := range inventory.Clusters {
		if _, ok := knownSubnetIDs[clusterRecord.SubnetID]; !ok {
			diags.Add("missing_reference", "Cluster references unknown subnet.", LevelError, map[string]string{
				"entity":     "kubernetes_cluster",
				"entity_id":  clusterRecord.ID,
				"field":      "subnet_id",
				"missing_id": clusterRecord.SubnetID,
			})
			continue
		}

		nodeIDs := make([]string, 0, len(clusterRecord.NodeIDs))
		for _, nodeID := range clusterRecord.NodeIDs {
			if _, ok := knownNodeIDs[nodeID]; !ok {
				diags.Add("missing_reference", "Cluster node placement references unknown hardware node.", LevelError, map[string]string{
					"entity":     "kubernetes_cluster",
					"entity_id":  clusterRecord.ID,
					"field":      "node_ids",
					"missing_id": nodeID,
				})
				continue
			}
			nodeIDs = append(nodeIDs, nodeID)
		}

		cluster, err := domain.NewKubernetesCluster(clusterRecord.ID, clusterRecord.Name, clusterRecord.SubnetID, nodeIDs)
		if err != nil {
			return nil, diags, err
		}
		result.Clusters = append(result.Clusters, cluster)

		for _, namespaceRecord := range clusterRecord.Namespaces {
			for _, workload := range namespaceRecord.Workloads {
				if _, ok := seenSystems[workload.SystemID]; !ok {
					name := workload.SystemName
					if name == "" {
						name = workload.SystemID
					}
					system, err := domain.NewSoftwareSystem(workload.SystemID, name, workload.Version)
					if err != nil {
						return nil, diags, err
					}
					result.Systems = append(result.Systems, system)
					seenSystems[workload.SystemID] = struct{}{}
				}

				deploymentID := workload.DeploymentID
				if deploymentID == "" {
					deploymentID = fmt.Sprintf("%s:%s:%s", cluster.ID, namespaceRecord.Name, workload.SystemID)
				}
				target, err := domain.NewNamespaceTarget(cluster.ID, namespaceRecord.Name)
				if err != nil {
					return nil, diags, err
				}
				instance, err := domain.NewDeploymentInstance(deploymentID, workload.SystemID, target, workload.ComponentID, "")
				if err != nil {
					return nil, diags, err
				}
				result.Deployments = append(result.Deployments, instance)
			}
		}
	}

	return result, diags, nil
}
