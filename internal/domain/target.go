package domain

import (
	"fmt"
	"sort"
	"strings"
)

// TargetKind is the discriminant naming which infrastructure shape a
// deployment lands on.
type TargetKind string

const (
	TargetKindHost      TargetKind = "HOST"
	TargetKindVM        TargetKind = "VM"
	TargetKindCluster   TargetKind = "CLUSTER"
	TargetKindNamespace TargetKind = "K8S_NAMESPACE"
)

// String returns the wire literal for the target kind
func (k TargetKind) String() string {
	return string(k)
}

// IsValid checks if the target kind is one of the four supported literals
func (k TargetKind) IsValid() bool {
	switch k {
	case TargetKindHost, TargetKindVM, TargetKindCluster, TargetKindNamespace:
		return true
	default:
		return false
	}
}

// SupportedTargetKinds returns the valid discriminant literals sorted
// alphabetically, for error messages.
func SupportedTargetKinds() []string {
	kinds := []string{
		string(TargetKindHost),
		string(TargetKindVM),
		string(TargetKindCluster),
		string(TargetKindNamespace),
	}
	sort.Strings(kinds)
	return kinds
}

// Target is a deployment target. The set of implementations is closed:
// exactly the four variants below exist, so a field combination that mixes
// kinds cannot be represented.
type Target interface {
	Kind() TargetKind
	sealed()
}

// HostTarget places a deployment directly on a hardware node.
type HostTarget struct {
	NodeID string
}

// VMTarget places a deployment on a virtual machine.
type VMTarget struct {
	VMID string
}

// ClusterTarget places a deployment on a Kubernetes cluster as a whole.
type ClusterTarget struct {
	ClusterID string
}

// NamespaceTarget places a deployment in one namespace of a cluster.
type NamespaceTarget struct {
	ClusterID string
	Namespace string
}

func (HostTarget) Kind() TargetKind      { return TargetKindHost }
func (VMTarget) Kind() TargetKind        { return TargetKindVM }
func (ClusterTarget) Kind() TargetKind   { return TargetKindCluster }
func (NamespaceTarget) Kind() TargetKind { return TargetKindNamespace }

func (HostTarget) sealed()      {}
func (VMTarget) sealed()        {}
func (ClusterTarget) sealed()   {}
func (NamespaceTarget) sealed() {}

// NewHostTarget builds a HOST target.
func NewHostTarget(nodeID string) (HostTarget, error) {
	if strings.TrimSpace(nodeID) == "" {
		return HostTarget{}, newError(ErrInvalidTargetShape, "target_node_id is required for HOST target")
	}
	return HostTarget{NodeID: nodeID}, nil
}

// NewVMTarget builds a VM target. The wire field carrying the VM id is
// target_node_id, shared with HOST.
func NewVMTarget(vmID string) (VMTarget, error) {
	if strings.TrimSpace(vmID) == "" {
		return VMTarget{}, newError(ErrInvalidTargetShape, "target_node_id is required for VM target")
	}
	return VMTarget{VMID: vmID}, nil
}

// NewClusterTarget builds a CLUSTER target.
func NewClusterTarget(clusterID string) (ClusterTarget, error) {
	if strings.TrimSpace(clusterID) == "" {
		return ClusterTarget{}, newError(ErrInvalidTargetShape, "target_cluster_id is required for CLUSTER target")
	}
	return ClusterTarget{ClusterID: clusterID}, nil
}

// NewNamespaceTarget builds a K8S_NAMESPACE target.
func NewNamespaceTarget(clusterID, namespace string) (NamespaceTarget, error) {
	if strings.TrimSpace(clusterID) == "" {
		return NamespaceTarget{}, newError(ErrInvalidTargetShape, "target_cluster_id is required for K8S_NAMESPACE target")
	}
	if strings.TrimSpace(namespace) == "" {
		return NamespaceTarget{}, newError(ErrInvalidTargetShape, "namespace is required for K8S_NAMESPACE target")
	}
	return NamespaceTarget{ClusterID: clusterID, Namespace: namespace}, nil
}

// DecodeTarget turns the flat wire fields of a deployment instance into the
// matching target variant, enforcing the exact shape for the kind: required
// fields present, forbidden fields empty. Error text names the wire fields.
func DecodeTarget(instanceID, kind, nodeID, clusterID, namespace string) (Target, error) {
	tk := TargetKind(kind)
	if kind == "" {
		return nil, newError(ErrInvalidTargetKind, fmt.Sprintf("deployment instance '%s' target_kind is required", instanceID))
	}
	if !tk.IsValid() {
		return nil, newError(ErrInvalidTargetKind, fmt.Sprintf(
			"deployment instance '%s' uses unsupported target_kind '%s'. Supported target kinds: %s",
			instanceID, kind, strings.Join(SupportedTargetKinds(), ", ")))
	}

	switch tk {
	case TargetKindHost, TargetKindVM:
		if nodeID == "" {
			return nil, shapeError(instanceID, "must include target_node_id", tk)
		}
		if clusterID != "" {
			return nil, shapeError(instanceID, "must not set target_cluster_id", tk)
		}
		if namespace != "" {
			return nil, shapeError(instanceID, "must not set namespace", tk)
		}
		if tk == TargetKindHost {
			return HostTarget{NodeID: nodeID}, nil
		}
		return VMTarget{VMID: nodeID}, nil
	case TargetKindCluster:
		if clusterID == "" {
			return nil, shapeError(instanceID, "must include target_cluster_id", tk)
		}
		if nodeID != "" {
			return nil, shapeError(instanceID, "must not set target_node_id", tk)
		}
		if namespace != "" {
			return nil, shapeError(instanceID, "must not set namespace", tk)
		}
		return ClusterTarget{ClusterID: clusterID}, nil
	default: // TargetKindNamespace
		if clusterID == "" {
			return nil, shapeError(instanceID, "must include target_cluster_id", tk)
		}
		if namespace == "" {
			return nil, shapeError(instanceID, "must include namespace", tk)
		}
		if nodeID != "" {
			return nil, shapeError(instanceID, "must not set target_node_id", tk)
		}
		return NamespaceTarget{ClusterID: clusterID, Namespace: namespace}, nil
	}
}

func shapeError(instanceID, clause string, kind TargetKind) error {
	return newError(ErrInvalidTargetShape, fmt.Sprintf("deployment instance '%s' %s for %s target", instanceID, clause, kind))
}

// TargetWire flattens a target back to its wire fields. The second return is
// the target_node_id column, the third target_cluster_id, the fourth
// namespace; unused fields are empty.
func TargetWire(t Target) (kind TargetKind, nodeID, clusterID, namespace string) {
	switch v := t.(type) {
	case HostTarget:
		return TargetKindHost, v.NodeID, "", ""
	case VMTarget:
		return TargetKindVM, v.VMID, "", ""
	case ClusterTarget:
		return TargetKindCluster, "", v.ClusterID, ""
	case NamespaceTarget:
		return TargetKindNamespace, "", v.ClusterID, v.Namespace
	default:
		return "", "", "", ""
	}
}
