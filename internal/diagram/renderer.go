// Package diagram turns a resolved topology into PlantUML deployment-diagram
// text. Rendering is deterministic: every grouping is emitted in ascending id
// order and entity aliases are content-derived, so the same topology always
// produces byte-identical output. Optional metadata (dependency edges,
// network links) degrades silently when an endpoint cannot be resolved;
// image generation is delegated to an injected renderer and is best-effort.
package diagram

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/depmap-project/depmap/internal/domain"
	"github.com/depmap-project/depmap/internal/topology"
)

type nodeKey struct {
	typ string
	id  string
}

// RenderPUML emits the PlantUML source for one system's resolved topology.
// The output is well-formed even for an empty topology.
func RenderPUML(systemID string, resolved *topology.Resolved) string {
	lines := []string{"@startuml", "skinparam shadowing false", "left to right direction"}

	title := resolved.System.Name
	if title == "" {
		title = systemID
	}
	if resolved.System.Version != "" {
		title = title + " v" + resolved.System.Version
	}
	lines = append(lines, "title "+EscapeLabel(title))

	subnets := sortedByID(resolved.Subnets, func(s domain.Subnet) string { return s.ID })
	hardware := sortedByID(resolved.HardwareNodes, func(n domain.HardwareNode) string { return n.ID })
	vms := sortedByID(resolved.VirtualMachines, func(v domain.VirtualMachine) string { return v.ID })
	clusters := sortedByID(resolved.KubernetesClusters, func(c domain.KubernetesCluster) string { return c.ID })
	deployments := sortedByID(resolved.Deployments, func(d topology.Deployment) string { return d.ID })

	hardwareBySubnet := make(map[string][]domain.HardwareNode)
	for _, node := range hardware {
		hardwareBySubnet[node.SubnetID] = append(hardwareBySubnet[node.SubnetID], node)
	}
	vmsBySubnet := make(map[string][]domain.VirtualMachine)
	for _, vm := range vms {
		vmsBySubnet[vm.SubnetID] = append(vmsBySubnet[vm.SubnetID], vm)
	}
	clustersBySubnet := make(map[string][]domain.KubernetesCluster)
	clustersByID := make(map[string]domain.KubernetesCluster, len(clusters))
	for _, cluster := range clusters {
		clustersBySubnet[cluster.SubnetID] = append(clustersBySubnet[cluster.SubnetID], cluster)
		clustersByID[cluster.ID] = cluster
	}

	aliases := make(map[nodeKey]string)
	artifactAliases := make(map[string]string)

	for _, subnet := range subnets {
		subnetAlias := alias("subnet", subnet.ID)
		name := subnet.Name
		if name == "" {
			name = subnet.ID
		}
		lines = append(lines, fmt.Sprintf("package \"%s\" as %s {", EscapeLabel(name+"\n"+subnet.CIDR), subnetAlias))

		for _, node := range hardwareBySubnet[subnet.ID] {
			nodeAlias := alias("hw", node.ID)
			aliases[nodeKey{"hardware", node.ID}] = nodeAlias
			lines = append(lines, fmt.Sprintf("  node \"%s\" as %s", EscapeLabel(hostLabel(node.Hostname, node.ID, node.IP)), nodeAlias))
		}
		for _, vm := range vmsBySubnet[subnet.ID] {
			vmAlias := alias("vm", vm.ID)
			aliases[nodeKey{"vm", vm.ID}] = vmAlias
			lines = append(lines, fmt.Sprintf("  node \"%s\" as %s", EscapeLabel(hostLabel(vm.Hostname, vm.ID, vm.IP)), vmAlias))
		}
		for _, cluster := range clustersBySubnet[subnet.ID] {
			clusterAlias := alias("k8s", cluster.ID)
			aliases[nodeKey{"cluster", cluster.ID}] = clusterAlias
			clusterName := cluster.Name
			if clusterName == "" {
				clusterName = cluster.ID
			}
			lines = append(lines, fmt.Sprintf("  node \"%s\" as %s {", EscapeLabel(clusterName), clusterAlias))

			for _, namespace := range clusterNamespaces(deployments, cluster.ID) {
				key := cluster.ID + ":" + namespace
				namespaceAlias := alias("ns", key)
				aliases[nodeKey{"namespace", key}] = namespaceAlias
				lines = append(lines, fmt.Sprintf("    node \"%s\" as %s", EscapeLabel(namespace), namespaceAlias))
			}

			lines = append(lines, "  }")
		}

		lines = append(lines, "}")
	}

	for _, d := range deployments {
		artifactKey := d.ComponentID
		if artifactKey == "" {
			artifactKey = d.ID
		}
		artifactName := d.ComponentName
		if artifactName == "" {
			artifactName = artifactKey
		}
		artifactAlias, ok := artifactAliases[artifactKey]
		if !ok {
			artifactAlias = alias("artifact", artifactKey)
			artifactAliases[artifactKey] = artifactAlias
			lines = append(lines, fmt.Sprintf("artifact \"%s\" as %s", EscapeLabel(artifactName), artifactAlias))
		}

		var targetAlias string
		switch d.TargetKind {
		case "HOST":
			targetAlias = aliases[nodeKey{"hardware", d.TargetNodeID}]
		case "VM":
			targetAlias = aliases[nodeKey{"vm", d.TargetNodeID}]
		case "CLUSTER":
			targetAlias = aliases[nodeKey{"cluster", d.TargetClusterID}]
		case "K8S_NAMESPACE":
			key := d.TargetClusterID + ":" + d.Namespace
			targetAlias = aliases[nodeKey{"namespace", key}]
			if targetAlias == "" {
				// The cluster was not drawn in any subnet package (dangling
				// reference or missing subnet). Fall back to free-standing
				// cluster and namespace nodes so the deployment still shows.
				clusterAlias := aliases[nodeKey{"cluster", d.TargetClusterID}]
				if clusterAlias == "" {
					clusterAlias = alias("k8s", d.TargetClusterID)
					aliases[nodeKey{"cluster", d.TargetClusterID}] = clusterAlias
					clusterName := d.TargetClusterID
					if cluster, ok := clustersByID[d.TargetClusterID]; ok && cluster.Name != "" {
						clusterName = cluster.Name
					}
					lines = append(lines, fmt.Sprintf("node \"%s\" as %s", EscapeLabel(clusterName), clusterAlias))
				}
				namespaceLabel := d.Namespace
				if namespaceLabel == "" {
					namespaceLabel = "default"
				}
				targetAlias = alias("ns", key)
				aliases[nodeKey{"namespace", key}] = targetAlias
				lines = append(lines, fmt.Sprintf("node \"%s\" as %s", EscapeLabel(namespaceLabel), targetAlias))
				lines = append(lines, fmt.Sprintf("%s --> %s : contains", clusterAlias, targetAlias))
			}
		}

		if targetAlias != "" {
			lines = append(lines, fmt.Sprintf("%s --> %s : deployed on", artifactAlias, targetAlias))
		}
	}

	for _, vm := range vms {
		vmAlias := aliases[nodeKey{"vm", vm.ID}]
		hostAlias := aliases[nodeKey{"hardware", vm.HostNodeID}]
		if vmAlias != "" && hostAlias != "" {
			lines = append(lines, fmt.Sprintf("%s --> %s : hosted on", vmAlias, hostAlias))
		}
	}

	clusterIDs := make([]string, 0, len(resolved.Clusters))
	for clusterID := range resolved.Clusters {
		clusterIDs = append(clusterIDs, clusterID)
	}
	sort.Strings(clusterIDs)
	for _, clusterID := range clusterIDs {
		clusterAlias := aliases[nodeKey{"cluster", clusterID}]
		if clusterAlias == "" {
			continue
		}
		members := sortedByID(resolved.Clusters[clusterID], func(n topology.ClusterNode) string { return n.NodeID })
		for _, member := range members {
			if hostAlias := aliases[nodeKey{"hardware", member.NodeID}]; hostAlias != "" {
				lines = append(lines, fmt.Sprintf("%s --> %s : schedules on", clusterAlias, hostAlias))
			}
		}
	}

	links := sortedByID(resolved.NetworkLinks, func(l topology.NetworkLink) string { return l.ID })
	for _, link := range links {
		sourceAlias := endpointAlias(aliases, link.SourceType, link.SourceID)
		targetAlias := endpointAlias(aliases, link.TargetType, link.TargetID)
		if sourceAlias == "" || targetAlias == "" {
			continue
		}
		label := link.Label
		if label == "" {
			label = "network"
		}
		lines = append(lines, fmt.Sprintf("%s --> %s : %s", sourceAlias, targetAlias, EscapeLabel(label)))
	}

	dependencies := sortedByID(resolved.Dependencies, func(d topology.Dependency) string { return d.ID })
	for _, dependency := range dependencies {
		sourceAlias := artifactAliases[dependency.FromComponentID]
		targetAlias := artifactAliases[dependency.ToComponentID]
		if sourceAlias == "" || targetAlias == "" {
			continue
		}
		label := dependency.Label
		if label == "" {
			label = "depends on"
		}
		lines = append(lines, fmt.Sprintf("%s --> %s : %s", sourceAlias, targetAlias, EscapeLabel(label)))
	}

	lines = append(lines, "@enduml")
	return strings.Join(lines, "\n") + "\n"
}

// clusterNamespaces collects the distinct non-empty namespaces targeted on a
// cluster, sorted, so namespace pseudo-nodes render deterministically.
func clusterNamespaces(deployments []topology.Deployment, clusterID string) []string {
	seen := make(map[string]struct{})
	for _, d := range deployments {
		if d.TargetKind != "K8S_NAMESPACE" || d.TargetClusterID != clusterID || d.Namespace == "" {
			continue
		}
		seen[d.Namespace] = struct{}{}
	}
	namespaces := make([]string, 0, len(seen))
	for namespace := range seen {
		namespaces = append(namespaces, namespace)
	}
	sort.Strings(namespaces)
	return namespaces
}

// endpointAlias resolves a network-link endpoint through the alias table.
// "host" is accepted as a synonym for hardware; unknown types resolve to "".
func endpointAlias(aliases map[nodeKey]string, endpointType, endpointID string) string {
	switch strings.ToLower(endpointType) {
	case "hardware", "host":
		return aliases[nodeKey{"hardware", endpointID}]
	case "vm":
		return aliases[nodeKey{"vm", endpointID}]
	case "cluster":
		return aliases[nodeKey{"cluster", endpointID}]
	case "namespace":
		return aliases[nodeKey{"namespace", endpointID}]
	}
	return ""
}

func hostLabel(hostname, id, ip string) string {
	if hostname == "" {
		hostname = id
	}
	return hostname + "\n" + ip
}

func sortedByID[T any](in []T, id func(T) string) []T {
	out := make([]T, len(in))
	copy(out, in)
	sort.Slice(out, func(i, j int) bool { return id(out[i]) < id(out[j]) })
	return out
}

// ImageRenderer converts PlantUML text into image bytes. Implementations
// return (nil, nil) when the rendering capability is unavailable.
type ImageRenderer interface {
	Render(ctx context.Context, puml string, format string) ([]byte, error)
}

// Result is the outcome of a render: PUML text always, an image path only
// when image delegation succeeded.
type Result struct {
	PUML      string
	ImagePath string
}

// ImageOptions configures optional image generation for RenderSystem.
type ImageOptions struct {
	Path     string
	Format   string
	Renderer ImageRenderer
}

// RenderSystem renders the PUML text and, when an image renderer is supplied,
// writes the rendered image to img.Path. A missing or failing renderer is not
// an error: the result simply carries no image path. Only filesystem failures
// while persisting a successfully rendered image are returned as errors.
func RenderSystem(ctx context.Context, systemID string, resolved *topology.Resolved, img ImageOptions) (*Result, error) {
	result := &Result{PUML: RenderPUML(systemID, resolved)}

	if img.Renderer == nil || img.Path == "" {
		return result, nil
	}

	format := img.Format
	if format == "" {
		format = "png"
	}
	data, err := img.Renderer.Render(ctx, result.PUML, format)
	if err != nil || len(data) == 0 {
		return result, nil
	}

	if dir := filepath.Dir(img.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return result, fmt.Errorf("create image directory: %w", err)
		}
	}
	if err := os.WriteFile(img.Path, data, 0o644); err != nil {
		return result, fmt.Errorf("write image: %w", err)
	}
	result.ImagePath = img.Path
	return result, nil
}
