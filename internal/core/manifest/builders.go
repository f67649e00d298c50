package manifest

import (
	"sort"
	"strconv"
	"strings"

	appsv1 "k8s.io/api/apps/v1"
	autoscalingv2 "k8s.io/api/autoscaling/v2"
	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"

	"github.com/stackform/stackform/internal/core/compose"
	"github.com/stackform/stackform/internal/core/policy"
)

// ptr returns a pointer to v, for the many optional scalar fields in
// the Kubernetes API types.
func ptr[T any](v T) *T {
	return &v
}

// =============================================================================
// Workload Builders
// =============================================================================

// buildPodTemplate assembles the pod template shared by Deployment and
// StatefulSet variants.
func buildPodTemplate(svc *compose.ServiceSpec, pol *policy.GenerationPolicy, id Identity, secretName string) corev1.PodTemplateSpec {
	container := corev1.Container{
		Name:  svc.ID,
		Image: svc.Image.Raw,
	}
	if len(svc.Command) > 0 {
		container.Command = svc.Command
	}

	for _, p := range svc.Ports {
		container.Ports = append(container.Ports, corev1.ContainerPort{
			ContainerPort: int32(p.Target),
			Protocol:      protocolOf(p.Protocol),
		})
	}

	// Environment: plain entries inline, sensitive entries by secret
	// key reference only. Input order is already sorted by key.
	for _, env := range svc.Environment {
		if env.Sensitive {
			container.Env = append(container.Env, corev1.EnvVar{
				Name: env.Key,
				ValueFrom: &corev1.EnvVarSource{
					SecretKeyRef: &corev1.SecretKeySelector{
						LocalObjectReference: corev1.LocalObjectReference{Name: secretName},
						Key:                  env.Key,
					},
				},
			})
		} else {
			container.Env = append(container.Env, corev1.EnvVar{Name: env.Key, Value: env.Value})
		}
	}

	container.Resources = resourceRequirements(pol.Resources)
	container.LivenessProbe = buildProbe(pol.Liveness)
	container.ReadinessProbe = buildProbe(pol.Readiness)
	container.SecurityContext = containerSecurityContext(pol.SecurityContext)

	// A named volume mounted at several targets is one pod volume with
	// one mount per target.
	var volumes []corev1.Volume
	seenVolumes := make(map[string]bool)
	for _, v := range svc.Volumes {
		volName, volume := buildVolume(id, v)
		if !seenVolumes[volName] {
			seenVolumes[volName] = true
			volumes = append(volumes, volume)
		}
		container.VolumeMounts = append(container.VolumeMounts, corev1.VolumeMount{
			Name:      volName,
			MountPath: v.Target,
			ReadOnly:  v.ReadOnly,
		})
	}

	template := corev1.PodTemplateSpec{
		ObjectMeta: metav1.ObjectMeta{Labels: id.Labels()},
		Spec: corev1.PodSpec{
			Containers: []corev1.Container{container},
			Volumes:    volumes,
		},
	}
	if pol.SecurityContext != nil && pol.SecurityContext.RunAsNonRoot {
		template.Spec.SecurityContext = &corev1.PodSecurityContext{RunAsNonRoot: ptr(true)}
	}
	return template
}

// BuildDeployment builds the stateless workload variant.
func BuildDeployment(svc *compose.ServiceSpec, pol *policy.GenerationPolicy, id Identity, namespace, secretName string) *appsv1.Deployment {
	return &appsv1.Deployment{
		TypeMeta: metav1.TypeMeta{APIVersion: "apps/v1", Kind: "Deployment"},
		ObjectMeta: metav1.ObjectMeta{
			Name:      id.Name(suffixDeployment),
			Namespace: namespace,
			Labels:    id.Labels(),
		},
		Spec: appsv1.DeploymentSpec{
			Replicas: ptr(pol.Replicas),
			Selector: &metav1.LabelSelector{MatchLabels: id.Selector()},
			Template: buildPodTemplate(svc, pol, id, secretName),
		},
	}
}

// BuildStatefulSet builds the stateful workload variant. Claims are
// standalone PVC resources referenced by name, not claim templates, so
// storage survives workload replacement.
func BuildStatefulSet(svc *compose.ServiceSpec, pol *policy.GenerationPolicy, id Identity, namespace, secretName string) *appsv1.StatefulSet {
	return &appsv1.StatefulSet{
		TypeMeta: metav1.TypeMeta{APIVersion: "apps/v1", Kind: "StatefulSet"},
		ObjectMeta: metav1.ObjectMeta{
			Name:      id.Name(suffixStatefulSet),
			Namespace: namespace,
			Labels:    id.Labels(),
		},
		Spec: appsv1.StatefulSetSpec{
			Replicas:    ptr(pol.Replicas),
			ServiceName: id.Name(suffixService),
			Selector:    &metav1.LabelSelector{MatchLabels: id.Selector()},
			Template:    buildPodTemplate(svc, pol, id, secretName),
		},
	}
}

func protocolOf(proto string) corev1.Protocol {
	if strings.EqualFold(proto, "udp") {
		return corev1.ProtocolUDP
	}
	return corev1.ProtocolTCP
}

func resourceRequirements(res policy.Resources) corev1.ResourceRequirements {
	out := corev1.ResourceRequirements{
		Requests: corev1.ResourceList{},
		Limits:   corev1.ResourceList{},
	}
	setQuantity(out.Requests, corev1.ResourceCPU, res.CPURequest)
	setQuantity(out.Requests, corev1.ResourceMemory, res.MemoryRequest)
	setQuantity(out.Limits, corev1.ResourceCPU, res.CPULimit)
	setQuantity(out.Limits, corev1.ResourceMemory, res.MemoryLimit)
	return out
}

// setQuantity skips empty or unparsable quantity strings; policy
// resolution has already validated the table values, and declared
// hints pass through the compose parser's normalization.
func setQuantity(list corev1.ResourceList, name corev1.ResourceName, q string) {
	if q == "" {
		return
	}
	parsed, err := resource.ParseQuantity(q)
	if err != nil {
		return
	}
	list[name] = parsed
}

func buildProbe(p *policy.Probe) *corev1.Probe {
	if p == nil {
		return nil
	}
	probe := &corev1.Probe{
		InitialDelaySeconds: p.InitialDelaySecs,
		PeriodSeconds:       p.PeriodSecs,
		FailureThreshold:    p.FailureThreshold,
	}
	switch p.Kind {
	case policy.ProbeHTTPGet:
		probe.HTTPGet = &corev1.HTTPGetAction{
			Path: p.Path,
			Port: intstr.FromInt32(int32(p.Port)),
		}
	case policy.ProbeTCPSocket:
		probe.TCPSocket = &corev1.TCPSocketAction{
			Port: intstr.FromInt32(int32(p.Port)),
		}
	case policy.ProbeExec:
		probe.Exec = &corev1.ExecAction{Command: p.Command}
	}
	return probe
}

func containerSecurityContext(sc *policy.SecurityContext) *corev1.SecurityContext {
	if sc == nil {
		return nil
	}
	out := &corev1.SecurityContext{
		RunAsNonRoot:             ptr(sc.RunAsNonRoot),
		AllowPrivilegeEscalation: ptr(sc.AllowPrivilegeEscalation),
	}
	if sc.ReadOnlyRootFilesystem {
		out.ReadOnlyRootFilesystem = ptr(true)
	}
	if sc.DropAllCapabilities {
		out.Capabilities = &corev1.Capabilities{Drop: []corev1.Capability{"ALL"}}
	}
	if sc.SeccompRuntimeDefault {
		out.SeccompProfile = &corev1.SeccompProfile{Type: corev1.SeccompProfileTypeRuntimeDefault}
	}
	return out
}

// buildVolume maps a compose mount to a pod volume. Named volumes
// reference their generated claim, bind mounts become host paths and
// tmpfs mounts memory-backed scratch space.
func buildVolume(id Identity, v compose.VolumeMount) (string, corev1.Volume) {
	name := volumeRefName(v)
	switch v.Type {
	case compose.VolumeMountTypeVolume:
		return name, corev1.Volume{
			Name: name,
			VolumeSource: corev1.VolumeSource{
				PersistentVolumeClaim: &corev1.PersistentVolumeClaimVolumeSource{
					ClaimName: id.VolumeName(v.Source),
					ReadOnly:  v.ReadOnly,
				},
			},
		}
	case compose.VolumeMountTypeTmpfs:
		return name, corev1.Volume{
			Name: name,
			VolumeSource: corev1.VolumeSource{
				EmptyDir: &corev1.EmptyDirVolumeSource{Medium: corev1.StorageMediumMemory},
			},
		}
	default:
		return name, corev1.Volume{
			Name: name,
			VolumeSource: corev1.VolumeSource{
				HostPath: &corev1.HostPathVolumeSource{Path: v.Source},
			},
		}
	}
}

// volumeRefName derives a DNS-safe in-pod volume name from the mount.
func volumeRefName(v compose.VolumeMount) string {
	source := v.Source
	if v.Type == compose.VolumeMountTypeVolume {
		return source
	}
	source = strings.Trim(source, "./~")
	source = strings.ReplaceAll(source, "/", "-")
	source = strings.ReplaceAll(source, ".", "-")
	if source == "" {
		source = "mount"
	}
	return strings.ToLower(source)
}

// =============================================================================
// Service Builder
// =============================================================================

// BuildService exposes the declared ports inside the cluster. Port
// numbers follow the container port; the published host port only
// influences external routing.
func BuildService(svc *compose.ServiceSpec, id Identity, namespace string) *corev1.Service {
	out := &corev1.Service{
		TypeMeta: metav1.TypeMeta{APIVersion: "v1", Kind: "Service"},
		ObjectMeta: metav1.ObjectMeta{
			Name:      id.Name(suffixService),
			Namespace: namespace,
			Labels:    id.Labels(),
		},
		Spec: corev1.ServiceSpec{
			Type:     corev1.ServiceTypeClusterIP,
			Selector: id.Selector(),
		},
	}
	for _, p := range svc.Ports {
		out.Spec.Ports = append(out.Spec.Ports, corev1.ServicePort{
			Name:       portName(p),
			Port:       int32(p.Target),
			TargetPort: intstr.FromInt32(int32(p.Target)),
			Protocol:   protocolOf(p.Protocol),
		})
	}
	return out
}

func portName(p compose.Port) string {
	proto := strings.ToLower(p.Protocol)
	if proto == "" {
		proto = "tcp"
	}
	return proto + "-" + strconv.FormatUint(uint64(p.Target), 10)
}

// =============================================================================
// Ingress Builder
// =============================================================================

// BuildIngress routes external traffic to the service's primary port.
func BuildIngress(svc *compose.ServiceSpec, id Identity, namespace, domain string) *networkingv1.Ingress {
	host := svc.ID + "." + domain
	pathType := networkingv1.PathTypePrefix
	return &networkingv1.Ingress{
		TypeMeta: metav1.TypeMeta{APIVersion: "networking.k8s.io/v1", Kind: "Ingress"},
		ObjectMeta: metav1.ObjectMeta{
			Name:      id.Name(suffixIngress),
			Namespace: namespace,
			Labels:    id.Labels(),
			Annotations: map[string]string{
				"kubernetes.io/ingress.class":    "nginx",
				"cert-manager.io/cluster-issuer": "letsencrypt-prod",
			},
		},
		Spec: networkingv1.IngressSpec{
			TLS: []networkingv1.IngressTLS{{
				Hosts:      []string{host},
				SecretName: id.Name(suffixTLS),
			}},
			Rules: []networkingv1.IngressRule{{
				Host: host,
				IngressRuleValue: networkingv1.IngressRuleValue{
					HTTP: &networkingv1.HTTPIngressRuleValue{
						Paths: []networkingv1.HTTPIngressPath{{
							Path:     "/",
							PathType: &pathType,
							Backend: networkingv1.IngressBackend{
								Service: &networkingv1.IngressServiceBackend{
									Name: id.Name(suffixService),
									Port: networkingv1.ServiceBackendPort{Number: int32(svc.PrimaryPort())},
								},
							},
						}},
					},
				},
			}},
		},
	}
}

// =============================================================================
// Autoscaler Builder
// =============================================================================

// BuildHPA targets the stateless workload with cpu and memory
// utilization metrics.
func BuildHPA(pol *policy.GenerationPolicy, id Identity, namespace string) *autoscalingv2.HorizontalPodAutoscaler {
	return &autoscalingv2.HorizontalPodAutoscaler{
		TypeMeta: metav1.TypeMeta{APIVersion: "autoscaling/v2", Kind: "HorizontalPodAutoscaler"},
		ObjectMeta: metav1.ObjectMeta{
			Name:      id.Name(suffixHPA),
			Namespace: namespace,
			Labels:    id.Labels(),
		},
		Spec: autoscalingv2.HorizontalPodAutoscalerSpec{
			ScaleTargetRef: autoscalingv2.CrossVersionObjectReference{
				APIVersion: "apps/v1",
				Kind:       "Deployment",
				Name:       id.Name(suffixDeployment),
			},
			MinReplicas: ptr(pol.Autoscaling.MinReplicas),
			MaxReplicas: pol.Autoscaling.MaxReplicas,
			Metrics: []autoscalingv2.MetricSpec{
				utilizationMetric(corev1.ResourceCPU, pol.Autoscaling.TargetCPUPercent),
				utilizationMetric(corev1.ResourceMemory, pol.Autoscaling.TargetMemPercent),
			},
		},
	}
}

func utilizationMetric(name corev1.ResourceName, percent int32) autoscalingv2.MetricSpec {
	return autoscalingv2.MetricSpec{
		Type: autoscalingv2.ResourceMetricSourceType,
		Resource: &autoscalingv2.ResourceMetricSource{
			Name: name,
			Target: autoscalingv2.MetricTarget{
				Type:               autoscalingv2.UtilizationMetricType,
				AverageUtilization: ptr(percent),
			},
		},
	}
}

// =============================================================================
// Storage Builder
// =============================================================================

// BuildPVC creates the claim for one named volume.
func BuildPVC(volume string, sizeGi int, id Identity, namespace string) *corev1.PersistentVolumeClaim {
	size := resource.MustParse(strconv.Itoa(sizeGi) + "Gi")
	return &corev1.PersistentVolumeClaim{
		TypeMeta: metav1.TypeMeta{APIVersion: "v1", Kind: "PersistentVolumeClaim"},
		ObjectMeta: metav1.ObjectMeta{
			Name:      id.VolumeName(volume),
			Namespace: namespace,
			Labels:    id.Labels(),
		},
		Spec: corev1.PersistentVolumeClaimSpec{
			AccessModes: []corev1.PersistentVolumeAccessMode{corev1.ReadWriteOnce},
			Resources: corev1.VolumeResourceRequirements{
				Requests: corev1.ResourceList{corev1.ResourceStorage: size},
			},
		},
	}
}

// =============================================================================
// Secret Builder
// =============================================================================

// BuildSecret collects every sensitive environment entry. Returns nil
// when the service has none.
func BuildSecret(svc *compose.ServiceSpec, id Identity, namespace string) *corev1.Secret {
	data := make(map[string][]byte)
	for _, env := range svc.Environment {
		if env.Sensitive {
			data[env.Key] = []byte(env.Value)
		}
	}
	if len(data) == 0 {
		return nil
	}
	return &corev1.Secret{
		TypeMeta: metav1.TypeMeta{APIVersion: "v1", Kind: "Secret"},
		ObjectMeta: metav1.ObjectMeta{
			Name:      id.Name(suffixSecret),
			Namespace: namespace,
			Labels:    id.Labels(),
		},
		Type: corev1.SecretTypeOpaque,
		Data: data,
	}
}

// =============================================================================
// Network Policy Builder
// =============================================================================

// BuildNetworkPolicy restricts ingress to the service's declared
// dependents plus its published ports. Dependents come from the
// reversed dependency graph and must be in stable order.
func BuildNetworkPolicy(svc *compose.ServiceSpec, dependents []string, id Identity, namespace string) *networkingv1.NetworkPolicy {
	spec := networkingv1.NetworkPolicySpec{
		PodSelector: metav1.LabelSelector{MatchLabels: id.Selector()},
		PolicyTypes: []networkingv1.PolicyType{networkingv1.PolicyTypeIngress},
	}

	sorted := append([]string(nil), dependents...)
	sort.Strings(sorted)
	var peers []networkingv1.NetworkPolicyPeer
	for _, dep := range sorted {
		peers = append(peers, networkingv1.NetworkPolicyPeer{
			PodSelector: &metav1.LabelSelector{MatchLabels: map[string]string{"app": dep}},
		})
	}
	if len(peers) > 0 {
		spec.Ingress = append(spec.Ingress, networkingv1.NetworkPolicyIngressRule{From: peers})
	}

	// Published ports stay reachable from anywhere in the namespace.
	var openPorts []networkingv1.NetworkPolicyPort
	for _, p := range svc.Ports {
		if p.Published != 0 {
			port := intstr.FromInt32(int32(p.Target))
			proto := protocolOf(p.Protocol)
			openPorts = append(openPorts, networkingv1.NetworkPolicyPort{
				Port:     &port,
				Protocol: &proto,
			})
		}
	}
	if len(openPorts) > 0 {
		spec.Ingress = append(spec.Ingress, networkingv1.NetworkPolicyIngressRule{Ports: openPorts})
	}

	return &networkingv1.NetworkPolicy{
		TypeMeta: metav1.TypeMeta{APIVersion: "networking.k8s.io/v1", Kind: "NetworkPolicy"},
		ObjectMeta: metav1.ObjectMeta{
			Name:      id.Name(suffixNetworkPolicy),
			Namespace: namespace,
			Labels:    id.Labels(),
		},
		Spec: spec,
	}
}
