package converter

import (
	"sort"

	"github.com/docker/go-connections/nat"
	"github.com/sirupsen/logrus"

	"github.com/Olympus-chain/autocompose/internal/docker/compose/types"
	"github.com/Olympus-chain/autocompose/internal/utils"
)

// podmanDefaultNetworkModes are the rootless networking stacks Podman picks
// when no network was requested
var podmanDefaultNetworkModes = map[string]bool{
	"slirp4netns": true,
	"pasta":       true,
}

// ConvertPodman translates a Podman inspect record into a service
func (c *ServiceConverter) ConvertPodman(info PodmanContainer, options ConvertOptions) (*ConvertServiceResult, error) {
	image := info.ImageName
	if image == "" && info.Config != nil {
		image = info.Config.Image
	}
	if image == "" {
		image = info.Image
	}

	var missing []string
	if image == "" {
		missing = append(missing, "image")
	}
	if info.HostConfig == nil {
		missing = append(missing, "host config")
	}
	if info.NetworkSettings == nil {
		missing = append(missing, "network settings")
	}
	if len(missing) > 0 {
		return nil, &TranslationError{ContainerID: utils.ShortID(info.ID), Missing: missing}
	}

	var names []string
	if info.Name != "" {
		names = []string{info.Name}
	}
	serviceName := utils.ServiceNameFromNames(names, options.FallbackName)

	c.logger.WithFields(logrus.Fields{
		"container_id": utils.ShortID(info.ID),
		"service":      serviceName,
	}).Debug("Converting Podman container")

	service := &types.Service{
		Image:         image,
		ContainerName: serviceName,
	}
	result := &ConvertServiceResult{
		Name:    serviceName,
		Service: service,
	}

	c.convertPodmanConfig(info.Config, info.ID, options, service)
	service.Ports = nonEmpty(ConvertPortBindings(podmanPortMap(info.NetworkSettings.Ports)))
	service.Volumes, result.Volumes = ConvertMounts(podmanMounts(info.Mounts))

	endpoints := podmanEndpoints(info.NetworkSettings.Networks)
	mode := info.HostConfig.NetworkMode
	if podmanDefaultNetworkModes[mode] {
		mode = ""
	}
	service.Networks, result.Networks = ExtractNetworks(mode, endpoints)
	if IsNetworkModeOverride(mode) {
		service.NetworkMode = mode
	} else {
		result.NetworkConfigs = NetworkConfigs(endpoints)
	}

	c.convertPodmanHostConfig(info.HostConfig, service)

	return result, nil
}

func (c *ServiceConverter) convertPodmanConfig(cfg *PodmanConfig, id string, options ConvertOptions, service *types.Service) {
	if cfg == nil {
		return
	}

	if cfg.Hostname != "" && cfg.Hostname != utils.ShortID(id) {
		service.Hostname = cfg.Hostname
	}
	service.Environment = ParseEnvironment(cfg.Env, options.IncludeSensitive)
	service.Labels = FilterSystemLabels(cfg.Labels)
	service.User = cfg.User
	service.WorkingDir = cfg.WorkingDir
	service.Entrypoint = nonEmpty(cfg.Entrypoint)
	service.Command = nonEmpty(cfg.Cmd)
	service.Tty = cfg.Tty
	service.StdinOpen = cfg.OpenStdin

	if hc := cfg.Healthcheck; hc != nil && len(hc.Test) > 0 {
		service.HealthCheck = &types.HealthCheck{
			Test:        hc.Test,
			Interval:    hc.Interval.String(),
			Timeout:     hc.Timeout.String(),
			Retries:     hc.Retries,
			StartPeriod: hc.StartPeriod.String(),
		}
	}
}

func (c *ServiceConverter) convertPodmanHostConfig(hostConfig *PodmanHostConfig, service *types.Service) {
	service.DNS = nonEmpty(hostConfig.DNS)
	service.DNSSearch = nonEmpty(hostConfig.DNSSearch)
	service.ExtraHosts = nonEmpty(hostConfig.ExtraHosts)
	service.Restart = restartField(hostConfig.RestartPolicy.Name, hostConfig.RestartPolicy.MaximumRetryCount)
	service.CapAdd = nonEmpty(hostConfig.CapAdd)
	service.CapDrop = nonEmpty(hostConfig.CapDrop)
	service.SecurityOpt = nonEmpty(hostConfig.SecurityOpt)
	service.Deploy = ConvertDeploy(DeployInput{
		Memory:     hostConfig.Memory,
		CPUQuota:   hostConfig.CPUQuota,
		CPUPeriod:  hostConfig.CPUPeriod,
		NanoCPUs:   hostConfig.NanoCpus,
		CpusetCpus: hostConfig.CpusetCpus,
	})
	if hostConfig.LogConfig != nil {
		service.Logging = convertLogging(hostConfig.LogConfig.Type, hostConfig.LogConfig.Config)
	}
	service.Sysctls = copyMap(hostConfig.Sysctls)
	service.Privileged = hostConfig.Privileged
	service.Init = hostConfig.Init

	for _, device := range hostConfig.Devices {
		if device.PathOnHost == "" {
			continue
		}
		service.Devices = append(service.Devices, FormatDevice(device.PathOnHost, device.PathInContainer, ""))
	}

	ulimits := make(map[string]types.Ulimit)
	for _, ulimit := range hostConfig.Ulimits {
		if ulimit.Name == "" || ulimit.Soft == nil || ulimit.Hard == nil {
			continue
		}
		ulimits[ulimit.Name] = types.Ulimit{Soft: *ulimit.Soft, Hard: *ulimit.Hard}
	}
	if len(ulimits) > 0 {
		service.Ulimits = ulimits
	}
}

func podmanPortMap(ports map[string][]PodmanPortBinding) nat.PortMap {
	if len(ports) == 0 {
		return nil
	}
	portMap := make(nat.PortMap, len(ports))
	for key, bindings := range ports {
		port := nat.Port(key)
		for _, binding := range bindings {
			portMap[port] = append(portMap[port], nat.PortBinding{HostIP: binding.HostIP, HostPort: binding.HostPort})
		}
	}
	return portMap
}

func podmanMounts(mounts []PodmanMount) []MountInput {
	inputs := make([]MountInput, 0, len(mounts))
	for _, mount := range mounts {
		inputs = append(inputs, MountInput{
			Type:        mount.Type,
			Name:        mount.Name,
			Source:      mount.Source,
			Destination: mount.Destination,
			ReadOnly:    mount.RW != nil && !*mount.RW,
		})
	}
	return inputs
}

func podmanEndpoints(networks map[string]*PodmanNetwork) []NetworkEndpoint {
	endpoints := make([]NetworkEndpoint, 0, len(networks))
	for name, settings := range networks {
		endpoint := NetworkEndpoint{Name: name}
		if settings != nil {
			endpoint.IPAddress = settings.IPAddress
			endpoint.IPv6Address = settings.GlobalIPv6Address
			endpoint.Gateway = settings.Gateway
			endpoint.IPPrefixLen = settings.IPPrefixLen
		}
		endpoints = append(endpoints, endpoint)
	}
	sort.Slice(endpoints, func(i, j int) bool { return endpoints[i].Name < endpoints[j].Name })
	return endpoints
}
