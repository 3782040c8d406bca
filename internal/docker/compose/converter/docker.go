package converter

import (
	"sort"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/sirupsen/logrus"

	"github.com/Olympus-chain/autocompose/internal/docker/compose/types"
	"github.com/Olympus-chain/autocompose/internal/utils"
)

// ConvertDocker translates a Docker inspect response into a service
func (c *ServiceConverter) ConvertDocker(info container.InspectResponse, options ConvertOptions) (*ConvertServiceResult, error) {
	var id, name string
	var hostConfig *container.HostConfig
	if info.ContainerJSONBase != nil {
		id = info.ID
		name = info.Name
		hostConfig = info.HostConfig
	}

	image := ""
	if info.Config != nil {
		image = info.Config.Image
	}
	if image == "" && info.ContainerJSONBase != nil {
		image = info.Image
	}

	var missing []string
	if image == "" {
		missing = append(missing, "image")
	}
	if hostConfig == nil {
		missing = append(missing, "host config")
	}
	if info.NetworkSettings == nil {
		missing = append(missing, "network settings")
	}
	if len(missing) > 0 {
		return nil, &TranslationError{ContainerID: utils.ShortID(id), Missing: missing}
	}

	var names []string
	if name != "" {
		names = []string{name}
	}
	serviceName := utils.ServiceNameFromNames(names, options.FallbackName)

	c.logger.WithFields(logrus.Fields{
		"container_id": utils.ShortID(id),
		"service":      serviceName,
	}).Debug("Converting Docker container")

	service := &types.Service{
		Image:         image,
		ContainerName: serviceName,
	}
	result := &ConvertServiceResult{
		Name:    serviceName,
		Service: service,
	}

	c.convertDockerConfig(info.Config, id, options, service)
	service.Ports = nonEmpty(ConvertPortBindings(info.NetworkSettings.Ports))
	if service.Ports == nil {
		// stopped containers only report their requested bindings
		service.Ports = nonEmpty(ConvertPortBindings(hostConfig.PortBindings))
	}
	service.Volumes, result.Volumes = ConvertBinds(hostConfig.Binds)

	endpoints := dockerEndpoints(info)
	mode := string(hostConfig.NetworkMode)
	service.Networks, result.Networks = ExtractNetworks(mode, endpoints)
	if IsNetworkModeOverride(mode) {
		service.NetworkMode = mode
	}

	c.convertDockerHostConfig(hostConfig, service)

	return result, nil
}

// convertDockerConfig copies the container-level configuration
func (c *ServiceConverter) convertDockerConfig(cfg *container.Config, id string, options ConvertOptions, service *types.Service) {
	if cfg == nil {
		return
	}

	if cfg.Hostname != "" && cfg.Hostname != utils.ShortID(id) {
		service.Hostname = cfg.Hostname
	}
	service.Environment = ParseEnvironment(cfg.Env, options.IncludeSensitive)
	service.Labels = FilterSystemLabels(cfg.Labels)
	service.HealthCheck = convertDockerHealthCheck(cfg.Healthcheck)
	service.User = cfg.User
	service.WorkingDir = cfg.WorkingDir
	service.Entrypoint = nonEmpty(cfg.Entrypoint)
	service.Command = nonEmpty(cfg.Cmd)
	service.Tty = cfg.Tty
	service.StdinOpen = cfg.OpenStdin
}

// convertDockerHostConfig copies host-level settings
func (c *ServiceConverter) convertDockerHostConfig(hostConfig *container.HostConfig, service *types.Service) {
	service.DNS = nonEmpty(hostConfig.DNS)
	service.DNSSearch = nonEmpty(hostConfig.DNSSearch)
	service.ExtraHosts = nonEmpty(hostConfig.ExtraHosts)
	service.Restart = restartField(string(hostConfig.RestartPolicy.Name), hostConfig.RestartPolicy.MaximumRetryCount)
	service.CapAdd = nonEmpty(hostConfig.CapAdd)
	service.CapDrop = nonEmpty(hostConfig.CapDrop)
	service.SecurityOpt = nonEmpty(hostConfig.SecurityOpt)
	service.Deploy = ConvertDeploy(DeployInput{
		Memory:     hostConfig.Memory,
		CPUQuota:   hostConfig.CPUQuota,
		CPUPeriod:  hostConfig.CPUPeriod,
		NanoCPUs:   hostConfig.NanoCPUs,
		CpusetCpus: hostConfig.CpusetCpus,
	})
	service.Logging = convertLogging(hostConfig.LogConfig.Type, hostConfig.LogConfig.Config)
	service.Sysctls = copyMap(hostConfig.Sysctls)
	service.Privileged = hostConfig.Privileged
	if hostConfig.Init != nil {
		service.Init = *hostConfig.Init
	}

	for _, device := range hostConfig.Devices {
		service.Devices = append(service.Devices, FormatDevice(device.PathOnHost, device.PathInContainer, device.CgroupPermissions))
	}

	if len(hostConfig.Ulimits) > 0 {
		ulimits := make(map[string]types.Ulimit, len(hostConfig.Ulimits))
		for _, ulimit := range hostConfig.Ulimits {
			if ulimit == nil || ulimit.Name == "" {
				continue
			}
			ulimits[ulimit.Name] = types.Ulimit{Soft: ulimit.Soft, Hard: ulimit.Hard}
		}
		if len(ulimits) > 0 {
			service.Ulimits = ulimits
		}
	}
}

func convertDockerHealthCheck(hc *container.HealthConfig) *types.HealthCheck {
	if hc == nil || len(hc.Test) == 0 {
		return nil
	}
	return &types.HealthCheck{
		Test:        hc.Test,
		Interval:    durationField(int64(hc.Interval)),
		Timeout:     durationField(int64(hc.Timeout)),
		Retries:     hc.Retries,
		StartPeriod: durationField(int64(hc.StartPeriod)),
	}
}

func convertLogging(driver string, options map[string]string) *types.Logging {
	if driver == "" {
		return nil
	}
	return &types.Logging{
		Driver:  driver,
		Options: copyMap(options),
	}
}

func dockerEndpoints(info container.InspectResponse) []NetworkEndpoint {
	if info.NetworkSettings == nil || len(info.NetworkSettings.Networks) == 0 {
		return nil
	}
	endpoints := make([]NetworkEndpoint, 0, len(info.NetworkSettings.Networks))
	for name, settings := range info.NetworkSettings.Networks {
		endpoint := NetworkEndpoint{Name: name}
		if settings != nil {
			endpoint.IPAddress = strings.TrimSpace(settings.IPAddress)
			endpoint.IPv6Address = strings.TrimSpace(settings.GlobalIPv6Address)
			endpoint.Gateway = settings.Gateway
			endpoint.IPPrefixLen = settings.IPPrefixLen
		}
		endpoints = append(endpoints, endpoint)
	}
	sort.Slice(endpoints, func(i, j int) bool { return endpoints[i].Name < endpoints[j].Name })
	return endpoints
}
