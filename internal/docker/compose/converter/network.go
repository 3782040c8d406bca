package converter

import (
	"fmt"
	"net"
	"sort"
	"strings"

	"github.com/Olympus-chain/autocompose/internal/docker/compose/types"
)

const defaultBridgeNetwork = "bridge"

// NetworkEndpoint is the engine-neutral view of one network attachment
type NetworkEndpoint struct {
	Name        string
	IPAddress   string
	IPv6Address string
	Gateway     string
	IPPrefixLen int
}

// IsNetworkModeOverride reports whether mode takes the container out of
// engine-managed networks. Only empty, "default" and "bridge" are not overrides.
func IsNetworkModeOverride(mode string) bool {
	return mode != "" && mode != "default" && mode != defaultBridgeNetwork
}

// ExtractNetworks builds the service networks field and the list of network
// names the service references. Attachments carrying an address produce the
// static form for all attachments; a lone default bridge is omitted.
func ExtractNetworks(networkMode string, endpoints []NetworkEndpoint) (*types.ServiceNetworks, []string) {
	if IsNetworkModeOverride(networkMode) || len(endpoints) == 0 {
		return nil, nil
	}

	sorted := make([]NetworkEndpoint, len(endpoints))
	copy(sorted, endpoints)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	names := make([]string, 0, len(sorted))
	hasAddress := false
	for _, endpoint := range sorted {
		names = append(names, endpoint.Name)
		if endpoint.IPAddress != "" || endpoint.IPv6Address != "" {
			hasAddress = true
		}
	}

	if hasAddress {
		static := make(map[string]types.NetworkAttachment, len(sorted))
		for _, endpoint := range sorted {
			static[endpoint.Name] = types.NetworkAttachment{
				IPv4Address: endpoint.IPAddress,
				IPv6Address: endpoint.IPv6Address,
			}
		}
		return types.StaticNetworks(static), names
	}

	if len(names) == 1 && names[0] == defaultBridgeNetwork {
		return nil, nil
	}
	return types.NetworkList(names...), names
}

// ComputeSubnet masks an IPv4 gateway with a prefix length, e.g.
// ("10.88.0.1", 16) gives "10.88.0.0/16".
func ComputeSubnet(gateway string, prefixLen int) (string, error) {
	if prefixLen < 0 || prefixLen > 32 {
		return "", fmt.Errorf("invalid IPv4 prefix length %d", prefixLen)
	}
	ip := net.ParseIP(strings.TrimSpace(gateway)).To4()
	if ip == nil {
		return "", fmt.Errorf("invalid IPv4 gateway %q", gateway)
	}
	mask := net.CIDRMask(prefixLen, 32)
	return fmt.Sprintf("%s/%d", ip.Mask(mask).String(), prefixLen), nil
}

// NetworkConfigs derives descriptor-level IPAM definitions from attachments
// that report a gateway and prefix length.
func NetworkConfigs(endpoints []NetworkEndpoint) map[string]types.NetworkConfig {
	configs := make(map[string]types.NetworkConfig)
	for _, endpoint := range endpoints {
		if endpoint.Gateway == "" || endpoint.IPPrefixLen <= 0 {
			continue
		}
		subnet, err := ComputeSubnet(endpoint.Gateway, endpoint.IPPrefixLen)
		if err != nil {
			continue
		}
		configs[endpoint.Name] = types.NetworkConfig{
			IPAM: &types.IPAMConfig{
				Config: []types.IPAMPool{{Subnet: subnet, Gateway: endpoint.Gateway}},
			},
		}
	}
	if len(configs) == 0 {
		return nil
	}
	return configs
}
