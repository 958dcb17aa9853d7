// Package network inspects the host's network configuration for discovery seeds.
package network

import (
	"net"

	"github.com/jackpal/gateway"
	"github.com/rs/zerolog"
)

// GatewayFunc returns the default gateway of the host.
type GatewayFunc func() (net.IP, error)

// Inspector finds the default gateways to use as discovery seeds.
type Inspector struct {
	discover GatewayFunc
	logger   zerolog.Logger
}

func NewInspector(logger zerolog.Logger) *Inspector {
	return &Inspector{discover: gateway.DiscoverGateway, logger: logger}
}

// WithGatewayFunc replaces the gateway lookup, mostly for tests.
func (i *Inspector) WithGatewayFunc(f GatewayFunc) *Inspector {
	c := *i
	c.discover = f
	return &c
}

// DefaultGateways returns the addresses of the host's default gateways. A
// failed lookup is logged and yields no gateways.
func (i *Inspector) DefaultGateways() []string {
	ip, err := i.discover()
	if err != nil {
		i.logger.Warn().Err(err).Msg("Unable to determine default gateway")
		return nil
	}
	if ip == nil || ip.IsUnspecified() {
		return nil
	}
	return []string{ip.String()}
}
