package parser

import (
	"net"

	"github.com/epics-controls/accesssecurity/internal/model"
)

// ResolveHostsIP resolves every HAG literal to its IPv4 addresses for IP
// mode host matching (component C). Called once at policy load time after
// parsing, only when the as_check_client_ip configuration flag is set.
// Failed lookups leave no entry; they are not reported as errors, per the
// HAG IP-mode contract.
//
// net.LookupIP is used directly (no third-party DNS client): this is a
// one-off forward lookup with no retry, caching, or protocol surface
// beyond what the standard resolver already provides, and nothing in the
// retrieval pack offers a more specific fit.
func ResolveHostsIP(p *model.Policy) {
	p.HostMode = model.HostModeIP
	for _, hag := range p.HAGs {
		hag.ResolvedIPs = hag.ResolvedIPs[:0]
		for _, literal := range hag.Hosts {
			ips, err := net.LookupIP(literal)
			if err != nil {
				continue
			}
			for _, ip := range ips {
				if v4 := ip.To4(); v4 != nil {
					hag.ResolvedIPs = append(hag.ResolvedIPs, v4.String())
				}
			}
		}
	}
}
