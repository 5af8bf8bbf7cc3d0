package netprobe

import (
	"bufio"
	"context"
	"regexp"
	"strings"

	gopsnet "github.com/shirou/gopsutil/v3/net"
)

const resolvConfPath = "/etc/resolv.conf"

// Interface is a local network interface with its addresses
type Interface struct {
	Name      string
	Addresses []string
}

// Configuration is the local network setup reported by --check
type Configuration struct {
	Interfaces []Interface
	Gateway    string
	DNS        []string
}

var (
	ipAddrIfaceRe = regexp.MustCompile(`^\d+:\s+([^:@\s]+)[@:]`)
	ifconfigRe    = regexp.MustCompile(`^([^\s:]+):?\s+(flags|Link)`)
	inetRe        = regexp.MustCompile(`^\s*inet6?\s+(?:addr:)?([0-9a-fA-F:.]+(?:/\d+)?)`)
)

// Configuration enumerates interfaces, the default gateway and the DNS servers.
// Every part is optional
func (p *Probe) Configuration(ctx context.Context) Configuration {
	var cfg Configuration

	cfg.Interfaces = p.listInterfaces(ctx)

	if !p.family.IsWindows() {
		if outcome := p.runner.Run(ctx, "ip", "route", "show", "default"); outcome.Success() {
			cfg.Gateway = parseGateway(outcome.Stdout)
		}
		if data, err := p.fs.ReadFile(resolvConfPath); err == nil {
			cfg.DNS = parseNameservers(string(data))
		} else {
			p.log.Debugf("failed to read %s: %v", resolvConfPath, err)
		}
	}

	return cfg
}

func (p *Probe) listInterfaces(ctx context.Context) []Interface {
	if !p.family.IsWindows() {
		if outcome := p.runner.Run(ctx, "ip", "addr", "show"); outcome.Success() {
			if ifaces := parseInterfaces(outcome.Stdout, ipAddrIfaceRe); len(ifaces) > 0 {
				return ifaces
			}
		}
		if outcome := p.runner.Run(ctx, "ifconfig"); outcome.Success() {
			if ifaces := parseInterfaces(outcome.Stdout, ifconfigRe); len(ifaces) > 0 {
				return ifaces
			}
		}
	}

	ifaces, err := p.interfaces()
	if err != nil {
		p.log.Debugf("failed to list network interfaces: %v", err)
		return nil
	}
	return ifaces
}

func parseInterfaces(output string, headerRe *regexp.Regexp) []Interface {
	var ifaces []Interface
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := scanner.Text()
		if m := headerRe.FindStringSubmatch(line); m != nil {
			ifaces = append(ifaces, Interface{Name: m[1]})
			continue
		}
		if len(ifaces) == 0 {
			continue
		}
		if m := inetRe.FindStringSubmatch(line); m != nil {
			last := &ifaces[len(ifaces)-1]
			last.Addresses = append(last.Addresses, m[1])
		}
	}
	return ifaces
}

func parseGateway(output string) string {
	fields := strings.Fields(output)
	for i, f := range fields {
		if f == "via" && i+1 < len(fields) {
			return fields[i+1]
		}
	}
	return ""
}

func parseNameservers(resolvConf string) []string {
	var servers []string
	for _, line := range strings.Split(resolvConf, "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 2 && fields[0] == "nameserver" {
			servers = append(servers, fields[1])
		}
	}
	return servers
}

func systemInterfaces() ([]Interface, error) {
	stats, err := gopsnet.Interfaces()
	if err != nil {
		return nil, err
	}

	ifaces := make([]Interface, 0, len(stats))
	for _, s := range stats {
		iface := Interface{Name: s.Name}
		for _, a := range s.Addrs {
			iface.Addresses = append(iface.Addresses, a.Addr)
		}
		ifaces = append(ifaces, iface)
	}
	return ifaces, nil
}
