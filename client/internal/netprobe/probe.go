// Package netprobe checks master reachability and enumerates the local network configuration
package netprobe

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/netbirdio/minion-installer/client/internal/process"
	"github.com/netbirdio/minion-installer/client/system"
	"github.com/netbirdio/minion-installer/util"
)

const (
	dialTimeout = 5 * time.Second
	// toolTimeout bounds the external tools in seconds
	toolTimeout = "3"
)

// DialFunc opens a TCP connection
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// Probe checks endpoints with the raw socket first and the platform tools after it
type Probe struct {
	runner process.Runner
	fs     util.FileStore
	family system.Family
	log    *log.Entry

	dial       DialFunc
	interfaces func() ([]Interface, error)
}

func New(runner process.Runner, fs util.FileStore, family system.Family, logger *log.Entry) *Probe {
	dialer := &net.Dialer{Timeout: dialTimeout}
	return &Probe{
		runner:     runner,
		fs:         fs,
		family:     family,
		log:        logger,
		dial:       dialer.DialContext,
		interfaces: systemInterfaces,
	}
}

// ValidateReachability reports whether the endpoint answers a TCP connection or an ICMP echo.
// It never fails: a false result leaves the decision to the caller
func (p *Probe) ValidateReachability(ctx context.Context, address string, port int) (reachable bool) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Errorf("reachability check of %s panicked: %v", address, r)
			reachable = false
		}
	}()

	tcp := p.CheckTCP(ctx, address, port)
	icmp := p.CheckICMP(ctx, address)
	p.log.Infof("reachability of %s:%d: tcp %t, icmp %t", address, port, tcp, icmp)
	return tcp || icmp
}

// CheckTCP runs the TCP fallback chain: raw socket, then two platform tools
func (p *Probe) CheckTCP(ctx context.Context, address string, port int) bool {
	target := net.JoinHostPort(address, strconv.Itoa(port))

	conn, err := p.dial(ctx, "tcp", target)
	if err == nil {
		if cerr := conn.Close(); cerr != nil {
			p.log.Debugf("failed to close probe connection: %v", cerr)
		}
		return true
	}
	p.log.Debugf("socket probe of %s failed: %v", target, err)

	_, err = process.FirstSuccess(ctx, p.runner, p.log, p.tcpTools(address, port)...)
	if err != nil {
		p.log.Debugf("tcp tools could not reach %s: %v", target, err)
		return false
	}
	return true
}

func (p *Probe) tcpTools(address string, port int) []process.Command {
	portStr := strconv.Itoa(port)
	if p.family.IsWindows() {
		return []process.Command{
			{Name: "powershell", Args: []string{"-NoProfile", "-NonInteractive", "-Command",
				fmt.Sprintf("if ((Test-NetConnection -ComputerName '%s' -Port %d -InformationLevel Quiet -WarningAction SilentlyContinue)) { exit 0 } else { exit 1 }", address, port)}},
			{Name: "powershell", Args: []string{"-NoProfile", "-NonInteractive", "-Command",
				fmt.Sprintf("$c = New-Object System.Net.Sockets.TcpClient; if ($c.ConnectAsync('%s', %d).Wait(3000) -and $c.Connected) { $c.Close(); exit 0 } else { exit 1 }", address, port)}},
		}
	}
	return []process.Command{
		{Name: "nc", Args: []string{"-z", "-w", toolTimeout, address, portStr}},
		// a connected telnet session stays open until timeout kills it
		{Name: "timeout", Args: []string{toolTimeout, "telnet", address, portStr}, Accept: telnetConnected},
	}
}

func telnetConnected(outcome process.Outcome) bool {
	return outcome.Success() || strings.Contains(outcome.Stdout, "Connected")
}

// CheckICMP sends a single echo request
func (p *Probe) CheckICMP(ctx context.Context, address string) bool {
	var outcome process.Outcome
	if p.family.IsWindows() {
		outcome = p.runner.Run(ctx, "ping", "-n", "1", "-w", "3000", address)
	} else {
		outcome = p.runner.Run(ctx, "ping", "-c", "1", "-W", toolTimeout, address)
	}
	return outcome.Success()
}

// ValidIPAddress reports whether s is an IPv4 address
func ValidIPAddress(s string) bool {
	addr, err := netip.ParseAddr(s)
	return err == nil && addr.Is4()
}

// ValidPort reports whether s is a TCP port number
func ValidPort(s string) bool {
	port, err := strconv.Atoi(s)
	return err == nil && port > 0 && port <= 65535
}
