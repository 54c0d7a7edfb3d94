package sync

import (
	"context"
	"fmt"
	"net"
	"strings"
)

// Precondition is consulted before any remote call. A non-nil error aborts
// the sync with ErrPreconditionFailed.
type Precondition interface {
	Check(ctx context.Context) error
}

// AlwaysReady is the Precondition used when no network posture is required.
type AlwaysReady struct{}

// Check always succeeds.
func (AlwaysReady) Check(context.Context) error { return nil }

// InterfacePrecondition requires an up network interface whose name starts
// with one of Prefixes (for example "tun" or "wg" for a VPN tunnel).
type InterfacePrecondition struct {
	Prefixes []string

	// interfaces lists host interfaces. Tests override it.
	interfaces func() ([]net.Interface, error)
}

// NewInterfacePrecondition creates a check against the host's interfaces.
func NewInterfacePrecondition(prefixes []string) *InterfacePrecondition {
	return &InterfacePrecondition{
		Prefixes:   prefixes,
		interfaces: net.Interfaces,
	}
}

// Check reports an error unless a matching interface is up.
func (p *InterfacePrecondition) Check(context.Context) error {
	ifaces, err := p.interfaces()
	if err != nil {
		return fmt.Errorf("listing network interfaces: %w", err)
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 {
			continue
		}

		for _, prefix := range p.Prefixes {
			if strings.HasPrefix(iface.Name, prefix) {
				return nil
			}
		}
	}

	return fmt.Errorf("no active network interface matching %s", strings.Join(p.Prefixes, ", "))
}
