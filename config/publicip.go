package config

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/netip"
	"strings"
)

// PublicIPService answers with the caller's address as plain text.
const PublicIPService = "https://api.ipify.org/"

// ResolvePublicIP returns the configured public address, or asks service for
// it when none is configured.
func (c *Config) ResolvePublicIP(ctx context.Context, client *http.Client, service string) (netip.Addr, error) {
	if c.PublicIP != "" {
		return c.PublicAddr()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, service, nil)
	if err != nil {
		return netip.Addr{}, err
	}
	res, err := client.Do(req)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("discover public ip: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return netip.Addr{}, fmt.Errorf("discover public ip: unexpected status %s", res.Status)
	}
	body, err := io.ReadAll(io.LimitReader(res.Body, 64))
	if err != nil {
		return netip.Addr{}, fmt.Errorf("discover public ip: %w", err)
	}
	addr, err := netip.ParseAddr(strings.TrimSpace(string(body)))
	if err != nil || !addr.Is4() {
		return netip.Addr{}, fmt.Errorf("discover public ip: %q is not an IPv4 address", body)
	}
	return addr, nil
}
