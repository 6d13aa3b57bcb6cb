package config

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const (
	DefaultConfigPath   = "config.toml"
	DefaultHTTPAddr     = ":3000"
	DefaultStaticDir    = "frontend/dist"
	DefaultSearchWindow = time.Second
)

// Channel is an IRC channel joined after registration. Searchable channels
// receive "!s" queries.
type Channel struct {
	Name   string `toml:"name"`
	Search bool   `toml:"search"`
}

// Server holds the connection parameters of one IRC network.
type Server struct {
	// Name identifies the network; defaults to the server host.
	Name          string    `toml:"name"`
	Server        string    `toml:"server"`
	Nick          string    `toml:"nick"`
	Ident         string    `toml:"ident"`
	RealName      string    `toml:"real_name"`
	Password      string    `toml:"password"`
	SSL           bool      `toml:"ssl"`
	SSLSkipVerify bool      `toml:"ssl_skip_verify"`
	Channels      []Channel `toml:"channels"`
}

type Config struct {
	Servers        []Server `toml:"servers"`
	DownloadFolder string   `toml:"download_folder"`
	// Port is the preferred listening port for passive transfers, 0 picks one.
	Port         uint16 `toml:"port"`
	PublicIP     string `toml:"public_ip"`
	HTTPAddr     string `toml:"http_addr"`
	StaticDir    string `toml:"static_dir"`
	LogLevel     string `toml:"log_level"`
	SearchWindow string `toml:"search_window"`
	// CORSOrigins are the origins allowed to call the HTTP API.
	CORSOrigins []string `toml:"cors_origins"`
}

// Path resolves the config file location, honouring XDCCD_CONFIG from the
// environment or a .env file.
func Path() string {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		logrus.WithField("file", envFile).Debug("no env file found")
	}
	if p := os.Getenv("XDCCD_CONFIG"); p != "" {
		return p
	}
	return DefaultConfigPath
}

// Load reads the TOML config at path, applies environment overrides and
// defaults, and validates the result.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := toml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	override := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	override("XDCCD_HTTP_ADDR", &cfg.HTTPAddr)
	override("XDCCD_DOWNLOAD_FOLDER", &cfg.DownloadFolder)
	override("XDCCD_PUBLIC_IP", &cfg.PublicIP)
	override("XDCCD_LOG_LEVEL", &cfg.LogLevel)
}

func applyDefaults(cfg *Config) {
	if cfg.DownloadFolder == "" {
		cfg.DownloadFolder = DefaultDownloadDir()
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = DefaultHTTPAddr
	}
	if cfg.StaticDir == "" {
		cfg.StaticDir = DefaultStaticDir
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"*"}
	}
	for i := range cfg.Servers {
		srv := &cfg.Servers[i]
		if srv.Name == "" {
			host, _, err := net.SplitHostPort(srv.Server)
			if err != nil {
				host = srv.Server
			}
			srv.Name = host
		}
	}
}

func (c *Config) Validate() error {
	if len(c.Servers) == 0 {
		return errors.New("config: no servers configured")
	}
	seen := make(map[string]bool, len(c.Servers))
	for i, srv := range c.Servers {
		if srv.Server == "" {
			return fmt.Errorf("config: server %d has no address", i)
		}
		if srv.Nick == "" {
			return fmt.Errorf("config: server %s has no nick", srv.Name)
		}
		if seen[srv.Name] {
			return fmt.Errorf("config: duplicate network name %q", srv.Name)
		}
		seen[srv.Name] = true
	}
	if c.PublicIP != "" {
		if _, err := c.PublicAddr(); err != nil {
			return err
		}
	}
	if _, err := c.Window(); err != nil {
		return err
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// PublicAddr parses the configured public IPv4 address.
func (c *Config) PublicAddr() (netip.Addr, error) {
	addr, err := netip.ParseAddr(c.PublicIP)
	if err != nil || !addr.Is4() {
		return netip.Addr{}, fmt.Errorf("config: public_ip %q is not an IPv4 address", c.PublicIP)
	}
	return addr, nil
}

// Window is how long IRC search replies are collected.
func (c *Config) Window() (time.Duration, error) {
	if c.SearchWindow == "" {
		return DefaultSearchWindow, nil
	}
	d, err := time.ParseDuration(c.SearchWindow)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("config: invalid search_window %q", c.SearchWindow)
	}
	return d, nil
}

// DefaultDownloadDir returns ~/Downloads, falling back to the working
// directory when it cannot be used.
func DefaultDownloadDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	downloadsDir := filepath.Join(homeDir, "Downloads")
	if err := os.MkdirAll(downloadsDir, 0o755); err != nil {
		return "."
	}
	return downloadsDir
}
