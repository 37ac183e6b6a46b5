// Package config loads the daemon and tool settings.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/sirupsen/logrus"
)

// DefaultPath is where the settings file is looked up unless a flag
// overrides it.
const DefaultPath = "/etc/bootforge/bootforge.toml"

// Settings carries every tunable the assembly engine consults.
type Settings struct {
	// Server is the address installers use to reach this host.
	Server string `toml:"server"`
	// HTTPPort is the port of the autoinstall service.
	HTTPPort int `toml:"http_port"`
	// AutoinstallScheme is http or https, used when synthesizing
	// autoinstall URIs.
	AutoinstallScheme string `toml:"autoinstall_scheme"`
	// WebDir is the served content root; distro_mirror and
	// repo_mirror live underneath it.
	WebDir string `toml:"webdir"`
	// BuildISODir is where ISO staging trees are created.
	BuildISODir string `toml:"buildiso_dir"`
	// SnippetsDir is the root of the snippet fallback chain.
	SnippetsDir string `toml:"autoinstall_snippets_dir"`
	// TemplatesDir holds the stored autoinstall templates.
	TemplatesDir string `toml:"autoinstall_templates_dir"`
	// DefaultTemplateType is consulted when neither the caller nor
	// the template names a type.
	DefaultTemplateType string `toml:"default_template_type"`
	// RunInstallTriggers injects pre/post HTTP callback scripts
	// into AutoYaST documents.
	RunInstallTriggers bool `toml:"run_install_triggers"`
	// ISOTemplateFile optionally replaces the built-in boot menu
	// header.
	ISOTemplateFile string `toml:"iso_template_file"`
	// ListenAddress is the fallback bind address of bootforge-svc
	// when not socket activated.
	ListenAddress string `toml:"listen_address"`
}

// LoadConfig reads settings from file, with defaults for everything
// the file does not set. A missing file is not an error; defaults
// apply.
func LoadConfig(file string) (*Settings, error) {
	config := Settings{
		Server:              "127.0.0.1",
		HTTPPort:            80,
		AutoinstallScheme:   "http",
		WebDir:              "/var/www/bootforge",
		BuildISODir:         "/var/cache/bootforge/buildiso",
		SnippetsDir:         "/var/lib/bootforge/snippets",
		TemplatesDir:        "/var/lib/bootforge/templates",
		DefaultTemplateType: "gotpl",
		ListenAddress:       ":8650",
	}

	_, err := toml.DecodeFile(file, &config)
	if err != nil {
		// Return error only when we failed to decode the file.
		// A non-existing config isn't an error, use defaults in
		// this case.
		if !os.IsNotExist(err) {
			return nil, err
		}
		logrus.Info("Configuration file not found, using defaults")
	}

	if config.HTTPPort <= 0 || config.HTTPPort > 65535 {
		return nil, fmt.Errorf("invalid http_port: %d", config.HTTPPort)
	}
	switch config.AutoinstallScheme {
	case "http", "https":
	default:
		return nil, fmt.Errorf("invalid autoinstall_scheme: %q", config.AutoinstallScheme)
	}

	return &config, nil
}

// BlendDefaults returns the settings-derived keys every blend is
// guaranteed to carry.
func (s *Settings) BlendDefaults() map[string]interface{} {
	return map[string]interface{}{
		"server":    s.Server,
		"http_port": strconv.Itoa(s.HTTPPort),
	}
}

// HTTPServer returns "server" or "server:port", the form templates
// see as @@http_server@@.
func (s *Settings) HTTPServer() string {
	if s.HTTPPort == 80 {
		return s.Server
	}
	return fmt.Sprintf("%s:%d", s.Server, s.HTTPPort)
}
