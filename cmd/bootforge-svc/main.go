package main

import (
	"flag"
	"net"

	"github.com/coreos/go-systemd/v22/activation"
	"github.com/sirupsen/logrus"

	"github.com/bootforge/bootforge/internal/api"
	"github.com/bootforge/bootforge/internal/autoinstall"
	"github.com/bootforge/bootforge/internal/config"
	"github.com/bootforge/bootforge/internal/inventory"
	"github.com/bootforge/bootforge/internal/templates"
)

func main() {
	var configFile string
	var inventoryFile string
	var verbose bool
	flag.StringVar(&configFile, "config", "/etc/bootforge/bootforge.toml", "configuration file")
	flag.StringVar(&inventoryFile, "inventory", "/etc/bootforge/inventory.toml", "inventory file")
	flag.BoolVar(&verbose, "v", false, "verbose logging")
	flag.Parse()

	if verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	settings, err := config.LoadConfig(configFile)
	if err != nil {
		logrus.Fatalf("Could not load configuration: %v", err)
	}
	inv, err := inventory.Load(inventoryFile, settings.BlendDefaults())
	if err != nil {
		logrus.Fatalf("Could not load inventory: %v", err)
	}

	registry := templates.NewRegistry(templates.NewGotplProvider(), templates.NewJinjaProvider())
	snippets := templates.NewSnippetStore(settings.SnippetsDir)
	renderer := templates.NewRenderer(registry, snippets, settings.DefaultTemplateType)
	gen := autoinstall.NewGenerator(inv, settings, renderer)
	server := api.NewServer(gen, renderer)

	listener, err := activationListener()
	if err != nil {
		logrus.Fatalf("Could not get listening socket: %v", err)
	}
	if listener == nil {
		listener, err = net.Listen("tcp", settings.ListenAddress)
		if err != nil {
			logrus.Fatalf("Could not listen on %s: %v", settings.ListenAddress, err)
		}
	}

	logrus.WithField("address", listener.Addr().String()).Info("Serving autoinstall documents")
	if err := server.Serve(listener); err != nil {
		logrus.Fatalf("Server failed: %v", err)
	}
}

// activationListener returns the systemd-activated socket, or nil
// when the process was started outside of socket activation.
func activationListener() (net.Listener, error) {
	listeners, err := activation.ListenersWithNames()
	if err != nil {
		return nil, err
	}
	svcListeners, exists := listeners["bootforge-svc.socket"]
	if !exists {
		return nil, nil
	}
	if len(svcListeners) != 1 {
		logrus.Fatalf("Unexpected number of listening sockets (%d), expected 1", len(svcListeners))
	}
	return svcListeners[0], nil
}
