package main

import (
	"flag"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/bootforge/bootforge/internal/autoinstall"
	"github.com/bootforge/bootforge/internal/buildiso"
	"github.com/bootforge/bootforge/internal/config"
	"github.com/bootforge/bootforge/internal/inventory"
	"github.com/bootforge/bootforge/internal/templates"
)

func main() {
	var configFile string
	var inventoryFile string
	var isoPath string
	var distroName string
	var profileList string
	var systemList string
	var standalone bool
	var airgapped bool
	var source string
	var excludeDNS bool
	var xorrisofsOpts string
	var verbose bool
	flag.StringVar(&configFile, "config", "/etc/bootforge/bootforge.toml", "configuration file")
	flag.StringVar(&inventoryFile, "inventory", "/etc/bootforge/inventory.toml", "inventory file")
	flag.StringVar(&isoPath, "iso", "autoinst.iso", "output ISO path")
	flag.StringVar(&distroName, "distro", "", "distro to build for (required for standalone)")
	flag.StringVar(&profileList, "profiles", "", "comma-separated profile allow-list")
	flag.StringVar(&systemList, "systems", "", "comma-separated system allow-list")
	flag.BoolVar(&standalone, "standalone", false, "build standalone media instead of a netboot image")
	flag.BoolVar(&airgapped, "airgapped", false, "bundle local repo mirrors (implies -standalone)")
	flag.StringVar(&source, "source", "", "installation source override for standalone builds")
	flag.BoolVar(&excludeDNS, "exclude-dns", false, "never emit DNS options on append lines")
	flag.StringVar(&xorrisofsOpts, "xorrisofs-opts", "", "extra options passed to xorrisofs")
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
	builder := buildiso.New(inv, settings, renderer, gen)

	if standalone || airgapped {
		err = builder.BuildStandalone(buildiso.StandaloneOptions{
			ISOPath:       isoPath,
			Distro:        distroName,
			Profiles:      splitList(profileList),
			Source:        source,
			Airgapped:     airgapped,
			XorrisofsOpts: splitOpts(xorrisofsOpts),
		})
	} else {
		err = builder.BuildNetboot(buildiso.NetbootOptions{
			ISOPath:       isoPath,
			Distro:        distroName,
			Profiles:      splitList(profileList),
			Systems:       splitList(systemList),
			ExcludeDNS:    excludeDNS,
			XorrisofsOpts: splitOpts(xorrisofsOpts),
		})
	}
	if err != nil {
		logrus.Fatalf("Build failed: %v", err)
	}
	logrus.WithField("iso", isoPath).Info("Done")
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func splitOpts(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Fields(s)
}
