package buildiso

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/bootforge/bootforge/internal/cmdline"
	"github.com/bootforge/bootforge/internal/inventory"
)

// NetbootOptions selects the targets of a network-install image.
// Empty allow-lists mean everything.
type NetbootOptions struct {
	ISOPath       string
	Distro        string
	Profiles      []string
	Systems       []string
	ExcludeDNS    bool
	XorrisofsOpts []string
}

// BuildNetboot assembles an ISO whose menu entries chain-load the
// network installation of the selected profiles and systems. Boot
// files are staged under short names; the installer itself is fetched
// from this server at boot time.
func (b *Builder) BuildNetboot(opts NetbootOptions) error {
	profiles, err := b.selectProfiles(opts.Profiles, opts.Distro)
	if err != nil {
		return err
	}
	systems, err := b.selectSystems(opts.Systems)
	if err != nil {
		return err
	}

	run, err := b.newRunContext()
	if err != nil {
		return err
	}
	defer os.RemoveAll(run.dir)

	for _, profile := range profiles {
		if err := b.netbootProfileEntry(run, profile); err != nil {
			return err
		}
	}
	run.appendMenu("MENU SEPARATOR")
	for _, system := range systems {
		if err := b.netbootSystemEntry(run, system, opts.ExcludeDNS); err != nil {
			return err
		}
	}
	run.appendMenu("", "MENU END")

	if err := run.writeMenu(); err != nil {
		return err
	}
	return masterISO(opts.ISOPath, run.dir, opts.XorrisofsOpts)
}

func (b *Builder) netbootProfileEntry(run *runContext, profile *inventory.Profile) error {
	distro, err := b.distroForProfile(profile)
	if err != nil {
		return err
	}
	short, err := run.shortName(distro)
	if err != nil {
		return err
	}

	data, err := b.inv.BlendProfile(profile.Name)
	if err != nil {
		return err
	}
	data = data.Copy()
	breed := cmdline.BreedOf(distro.Breed)
	if kopts, ok := data.KernelOptions(); ok {
		cmdline.OverwriteKernelOptions(kopts, breed)
	}
	b.synthesizeAutoinstallURI(data, "profile", profile.Name)

	line, err := cmdline.BuildProfile(short, breed, distro.OSVersion, data, b.settings.AutoinstallScheme)
	if err != nil {
		return fmt.Errorf("compiling append line for profile %s: %w", profile.Name, err)
	}

	logrus.WithField("profile", profile.Name).Debug("Adding netboot menu entry")
	run.appendMenu(
		"",
		"LABEL "+profile.Name,
		"  MENU LABEL "+profile.Name,
		"  kernel "+short+".krn",
		line,
	)
	return nil
}

func (b *Builder) netbootSystemEntry(run *runContext, system *inventory.System, excludeDNS bool) error {
	profile, err := b.inv.FindProfile(system.Profile)
	if err != nil {
		return err
	}
	if profile == nil {
		return fmt.Errorf("system %s references missing profile %s", system.Name, system.Profile)
	}
	distro, err := b.distroForProfile(profile)
	if err != nil {
		return err
	}
	short, err := run.shortName(distro)
	if err != nil {
		return err
	}

	data, err := b.inv.BlendSystem(system.Name)
	if err != nil {
		return err
	}
	data = data.Copy()
	b.synthesizeAutoinstallURI(data, "system", system.Name)

	line, err := cmdline.BuildSystem(short, distro, system, data, cmdline.SystemOptions{
		ExcludeDNS: excludeDNS,
		Scheme:     b.settings.AutoinstallScheme,
	})
	if err != nil {
		return fmt.Errorf("compiling append line for system %s: %w", system.Name, err)
	}

	logrus.WithField("system", system.Name).Debug("Adding netboot menu entry")
	run.appendMenu(
		"",
		"LABEL "+system.Name,
		"  MENU LABEL "+system.Name,
		"  KERNEL "+short+".krn",
		line,
	)
	return nil
}
