// Package inventory defines the narrow interface through which the
// assembly engine consumes the item store. The store itself, including
// its inheritance and override resolution, lives elsewhere; this
// package only carries the already-resolved shapes the engine needs.
package inventory

import (
	"errors"
	"fmt"
)

// ErrAmbiguous is returned by Find* lookups when more than one item
// matches the requested name.
var ErrAmbiguous = errors.New("more than one item matches")

// InterfaceType enumerates the network interface kinds a system can
// carry. Slave kinds reference their master interface by name.
type InterfaceType string

const (
	InterfaceTypePhysical          InterfaceType = "physical"
	InterfaceTypeBond              InterfaceType = "bond"
	InterfaceTypeBridge            InterfaceType = "bridge"
	InterfaceTypeBondSlave         InterfaceType = "bond_slave"
	InterfaceTypeBridgeSlave       InterfaceType = "bridge_slave"
	InterfaceTypeBondedBridgeSlave InterfaceType = "bonded_bridge_slave"
)

// IsSlave reports whether the interface type references a master.
func (t InterfaceType) IsSlave() bool {
	switch t {
	case InterfaceTypeBondSlave, InterfaceTypeBridgeSlave, InterfaceTypeBondedBridgeSlave:
		return true
	}
	return false
}

// IsBondedOrBridged reports whether the interface aggregates slaves.
func (t InterfaceType) IsBondedOrBridged() bool {
	return t == InterfaceTypeBond || t == InterfaceTypeBridge
}

// Interface is one network interface record of a system.
type Interface struct {
	Management bool          `toml:"management"`
	Type       InterfaceType `toml:"type"`
	Master     string        `toml:"master"`
	MACAddress string        `toml:"mac_address"`
	IPAddress  string        `toml:"ip_address"`
	Netmask    string        `toml:"netmask"`
}

// Distro is an installable distribution tree.
type Distro struct {
	Name      string `toml:"name"`
	Breed     string `toml:"breed"`
	OSVersion string `toml:"os_version"`
	Arch      string `toml:"arch"`
	Kernel    string `toml:"kernel"`
	Initrd    string `toml:"initrd"`
}

// Profile is an installation profile attached to a distro.
type Profile struct {
	Name string `toml:"name"`
	// Distro names the parent distro. Empty means the profile is
	// broken; lookups treat that as a missing parent.
	Distro string `toml:"distro"`
	// Autoinstall references the stored template source.
	Autoinstall string `toml:"autoinstall"`
	// TemplateType selects the autoinstall document family
	// (kickstart, autoyast, preseed, cloud-init, legacy).
	TemplateType string `toml:"template_type"`
	Repos        []string `toml:"repos"`
}

// System is one installation target machine. Image-based systems have
// no profile ancestry and therefore no kernel/initrd metadata.
type System struct {
	Name     string `toml:"name"`
	Hostname string `toml:"hostname"`
	// Profile names the logical parent. Empty for image-based
	// systems.
	Profile    string               `toml:"profile"`
	ImageBased bool                 `toml:"image_based"`
	Interfaces map[string]Interface `toml:"interfaces"`
}

// Repo is a managed package repository.
type Repo struct {
	Name          string `toml:"name"`
	MirrorLocally bool   `toml:"mirror_locally"`
}

// Inventory is the read-only view of the item store used by the
// assembly engine. Find* methods return nil when nothing matches and
// ErrAmbiguous when more than one item does.
type Inventory interface {
	FindDistro(name string) (*Distro, error)
	FindProfile(name string) (*Profile, error)
	FindSystem(name string) (*System, error)
	FindRepo(name string) (*Repo, error)

	// Profiles and Systems return all items in stable order.
	Profiles() []*Profile
	Systems() []*System

	// ProfilesForDistro returns the direct profile children of a
	// distro, in stable order.
	ProfilesForDistro(distro string) []*Profile
	// SystemsForProfile returns the systems attached to a profile,
	// in stable order.
	SystemsForProfile(profile string) []*System

	// BlendProfile and BlendSystem return the fully resolved
	// configuration for a target. Resolution is the store's
	// business; callers treat the result as opaque input.
	BlendProfile(name string) (Blended, error)
	BlendSystem(name string) (Blended, error)
}

// DistroForProfile resolves a profile's parent distro, or an error
// naming the broken reference.
func DistroForProfile(inv Inventory, profile *Profile) (*Distro, error) {
	if profile.Distro == "" {
		return nil, fmt.Errorf("profile %s references no distro", profile.Name)
	}
	distro, err := inv.FindDistro(profile.Distro)
	if err != nil {
		return nil, err
	}
	if distro == nil {
		return nil, fmt.Errorf("profile %s references missing distro %s", profile.Name, profile.Distro)
	}
	return distro, nil
}
