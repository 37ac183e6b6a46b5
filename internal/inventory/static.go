package inventory

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/BurntSushi/toml"
)

// StaticInventory is an Inventory backed by in-memory items with
// per-target blends declared up front. The real store resolves
// blends through its inheritance chain; a static inventory carries
// them pre-resolved, which is all the assembly engine ever sees
// either way.
type StaticInventory struct {
	DistroItems  []*Distro
	ProfileItems []*Profile
	SystemItems  []*System
	RepoItems    []*Repo

	// Blends maps target name to its declared resolved
	// configuration. Missing entries get a minimal synthesized
	// blend.
	Blends map[string]Blended

	// Defaults are merged into every blend for keys the blend does
	// not set (server, http_port and friends).
	Defaults map[string]interface{}
}

func findNamed[T any](items []*T, name string, nameOf func(*T) string) (*T, error) {
	var found *T
	for _, item := range items {
		if nameOf(item) != name {
			continue
		}
		if found != nil {
			return nil, fmt.Errorf("%w: %s", ErrAmbiguous, name)
		}
		found = item
	}
	return found, nil
}

func (s *StaticInventory) FindDistro(name string) (*Distro, error) {
	return findNamed(s.DistroItems, name, func(d *Distro) string { return d.Name })
}

func (s *StaticInventory) FindProfile(name string) (*Profile, error) {
	return findNamed(s.ProfileItems, name, func(p *Profile) string { return p.Name })
}

func (s *StaticInventory) FindSystem(name string) (*System, error) {
	return findNamed(s.SystemItems, name, func(sys *System) string { return sys.Name })
}

func (s *StaticInventory) FindRepo(name string) (*Repo, error) {
	return findNamed(s.RepoItems, name, func(r *Repo) string { return r.Name })
}

func (s *StaticInventory) Profiles() []*Profile {
	return s.ProfileItems
}

func (s *StaticInventory) Systems() []*System {
	return s.SystemItems
}

func (s *StaticInventory) ProfilesForDistro(distro string) []*Profile {
	var out []*Profile
	for _, p := range s.ProfileItems {
		if p.Distro == distro {
			out = append(out, p)
		}
	}
	return out
}

func (s *StaticInventory) SystemsForProfile(profile string) []*System {
	var out []*System
	for _, sys := range s.SystemItems {
		if sys.Profile == profile {
			out = append(out, sys)
		}
	}
	return out
}

func (s *StaticInventory) BlendProfile(name string) (Blended, error) {
	profile, err := s.FindProfile(name)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, fmt.Errorf("unknown profile: %s", name)
	}
	blend := s.blend(name)
	if _, ok := blend["autoinstall"]; !ok {
		blend["autoinstall"] = profile.Autoinstall
	}
	setIfMissing(blend, "profile_name", profile.Name)
	setIfMissing(blend, "distro_name", profile.Distro)
	if _, ok := blend["repos"]; !ok && len(profile.Repos) > 0 {
		blend["repos"] = profile.Repos
	}
	return blend, nil
}

func (s *StaticInventory) BlendSystem(name string) (Blended, error) {
	system, err := s.FindSystem(name)
	if err != nil {
		return nil, err
	}
	if system == nil {
		return nil, fmt.Errorf("unknown system: %s", name)
	}
	blend := s.blend(name)
	setIfMissing(blend, "system_name", system.Name)
	setIfMissing(blend, "profile_name", system.Profile)
	if profile, _ := s.FindProfile(system.Profile); profile != nil {
		setIfMissing(blend, "distro_name", profile.Distro)
		if _, ok := blend["autoinstall"]; !ok {
			blend["autoinstall"] = profile.Autoinstall
		}
		if _, ok := blend["repos"]; !ok && len(profile.Repos) > 0 {
			blend["repos"] = profile.Repos
		}
	}
	if _, ok := blend["autoinstall"]; !ok {
		blend["autoinstall"] = ""
	}
	if len(system.Interfaces) > 0 {
		blend["interfaces"] = system.Interfaces
		// The blender also flattens per-interface attributes to
		// top-level keys; static blends get the same view.
		for iname, iface := range system.Interfaces {
			setIfMissing(blend, "mac_address_"+iname, iface.MACAddress)
			setIfMissing(blend, "ip_address_"+iname, iface.IPAddress)
			setIfMissing(blend, "netmask_"+iname, iface.Netmask)
			setIfMissing(blend, "interface_master_"+iname, iface.Master)
		}
	}
	return blend, nil
}

func setIfMissing(b Blended, key, value string) {
	if _, ok := b[key]; !ok && value != "" {
		b[key] = value
	}
}

func (s *StaticInventory) blend(name string) Blended {
	out := Blended{}
	if declared, ok := s.Blends[name]; ok {
		out = declared.Copy()
	}
	for k, v := range s.Defaults {
		if _, ok := out[k]; !ok {
			out[k] = v
		}
	}
	if _, ok := out["kernel_options"]; !ok {
		out["kernel_options"] = map[string]interface{}{}
	}
	return out
}

// inventoryFile is the on-disk TOML shape consumed by Load.
type inventoryFile struct {
	Distros  []*Distro                         `toml:"distro"`
	Profiles []*Profile                        `toml:"profile"`
	Systems  []*System                         `toml:"system"`
	Repos    []*Repo                           `toml:"repo"`
	Blends   map[string]map[string]interface{} `toml:"blend"`
}

// Load reads a static inventory from a TOML file. The defaults map is
// merged into every blend for keys the file leaves unset; http_port
// values are normalized to strings the way blends carry them.
func Load(path string, defaults map[string]interface{}) (*StaticInventory, error) {
	var file inventoryFile
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return nil, fmt.Errorf("reading inventory %s: %w", path, err)
	}

	inv := &StaticInventory{
		DistroItems:  file.Distros,
		ProfileItems: file.Profiles,
		SystemItems:  file.Systems,
		RepoItems:    file.Repos,
		Blends:       map[string]Blended{},
		Defaults:     defaults,
	}
	for name, blend := range file.Blends {
		inv.Blends[name] = normalizeBlend(blend)
	}

	sortByName(inv.ProfileItems, func(p *Profile) string { return p.Name })
	sortByName(inv.SystemItems, func(sys *System) string { return sys.Name })
	return inv, nil
}

func sortByName[T any](items []*T, nameOf func(*T) string) {
	sort.SliceStable(items, func(i, j int) bool {
		return nameOf(items[i]) < nameOf(items[j])
	})
}

// normalizeBlend converts TOML-decoded values to the forms blends
// carry: integer ports become strings, nested tables become plain
// maps.
func normalizeBlend(raw map[string]interface{}) Blended {
	out := make(Blended, len(raw))
	for k, v := range raw {
		switch value := v.(type) {
		case int64:
			out[k] = strconv.FormatInt(value, 10)
		case map[string]interface{}:
			nested := make(map[string]interface{}, len(value))
			for nk, nv := range value {
				nested[nk] = nv
			}
			out[k] = nested
		default:
			out[k] = v
		}
	}
	return out
}
