package cmdline

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bootforge/bootforge/internal/inventory"
)

// Builder accumulates one append line. It is created per compile
// invocation and disposed afterwards. Override keys consumed from
// kernel_options are tracked in a set; the blended input is never
// mutated, and the remaining-options tail is the original mapping
// minus the consumed set.
type Builder struct {
	data     inventory.Blended
	kopts    map[string]interface{}
	consumed map[string]struct{}

	// installTreeName is the distro identifier used when
	// synthesizing a SUSE install= source: the short name for
	// profiles, the real distro name for systems.
	installTreeName string
	osVersion       string
	scheme          string

	line strings.Builder

	// resolved static-network values
	iface   string
	ip      string
	netmask string
	gateway string
	dns     interface{}
}

func newBuilder(data inventory.Blended, scheme string) (*Builder, error) {
	kopts, ok := data.KernelOptions()
	if !ok {
		return nil, fmt.Errorf("resolved configuration has no kernel_options mapping")
	}
	if _, ok := data["autoinstall"]; !ok {
		return nil, fmt.Errorf("resolved configuration has no autoinstall reference")
	}
	if scheme == "" {
		scheme = "http"
	}
	return &Builder{
		data:     data,
		kopts:    kopts,
		consumed: map[string]struct{}{},
		scheme:   scheme,
	}, nil
}

// emit appends one space-prefixed token group to the line.
func (b *Builder) emit(s string) {
	b.line.WriteString(" ")
	b.line.WriteString(s)
}

// take returns the kernel_options override for key and marks it
// consumed. Empty and absent values both report false. List values
// collapse to their first element.
func (b *Builder) take(key string) (string, bool) {
	raw, ok := b.takeRaw(key)
	if !ok {
		return "", false
	}
	return flattenOption(raw), true
}

func (b *Builder) takeRaw(key string) (interface{}, bool) {
	raw, present := b.kopts[key]
	if !present {
		return nil, false
	}
	if s, isString := raw.(string); isString && s == "" {
		return nil, false
	}
	b.consumed[key] = struct{}{}
	return raw, true
}

// consume marks an override consumed without emitting it.
func (b *Builder) consume(key string) {
	if _, present := b.kopts[key]; present {
		b.consumed[key] = struct{}{}
	}
}

func flattenOption(raw interface{}) string {
	switch v := raw.(type) {
	case string:
		return v
	case []string:
		if len(v) == 0 {
			return ""
		}
		return v[0]
	case []interface{}:
		if len(v) == 0 {
			return ""
		}
		return fmt.Sprint(v[0])
	}
	return fmt.Sprint(raw)
}

// BuildProfile compiles the network-boot append line for a profile
// entry. distroShortName is the short identifier the assembler staged
// the boot files under.
func BuildProfile(distroShortName string, breed Breed, osVersion string, data inventory.Blended, scheme string) (string, error) {
	b, err := newBuilder(data, scheme)
	if err != nil {
		return "", err
	}
	b.installTreeName = distroShortName
	b.osVersion = osVersion

	b.line.WriteString(" append initrd=" + distroShortName + ".img")
	handlerFor(breed).profileArgs(b)
	b.emitRemaining()
	return b.line.String(), nil
}

// SystemOptions carries the knobs of a system-entry compilation.
type SystemOptions struct {
	ExcludeDNS bool
	Scheme     string
}

// BuildSystem compiles the network-boot append line for a system
// entry, including static-network injection resolved from overrides,
// the management interface, and the blended configuration.
func BuildSystem(distroShortName string, distro *inventory.Distro, system *inventory.System, data inventory.Blended, opts SystemOptions) (string, error) {
	b, err := newBuilder(data, opts.Scheme)
	if err != nil {
		return "", err
	}
	b.installTreeName = distro.Name
	b.osVersion = distro.OSVersion
	breed := BreedOf(distro.Breed)
	h := handlerFor(breed)

	b.line.WriteString("  APPEND initrd=" + distroShortName + ".img")
	h.systemArgs(b, system)

	b.takeNetworkOverrides(h, breed)
	b.adjustInterface()
	b.fillNetworkConfig()
	b.emitNetwork(h, opts.ExcludeDNS)

	b.emitRemaining()
	return b.line.String(), nil
}

// BuildStandalone compiles the append line for a standalone-media
// entry, where the installation source and autoinstall document both
// live on the medium.
func BuildStandalone(distro *inventory.Distro, descendantName string, data inventory.Blended) (string, error) {
	b, err := newBuilder(data, "")
	if err != nil {
		return "", err
	}
	b.osVersion = distro.OSVersion

	b.line.WriteString("  APPEND initrd=" + filepath.Base(distro.Initrd))
	handlerFor(BreedOf(distro.Breed)).standaloneArgs(b, distro, descendantName)
	b.emitRemaining()
	return b.line.String(), nil
}

// takeNetworkOverrides consumes the family's static-network override
// keys. The redhat ksdevice value bootif means "no static interface"
// and unsets the selection.
func (b *Builder) takeNetworkOverrides(h familyHandler, breed Breed) {
	keys := h.netKeys()
	if keys.iface != "" {
		if v, ok := b.take(keys.iface); ok {
			b.iface = v
			if breed == BreedRedHat && v == "bootif" {
				b.iface = ""
			}
		}
	}
	if keys.ip != "" {
		if v, ok := b.take(keys.ip); ok {
			b.ip = v
		}
	}
	if keys.netmask != "" {
		if v, ok := b.take(keys.netmask); ok {
			b.netmask = v
		}
	}
	if keys.gateway != "" {
		if v, ok := b.take(keys.gateway); ok {
			b.gateway = v
		}
	}
	if keys.dns != "" {
		if v, ok := b.takeRaw(keys.dns); ok {
			b.dns = v
		}
	}
}

// adjustInterface auto-detects the management interface when no
// override selected one. Exactly one bonded/bridged management
// interface (and no single one) resolves to one of its slaves,
// preferring a slave named eth0, with IP and netmask taken from the
// master's records. Exactly one single management interface is used
// directly. Every other combination leaves the interface unresolved
// and static network config is skipped.
func (b *Builder) adjustInterface() {
	if b.iface != "" {
		return
	}
	interfaces := b.data.Interfaces()
	if len(interfaces) == 0 {
		return
	}

	names := make([]string, 0, len(interfaces))
	for name := range interfaces {
		names = append(names, name)
	}
	sort.Strings(names)

	var single, multi []string
	for _, name := range names {
		record := interfaces[name]
		if !record.Management {
			continue
		}
		if record.Type.IsBondedOrBridged() {
			multi = append(multi, name)
		} else if !record.Type.IsSlave() {
			single = append(single, name)
		}
	}

	if len(multi) == 1 && len(single) == 0 {
		var slaves []string
		for _, name := range names {
			record := interfaces[name]
			if record.Type.IsSlave() && record.Master == multi[0] {
				slaves = append(slaves, name)
			}
		}
		if len(slaves) == 0 {
			return
		}
		b.iface = slaves[0]
		for _, slave := range slaves {
			if slave == "eth0" {
				b.iface = "eth0"
				break
			}
		}
		// Addressing lives on the bonded/bridged master, not the
		// slave that boots.
		master := b.data.GetString("interface_master_" + b.iface)
		b.ip = b.data.GetString("ip_address_" + master)
		b.netmask = b.data.GetString("netmask_" + master)
		return
	}

	if len(single) == 1 && len(multi) == 0 {
		b.iface = single[0]
	}
}

// fillNetworkConfig pulls any still-unset values from the blended
// configuration.
func (b *Builder) fillNetworkConfig() {
	if b.ip == "" && b.iface != "" {
		b.ip = b.data.GetString("ip_address_" + b.iface)
	}
	if b.netmask == "" && b.iface != "" {
		b.netmask = b.data.GetString("netmask_" + b.iface)
	}
	if b.gateway == "" {
		b.gateway = b.data.GetString("gateway")
	}
	if b.dns == nil {
		if v, ok := b.data["name_servers"]; ok {
			b.dns = v
		}
	}
}

func (b *Builder) emitNetwork(h familyHandler, excludeDNS bool) {
	keys := h.netKeys()
	if b.iface != "" {
		if token := h.interfaceToken(b, b.iface); token != "" {
			b.emit(token)
		}
	}
	if b.ip != "" && keys.ip != "" {
		b.emit(keys.ip + "=" + b.ip)
	}
	if b.netmask != "" && keys.netmask != "" {
		b.emit(keys.netmask + "=" + b.netmask)
	}
	if b.gateway != "" && keys.gateway != "" {
		b.emit(keys.gateway + "=" + b.gateway)
	}
	if excludeDNS || b.dns == nil || keys.dns == "" {
		return
	}
	switch v := b.dns.(type) {
	case []string:
		if joined := strings.Join(v, ","); joined != "" {
			b.emit(keys.dns + "=" + joined)
		}
	case []interface{}:
		parts := make([]string, 0, len(v))
		for _, e := range v {
			parts = append(parts, fmt.Sprint(e))
		}
		if joined := strings.Join(parts, ","); joined != "" {
			b.emit(keys.dns + "=" + joined)
		}
	case string:
		if v != "" {
			b.emit(keys.dns + "=" + v)
		}
	}
}

// emitRemaining appends every kernel option no step consumed, sorted
// by key for stable output. List values produce one token per
// element; nil values produce a bare flag; spaces are escaped.
func (b *Builder) emitRemaining() {
	keys := make([]string, 0, len(b.kopts))
	for key := range b.kopts {
		if _, taken := b.consumed[key]; taken {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		switch v := b.kopts[key].(type) {
		case nil:
			b.emit(key)
		case []string:
			for _, e := range v {
				b.emit(key + "=" + escapeOption(e))
			}
		case []interface{}:
			for _, e := range v {
				b.emit(key + "=" + escapeOption(fmt.Sprint(e)))
			}
		default:
			b.emit(key + "=" + escapeOption(fmt.Sprint(v)))
		}
	}
}

func escapeOption(s string) string {
	return strings.ReplaceAll(s, " ", `\ `)
}
