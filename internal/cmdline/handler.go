package cmdline

import (
	"fmt"
	"strings"

	"github.com/bootforge/bootforge/internal/inventory"
)

// netKeys names the kernel-option keys a family uses for static
// network configuration. The same names serve as override-lookup keys
// and as emission keys. A zero field disables that aspect for the
// family.
type netKeys struct {
	iface   string
	ip      string
	netmask string
	gateway string
	dns     string
}

// familyHandler is implemented once per Breed. The handler emits the
// family-specific installer-invocation arguments for each of the
// three compile modes and describes the family's static-network
// vocabulary.
type familyHandler interface {
	profileArgs(b *Builder)
	systemArgs(b *Builder, system *inventory.System)
	standaloneArgs(b *Builder, distro *inventory.Distro, descendant string)
	netKeys() netKeys
	interfaceToken(b *Builder, iface string) string
}

// handlers is the closed registry. Unknown breeds resolve to the
// generic handler.
var handlers = map[Breed]familyHandler{
	BreedRedHat:  redhatHandler{},
	BreedSUSE:    suseHandler{},
	BreedDebian:  debianHandler{},
	BreedGeneric: genericHandler{},
}

func handlerFor(breed Breed) familyHandler {
	if h, ok := handlers[breed]; ok {
		return h
	}
	return handlers[BreedGeneric]
}

type redhatHandler struct{}

func (redhatHandler) profileArgs(b *Builder) {
	if proxy := b.data.GetString("proxy"); proxy != "" {
		b.emit("proxy=" + proxy + " http_proxy=" + proxy)
	}
	b.emit(redhatAutoinstallKey(b.osVersion) + "=" + b.data.GetString("autoinstall"))
}

func (h redhatHandler) systemArgs(b *Builder, system *inventory.System) {
	h.profileArgs(b)
}

func (redhatHandler) standaloneArgs(b *Builder, distro *inventory.Distro, descendant string) {
	b.emit(redhatAutoinstallKey(distro.OSVersion) + "=cdrom:/isolinux/" + descendant + ".cfg")
}

func (redhatHandler) netKeys() netKeys {
	return netKeys{iface: "ksdevice", ip: "ip", netmask: "netmask", gateway: "gateway", dns: "dns"}
}

func (redhatHandler) interfaceToken(b *Builder, iface string) string {
	if mac := b.data.GetString("mac_address_" + iface); mac != "" {
		return "ksdevice=" + mac
	}
	return "ksdevice=" + iface
}

func redhatAutoinstallKey(osVersion string) string {
	if legacyAutoinstallVersions[osVersion] {
		return "ks"
	}
	return "inst.ks"
}

type suseHandler struct{}

func (suseHandler) profileArgs(b *Builder) {
	if proxy := b.data.GetString("proxy"); proxy != "" {
		b.emit("proxy=" + proxy)
	}
	if install, ok := b.take("install"); ok {
		b.emit("install=" + install)
	} else {
		b.emit(fmt.Sprintf("install=%s://%s:%s/cblr/links/%s",
			b.scheme, b.data.GetString("server"), b.data.GetString("http_port"), b.installTreeName))
	}
	if autoyast, ok := b.take("autoyast"); ok {
		b.emit("autoyast=" + autoyast)
	} else {
		b.emit("autoyast=" + b.data.GetString("autoinstall"))
	}
}

func (h suseHandler) systemArgs(b *Builder, system *inventory.System) {
	h.profileArgs(b)
}

func (suseHandler) standaloneArgs(b *Builder, distro *inventory.Distro, descendant string) {
	b.emit("autoyast=file:///isolinux/" + descendant + ".cfg install=cdrom:///")
	// An install override has no meaning when the source is the
	// medium itself; consume it so it does not resurface in the
	// remaining-options tail.
	b.consume("install")
}

func (suseHandler) netKeys() netKeys {
	return netKeys{iface: "netdevice", ip: "hostip", netmask: "netmask", gateway: "gateway", dns: "nameserver"}
}

func (suseHandler) interfaceToken(b *Builder, iface string) string {
	if mac := b.data.GetString("mac_address_" + iface); mac != "" {
		return "netdevice=" + strings.ToLower(mac)
	}
	return "netdevice=" + iface
}

type debianHandler struct{}

func (debianHandler) profileArgs(b *Builder) {
	b.emit("auto-install/enable=true url=" + b.data.GetString("autoinstall"))
	if proxy := b.data.GetString("proxy"); proxy != "" {
		b.emit("mirror/http/proxy=" + proxy)
	}
}

func (debianHandler) systemArgs(b *Builder, system *inventory.System) {
	b.emit("auto-install/enable=true url=" + b.data.GetString("autoinstall") + " netcfg/disable_autoconfig=true")
	if proxy := b.data.GetString("proxy"); proxy != "" {
		b.emit("mirror/http/proxy=" + proxy)
	}
	// The installer requires hostname and domain as parameters; the
	// ones in the preseed are not respected.
	hostname, domain := splitHostname(system)
	b.emit("hostname=" + hostname + " domain=" + domain)
	// The suite name must match a directory under dists/ on the
	// mirror.
	b.emit("suite=" + b.osVersion)
}

func (debianHandler) standaloneArgs(b *Builder, distro *inventory.Distro, descendant string) {
	b.emit("auto-install/enable=true preseed/file=/cdrom/isolinux/" + descendant + ".cfg")
}

func (debianHandler) netKeys() netKeys {
	return netKeys{
		iface:   "netcfg/choose_interface",
		ip:      "netcfg/get_ipaddress",
		netmask: "netcfg/get_netmask",
		gateway: "netcfg/get_gateway",
		dns:     "netcfg/get_nameservers",
	}
}

func (debianHandler) interfaceToken(b *Builder, iface string) string {
	return "netcfg/choose_interface=" + iface
}

// splitHostname derives hostname and domain from a system's dotted
// hostname, falling back to its name. A name without labels past the
// first gets the local.lan default domain.
func splitHostname(system *inventory.System) (string, string) {
	source := system.Hostname
	if source == "" {
		source = system.Name
	}
	labels := strings.Split(source, ".")
	if len(labels) > 1 {
		return labels[0], strings.Join(labels[1:], ".")
	}
	return labels[0], "local.lan"
}

type genericHandler struct{}

func (genericHandler) profileArgs(b *Builder)                            {}
func (genericHandler) systemArgs(b *Builder, system *inventory.System)   {}
func (genericHandler) standaloneArgs(b *Builder, d *inventory.Distro, n string) {}
func (genericHandler) netKeys() netKeys                                  { return netKeys{} }
func (genericHandler) interfaceToken(b *Builder, iface string) string    { return "" }
