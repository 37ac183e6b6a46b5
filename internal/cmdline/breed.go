// Package cmdline compiles kernel append lines for boot-menu entries.
// One compiler invocation produces one line; builders are not reused
// across targets.
package cmdline

// Breed tags the installer family a distro belongs to. Every
// family-specific branch in the compiler hangs off this closed set.
type Breed string

const (
	BreedRedHat Breed = "redhat"
	BreedSUSE   Breed = "suse"
	BreedDebian Breed = "debian"
	// BreedGeneric covers everything else; only initrd and the
	// remaining kernel options are emitted for it.
	BreedGeneric Breed = "generic"
)

// BreedOf maps a distro's breed string onto the compiler's closed
// family set. Debian and Ubuntu trees share one installer family.
func BreedOf(breed string) Breed {
	switch breed {
	case "redhat":
		return BreedRedHat
	case "suse":
		return BreedSUSE
	case "debian", "ubuntu":
		return BreedDebian
	}
	return BreedGeneric
}

// legacyAutoinstallVersions are the redhat-family releases whose
// installers only understand the unprefixed ks= parameter.
var legacyAutoinstallVersions = map[string]bool{
	"rhel4":    true,
	"rhel5":    true,
	"rhel6":    true,
	"fedora16": true,
}

// OverwriteKernelOptions applies family-specific option spellings
// before compilation. SUSE installers take textmode=1 where everyone
// else takes a bare text flag. The map is mutated; callers pass a
// copy of the blended options.
func OverwriteKernelOptions(kopts map[string]interface{}, breed Breed) {
	if breed != BreedSUSE {
		return
	}
	if _, ok := kopts["textmode"]; ok {
		delete(kopts, "text")
		return
	}
	if _, ok := kopts["text"]; ok {
		delete(kopts, "text")
		kopts["textmode"] = []string{"1"}
	}
}
