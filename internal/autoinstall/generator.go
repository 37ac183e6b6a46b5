// Package autoinstall produces installer documents (kickstart,
// AutoYaST, preseed and friends) for profiles and systems. Generation
// dispatches on the template family; each family applies its own
// post-processing on top of the shared template renderer.
package autoinstall

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bootforge/bootforge/internal/config"
	"github.com/bootforge/bootforge/internal/inventory"
	"github.com/bootforge/bootforge/internal/templates"
)

// Sentinel documents returned for lookups that miss. These are body
// text, not errors: the HTTP surface serves them verbatim and
// installers treat them as empty configuration.
const (
	SentinelProfileNotFound = "# profile not found"
	SentinelSystemNotFound  = "# system not found"
	SentinelImageBased      = "# image based systems do not have automatic installation files"
)

// UnknownTemplateTypeError reports a template family with no
// registered generator. This is a configuration error.
type UnknownTemplateTypeError struct {
	Type string
}

func (e *UnknownTemplateTypeError) Error() string {
	return fmt.Sprintf("unknown autoinstall template type %q", e.Type)
}

// familyGenerator turns template text into the final document for one
// family.
type familyGenerator interface {
	generate(g *Generator, t target, body string, data inventory.Blended) (string, error)
}

// target carries the object identity a family generator may embed in
// the document.
type target struct {
	// kind is "profile" or "system".
	kind string
	name string
}

// Generator dispatches document generation per template family.
type Generator struct {
	inv      inventory.Inventory
	settings *config.Settings
	renderer *templates.Renderer
	families map[string]familyGenerator
}

func NewGenerator(inv inventory.Inventory, settings *config.Settings, renderer *templates.Renderer) *Generator {
	return &Generator{
		inv:      inv,
		settings: settings,
		renderer: renderer,
		families: map[string]familyGenerator{
			"autoyast":   &autoyastGenerator{},
			"kickstart":  plainGenerator{},
			"preseed":    plainGenerator{},
			"cloud-init": plainGenerator{},
			"legacy":     plainGenerator{},
		},
	}
}

// ForProfile generates the autoinstall document for a profile. A
// missing profile yields a sentinel document; a profile whose distro
// chain is broken is an error.
func (g *Generator) ForProfile(name string) (string, error) {
	profile, err := g.inv.FindProfile(name)
	if err != nil {
		return "", err
	}
	if profile == nil {
		return SentinelProfileNotFound, nil
	}
	distro, err := inventory.DistroForProfile(g.inv, profile)
	if err != nil {
		return "", err
	}
	if distro == nil {
		return "", fmt.Errorf("profile %s has no distribution", profile.Name)
	}

	data, err := g.inv.BlendProfile(profile.Name)
	if err != nil {
		return "", err
	}
	return g.generate(target{kind: "profile", name: profile.Name}, distro, profile, data)
}

// ForSystem generates the autoinstall document for a system. A system
// whose profile chain resolves to no distro is image based and gets a
// sentinel document rather than an error.
func (g *Generator) ForSystem(name string) (string, error) {
	system, err := g.inv.FindSystem(name)
	if err != nil {
		return "", err
	}
	if system == nil {
		return SentinelSystemNotFound, nil
	}
	profile, err := g.inv.FindProfile(system.Profile)
	if err != nil {
		return "", err
	}
	if profile == nil {
		return "", fmt.Errorf("system %s references missing profile %s", system.Name, system.Profile)
	}
	var distro *inventory.Distro
	if profile.Distro != "" {
		distro, err = g.inv.FindDistro(profile.Distro)
		if err != nil {
			return "", err
		}
	}
	if distro == nil {
		return SentinelImageBased, nil
	}

	data, err := g.inv.BlendSystem(system.Name)
	if err != nil {
		return "", err
	}
	return g.generate(target{kind: "system", name: system.Name}, distro, profile, data)
}

func (g *Generator) generate(t target, distro *inventory.Distro, profile *inventory.Profile, data inventory.Blended) (string, error) {
	family := templateFamilyFor(distro, profile)
	gen, ok := g.families[family]
	if !ok {
		return "", &UnknownTemplateTypeError{Type: family}
	}
	body, err := g.templateBody(profile.Autoinstall)
	if err != nil {
		return "", err
	}
	return gen.generate(g, t, body, data)
}

// templateBody resolves a stored template reference to source text.
// An empty reference renders to an empty document.
func (g *Generator) templateBody(ref string) (string, error) {
	if ref == "" {
		return "", nil
	}
	path := ref
	if !filepath.IsAbs(path) {
		path = filepath.Join(g.settings.TemplatesDir, ref)
	}
	body, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading autoinstall template %s: %w", ref, err)
	}
	return string(body), nil
}

// templateFamilyFor resolves the template family for a target. An
// explicit template type on the profile wins; otherwise the distro's
// breed decides.
func templateFamilyFor(distro *inventory.Distro, profile *inventory.Profile) string {
	if profile.TemplateType != "" {
		return profile.TemplateType
	}
	switch distro.Breed {
	case "suse":
		return "autoyast"
	case "redhat":
		return "kickstart"
	case "debian", "ubuntu":
		return "preseed"
	}
	return "legacy"
}

// plainGenerator renders the template with no family-specific
// post-processing.
type plainGenerator struct{}

func (plainGenerator) generate(g *Generator, t target, body string, data inventory.Blended) (string, error) {
	return g.renderer.Render(body, data, "")
}
