// Package buildiso assembles bootable installer images: a network
// install menu over staged kernels and initrds, or fully standalone
// media carrying the install tree, autoinstall documents and,
// optionally, mirrored package repositories.
package buildiso

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/bootforge/bootforge/internal/autoinstall"
	"github.com/bootforge/bootforge/internal/config"
	"github.com/bootforge/bootforge/internal/fileutil"
	"github.com/bootforge/bootforge/internal/inventory"
	"github.com/bootforge/bootforge/internal/templates"
)

// defaultMenuHeader is the boot-menu preamble used when no template
// file is configured.
const defaultMenuHeader = `DEFAULT menu
PROMPT 0
MENU TITLE Bootforge | https://github.com/bootforge/bootforge
TIMEOUT 200
TOTALTIMEOUT 6000
ONTIMEOUT local

LABEL local
        MENU LABEL (local)
        MENU DEFAULT
        LOCALBOOT -1`

var fullURIRe = regexp.MustCompile(`^[a-z]+://`)

// Builder assembles ISO staging trees. It holds no per-run state;
// every build starts from a fresh run context.
type Builder struct {
	inv      inventory.Inventory
	settings *config.Settings
	renderer *templates.Renderer
	gen      *autoinstall.Generator
}

func New(inv inventory.Inventory, settings *config.Settings, renderer *templates.Renderer, gen *autoinstall.Generator) *Builder {
	return &Builder{inv: inv, settings: settings, renderer: renderer, gen: gen}
}

// runContext is the mutable state of one assembly invocation: the
// staging directories, the distro short-name memo and the recorded
// repository mirrors. Nothing in it survives the run.
type runContext struct {
	dir         string
	isolinuxDir string

	shortNames map[string]string
	counter    int

	// repoPaths maps repository name to its local mirror source,
	// consumed once by the airgap synchronizer.
	repoPaths map[string]string

	menu []string
}

func (b *Builder) newRunContext() (*runContext, error) {
	dir := filepath.Join(b.settings.BuildISODir, uuid.New().String())
	isolinuxDir := filepath.Join(dir, "isolinux")
	if err := os.MkdirAll(isolinuxDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating staging directory: %w", err)
	}
	run := &runContext{
		dir:         dir,
		isolinuxDir: isolinuxDir,
		shortNames:  map[string]string{},
		repoPaths:   map[string]string{},
	}
	header, err := b.menuHeader()
	if err != nil {
		return nil, err
	}
	run.menu = append(run.menu, header)
	return run, nil
}

func (b *Builder) menuHeader() (string, error) {
	if b.settings.ISOTemplateFile == "" {
		return defaultMenuHeader, nil
	}
	body, err := os.ReadFile(b.settings.ISOTemplateFile)
	if err != nil {
		return "", fmt.Errorf("reading boot-menu template: %w", err)
	}
	return strings.TrimRight(string(body), "\n"), nil
}

// shortName returns the memoized short identifier for a distro,
// staging its kernel and initrd into the isolinux directory the first
// time. Boot filenames keep legacy length constraints: the identifier
// is the distro name truncated to eight characters, with the run
// counter appended when two distros collide after truncation.
func (run *runContext) shortName(distro *inventory.Distro) (string, error) {
	if short, ok := run.shortNames[distro.Name]; ok {
		return short, nil
	}
	run.counter++
	short := distro.Name
	if len(short) > 8 {
		short = short[:8]
	}
	for _, existing := range run.shortNames {
		if existing == short {
			short = fmt.Sprintf("%s%d", short, run.counter)
			break
		}
	}
	run.shortNames[distro.Name] = short

	logrus.WithFields(logrus.Fields{
		"distro": distro.Name,
		"short":  short,
	}).Info("Staging boot files")
	if err := fileutil.CopyFile(distro.Kernel, filepath.Join(run.isolinuxDir, short+".krn")); err != nil {
		return "", fmt.Errorf("staging kernel for %s: %w", distro.Name, err)
	}
	if err := fileutil.CopyFile(distro.Initrd, filepath.Join(run.isolinuxDir, short+".img")); err != nil {
		return "", fmt.Errorf("staging initrd for %s: %w", distro.Name, err)
	}
	return short, nil
}

func (run *runContext) appendMenu(lines ...string) {
	run.menu = append(run.menu, lines...)
}

// writeMenu commits the assembled boot menu in a single write.
func (run *runContext) writeMenu() error {
	body := strings.Join(run.menu, "\n") + "\n"
	return fileutil.WriteFile(filepath.Join(run.isolinuxDir, "isolinux.cfg"), []byte(body))
}

// synthesizeAutoinstallURI replaces a bare autoinstall reference with
// the URL of the autoinstall endpoint for the target. The endpoint
// host and port come from the blend so per-target server overrides
// carry through; settings fill the gaps. Values that already are full
// URIs pass through.
func (b *Builder) synthesizeAutoinstallURI(data inventory.Blended, kind, name string) {
	value := data.GetString("autoinstall")
	if fullURIRe.MatchString(value) {
		return
	}
	server := data.GetString("server")
	if server == "" {
		server = b.settings.Server
	}
	port := data.GetString("http_port")
	if port == "" {
		port = strconv.Itoa(b.settings.HTTPPort)
	}
	data["autoinstall"] = fmt.Sprintf("%s://%s:%s/cblr/svc/op/autoinstall/%s/%s",
		b.settings.AutoinstallScheme, server, port, kind, name)
}

// selectProfiles resolves an allow-list of profile names, or all
// profiles when the list is empty. Unknown names are an error.
func (b *Builder) selectProfiles(names []string, distroFilter string) ([]*inventory.Profile, error) {
	if len(names) == 0 {
		if distroFilter != "" {
			return b.inv.ProfilesForDistro(distroFilter), nil
		}
		return b.inv.Profiles(), nil
	}
	selected := make([]*inventory.Profile, 0, len(names))
	for _, name := range names {
		profile, err := b.inv.FindProfile(name)
		if err != nil {
			return nil, err
		}
		if profile == nil {
			return nil, fmt.Errorf("profile %s not found", name)
		}
		if distroFilter != "" && profile.Distro != distroFilter {
			return nil, fmt.Errorf("profile %s does not belong to distro %s", name, distroFilter)
		}
		selected = append(selected, profile)
	}
	return selected, nil
}

// selectSystems resolves an allow-list of system names, or all
// systems when the list is empty. Unknown names are an error; systems
// without a profile parent are silently excluded, they cannot
// network-install.
func (b *Builder) selectSystems(names []string) ([]*inventory.System, error) {
	var candidates []*inventory.System
	if len(names) == 0 {
		candidates = b.inv.Systems()
	} else {
		for _, name := range names {
			system, err := b.inv.FindSystem(name)
			if err != nil {
				return nil, err
			}
			if system == nil {
				return nil, fmt.Errorf("system %s not found", name)
			}
			candidates = append(candidates, system)
		}
	}
	selected := make([]*inventory.System, 0, len(candidates))
	for _, system := range candidates {
		if system.Profile == "" {
			logrus.WithField("system", system.Name).Debug("Skipping system without profile parent")
			continue
		}
		selected = append(selected, system)
	}
	return selected, nil
}

func (b *Builder) distroForProfile(profile *inventory.Profile) (*inventory.Distro, error) {
	return inventory.DistroForProfile(b.inv, profile)
}
