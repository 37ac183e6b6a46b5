package buildiso

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/bootforge/bootforge/internal/autoinstall"
	"github.com/bootforge/bootforge/internal/cmdline"
	"github.com/bootforge/bootforge/internal/fileutil"
	"github.com/bootforge/bootforge/internal/inventory"
)

// StandaloneOptions selects the distro and descendants of a
// standalone (optionally airgapped) image.
type StandaloneOptions struct {
	ISOPath string
	Distro  string
	// Profiles restricts the built descendants; empty means every
	// profile of the distro. Each named profile must be a child of
	// the distro.
	Profiles []string
	// Source overrides the derived installation tree.
	Source        string
	Airgapped     bool
	XorrisofsOpts []string
}

// BuildStandalone assembles an ISO that installs without the network:
// the install tree, the rendered autoinstall documents and, for
// airgapped builds, local repository mirrors all travel on the
// medium.
func (b *Builder) BuildStandalone(opts StandaloneOptions) error {
	if opts.Distro == "" {
		return fmt.Errorf("standalone build requires a distro")
	}
	distro, err := b.inv.FindDistro(opts.Distro)
	if err != nil {
		return err
	}
	if distro == nil {
		return fmt.Errorf("distro %s not found", opts.Distro)
	}
	profiles, err := b.selectProfiles(opts.Profiles, distro.Name)
	if err != nil {
		return err
	}

	source := opts.Source
	if source == "" {
		source, err = b.deriveInstallSource(distro)
		if err != nil {
			return err
		}
	}

	run, err := b.newRunContext()
	if err != nil {
		return err
	}
	defer os.RemoveAll(run.dir)

	if opts.Airgapped {
		if err := b.validateAirgapRepos(run, profiles); err != nil {
			return err
		}
	}

	if err := fileutil.CopyFile(distro.Kernel, filepath.Join(run.isolinuxDir, filepath.Base(distro.Kernel))); err != nil {
		return fmt.Errorf("staging kernel for %s: %w", distro.Name, err)
	}
	if err := fileutil.CopyFile(distro.Initrd, filepath.Join(run.isolinuxDir, filepath.Base(distro.Initrd))); err != nil {
		return fmt.Errorf("staging initrd for %s: %w", distro.Name, err)
	}

	for _, profile := range profiles {
		if err := b.standaloneEntry(run, distro, profile, nil, opts.Airgapped); err != nil {
			return err
		}
		for _, system := range b.inv.SystemsForProfile(profile.Name) {
			if err := b.standaloneEntry(run, distro, profile, system, opts.Airgapped); err != nil {
				return err
			}
		}
	}
	run.appendMenu("", "MENU END")

	if err := run.writeMenu(); err != nil {
		return err
	}
	if opts.Airgapped {
		if err := b.syncRepoMirrors(run); err != nil {
			return err
		}
	}
	if err := fileutil.CopyTree(source, run.dir, []string{"boot.cat", "TRANS.TBL", "isolinux/"}); err != nil {
		return fmt.Errorf("copying installation source %s: %w", source, err)
	}
	return masterISO(opts.ISOPath, run.dir, opts.XorrisofsOpts)
}

// deriveInstallSource locates the installation tree a distro was
// imported from by walking its kernel path up to the distro_mirror
// root.
func (b *Builder) deriveInstallSource(distro *inventory.Distro) (string, error) {
	mirrorRoot := filepath.Join(b.settings.WebDir, "distro_mirror")
	dir := filepath.Dir(distro.Kernel)
	for dir != "/" && dir != "." {
		parent := filepath.Dir(dir)
		if parent == mirrorRoot {
			return dir, nil
		}
		dir = parent
	}
	return "", fmt.Errorf("no installation source found for distro %s under %s; pass an explicit source", distro.Name, mirrorRoot)
}

// standaloneEntry writes the descendant's autoinstall document onto
// the medium and appends its menu stanza. system is nil for the
// profile's own entry.
func (b *Builder) standaloneEntry(run *runContext, distro *inventory.Distro, profile *inventory.Profile, system *inventory.System, airgapped bool) error {
	name := profile.Name
	kind := "profile"
	var data inventory.Blended
	var document string
	var err error
	if system != nil {
		name = system.Name
		kind = "system"
		data, err = b.inv.BlendSystem(system.Name)
		if err != nil {
			return err
		}
		document, err = b.gen.ForSystem(system.Name)
	} else {
		data, err = b.inv.BlendProfile(profile.Name)
		if err != nil {
			return err
		}
		document, err = b.gen.ForProfile(profile.Name)
	}
	if err != nil {
		return fmt.Errorf("generating autoinstall document for %s %s: %w", kind, name, err)
	}

	data = data.Copy()
	breed := cmdline.BreedOf(distro.Breed)
	if kopts, ok := data.KernelOptions(); ok {
		cmdline.OverwriteKernelOptions(kopts, breed)
	}

	if breed == cmdline.BreedRedHat {
		document = autoinstall.ReplaceInstallSourceWithCDROM(document)
	}
	if airgapped {
		document = b.rewriteForAirgap(document, data)
	}
	if err := fileutil.WriteFile(filepath.Join(run.isolinuxDir, name+".cfg"), []byte(document)); err != nil {
		return err
	}

	line, err := cmdline.BuildStandalone(distro, name, data)
	if err != nil {
		return fmt.Errorf("compiling append line for %s %s: %w", kind, name, err)
	}

	logrus.WithFields(logrus.Fields{kind: name}).Debug("Adding standalone menu entry")
	if system != nil {
		run.appendMenu(
			"",
			"LABEL "+name,
			"  MENU INDENT 4",
			"  MENU LABEL "+name,
			"  KERNEL "+filepath.Base(distro.Kernel),
			line,
		)
	} else {
		run.appendMenu(
			"",
			"LABEL "+name,
			"  MENU LABEL "+name,
			"  KERNEL "+filepath.Base(distro.Kernel),
			line,
		)
	}
	return nil
}

// validateAirgapRepos checks every repository the selected
// descendants reference and records its local mirror path. Any
// unusable repository fails the whole build before staging begins.
func (b *Builder) validateAirgapRepos(run *runContext, profiles []*inventory.Profile) error {
	for _, profile := range profiles {
		if err := b.validateDescendantRepos(run, "profile", profile.Name); err != nil {
			return err
		}
		for _, system := range b.inv.SystemsForProfile(profile.Name) {
			if err := b.validateDescendantRepos(run, "system", system.Name); err != nil {
				return err
			}
		}
	}
	return nil
}

func (b *Builder) validateDescendantRepos(run *runContext, kind, name string) error {
	var data inventory.Blended
	var err error
	if kind == "system" {
		data, err = b.inv.BlendSystem(name)
	} else {
		data, err = b.inv.BlendProfile(name)
	}
	if err != nil {
		return err
	}
	for _, repoName := range data.GetStringList("repos") {
		repo, err := b.inv.FindRepo(repoName)
		if err != nil {
			return err
		}
		if repo == nil {
			return airgapRepoError(kind, name, repoName, "does not exist")
		}
		if !repo.MirrorLocally {
			return airgapRepoError(kind, name, repoName, "is not configured for local mirroring")
		}
		mirror := filepath.Join(b.settings.WebDir, "repo_mirror", repoName)
		if info, statErr := os.Stat(mirror); statErr != nil || !info.IsDir() {
			return airgapRepoError(kind, name, repoName, "has a missing local mirror directory")
		}
		run.repoPaths[repoName] = mirror
	}
	return nil
}

func airgapRepoError(kind, name, repo, msg string) error {
	return fmt.Errorf("%s %s refers to repo %s, which %s; cannot build airgapped ISO", kind, name, repo, msg)
}

// rewriteForAirgap points a descendant's autoinstall document at the
// copies bundled on the medium: each referenced repository's baseurl
// (first occurrence per repo) and every install-tree reference.
func (b *Builder) rewriteForAirgap(document string, data inventory.Blended) string {
	for _, repoName := range data.GetStringList("repos") {
		re := regexp.MustCompile(`(?m)^(\s*repo --name=` + regexp.QuoteMeta(repoName) + ` --baseurl=).*$`)
		replaced := false
		document = re.ReplaceAllStringFunc(document, func(line string) string {
			if replaced {
				return line
			}
			replaced = true
			return re.ReplaceAllString(line, "${1}file:///mnt/source/repo_mirror/"+repoName)
		})
	}
	server := data.GetString("server")
	if server == "" {
		server = b.settings.Server
	}
	// Rendered documents may or may not carry the port (the default
	// port is elided), so the tree reference matches either form.
	treeRe := regexp.MustCompile(
		regexp.QuoteMeta(b.settings.AutoinstallScheme+"://"+server) +
			`(:\d+)?` +
			regexp.QuoteMeta("/cblr/links/"+data.GetString("distro_name")))
	document = treeRe.ReplaceAllString(document, "file:///mnt/source")
	return document
}

// syncRepoMirrors copies every recorded repository mirror into the
// media tree. A single failed copy aborts the build; an airgapped
// image missing a repository is unusable.
func (b *Builder) syncRepoMirrors(run *runContext) error {
	names := make([]string, 0, len(run.repoPaths))
	for name := range run.repoPaths {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		dst := filepath.Join(run.dir, "repo_mirror", name)
		logrus.WithField("repo", name).Info("Mirroring repository onto media")
		if err := fileutil.CopyTree(run.repoPaths[name], dst, []string{"TRANS.TBL", "cache/"}); err != nil {
			return fmt.Errorf("mirroring repo %s: %w", name, err)
		}
	}
	return nil
}
