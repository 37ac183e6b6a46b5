package buildiso

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bootforge/bootforge/internal/autoinstall"
	"github.com/bootforge/bootforge/internal/config"
	"github.com/bootforge/bootforge/internal/inventory"
	"github.com/bootforge/bootforge/internal/templates"
)

func testSettings(t *testing.T) *config.Settings {
	t.Helper()
	return &config.Settings{
		Server:              "10.0.0.1",
		HTTPPort:            80,
		AutoinstallScheme:   "http",
		WebDir:              t.TempDir(),
		BuildISODir:         t.TempDir(),
		SnippetsDir:         t.TempDir(),
		TemplatesDir:        t.TempDir(),
		DefaultTemplateType: "gotpl",
	}
}

// writeBootFiles creates kernel and initrd files and points the
// distro at them.
func writeBootFiles(t *testing.T, distro *inventory.Distro) {
	t.Helper()
	dir := t.TempDir()
	distro.Kernel = filepath.Join(dir, "vmlinuz")
	distro.Initrd = filepath.Join(dir, "initrd.img")
	require.NoError(t, os.WriteFile(distro.Kernel, []byte("kernel"), 0o644))
	require.NoError(t, os.WriteFile(distro.Initrd, []byte("initrd"), 0o644))
}

func testBuilder(t *testing.T, inv inventory.Inventory, settings *config.Settings) *Builder {
	t.Helper()
	registry := templates.NewRegistry(templates.NewGotplProvider(), templates.NewJinjaProvider())
	renderer := templates.NewRenderer(registry, templates.NewSnippetStore(settings.SnippetsDir), settings.DefaultTemplateType)
	gen := autoinstall.NewGenerator(inv, settings, renderer)
	return New(inv, settings, renderer, gen)
}

func netbootInventory(t *testing.T) (*inventory.StaticInventory, *inventory.Distro) {
	t.Helper()
	d1 := &inventory.Distro{Name: "d1", Breed: "redhat", OSVersion: "rhel9"}
	writeBootFiles(t, d1)
	inv := &inventory.StaticInventory{
		DistroItems: []*inventory.Distro{d1},
		ProfileItems: []*inventory.Profile{
			{Name: "p1", Distro: "d1"},
		},
		SystemItems: []*inventory.System{
			{Name: "s1", Profile: "p1"},
			{Name: "detached", Profile: ""},
		},
		Blends: map[string]inventory.Blended{},
		Defaults: map[string]interface{}{
			"server":    "10.0.0.1",
			"http_port": "80",
		},
	}
	return inv, d1
}

func TestNetbootProfileEntry(t *testing.T) {
	inv, _ := netbootInventory(t)
	b := testBuilder(t, inv, testSettings(t))

	run, err := b.newRunContext()
	require.NoError(t, err)
	defer os.RemoveAll(run.dir)

	profile, err := inv.FindProfile("p1")
	require.NoError(t, err)
	require.NoError(t, b.netbootProfileEntry(run, profile))

	menu := run.menu
	require.GreaterOrEqual(t, len(menu), 5)
	// stanzas are separated by a blank line
	assert.Equal(t, "", menu[len(menu)-5])
	assert.Equal(t, "LABEL p1", menu[len(menu)-4])
	assert.Equal(t, "  MENU LABEL p1", menu[len(menu)-3])
	assert.Equal(t, "  kernel d1.krn", menu[len(menu)-2])
	assert.Equal(t, " append initrd=d1.img inst.ks=http://10.0.0.1:80/cblr/svc/op/autoinstall/profile/p1", menu[len(menu)-1])

	// boot files staged under the short name
	assert.FileExists(t, filepath.Join(run.isolinuxDir, "d1.krn"))
	assert.FileExists(t, filepath.Join(run.isolinuxDir, "d1.img"))
}

func TestNetbootSystemEntry(t *testing.T) {
	inv, _ := netbootInventory(t)
	b := testBuilder(t, inv, testSettings(t))

	run, err := b.newRunContext()
	require.NoError(t, err)
	defer os.RemoveAll(run.dir)

	system, err := inv.FindSystem("s1")
	require.NoError(t, err)
	require.NoError(t, b.netbootSystemEntry(run, system, false))

	menu := run.menu
	assert.Equal(t, "  KERNEL d1.krn", menu[len(menu)-2])
	assert.Equal(t, "  APPEND initrd=d1.img inst.ks=http://10.0.0.1:80/cblr/svc/op/autoinstall/system/s1", menu[len(menu)-1])
}

func TestShortNameMemoization(t *testing.T) {
	inv, d1 := netbootInventory(t)
	b := testBuilder(t, inv, testSettings(t))

	run, err := b.newRunContext()
	require.NoError(t, err)
	defer os.RemoveAll(run.dir)

	first, err := run.shortName(d1)
	require.NoError(t, err)
	second, err := run.shortName(d1)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, run.counter)
}

func TestShortNameTruncationAndCollision(t *testing.T) {
	inv, _ := netbootInventory(t)
	b := testBuilder(t, inv, testSettings(t))

	run, err := b.newRunContext()
	require.NoError(t, err)
	defer os.RemoveAll(run.dir)

	long1 := &inventory.Distro{Name: "verylongdistroname-a"}
	long2 := &inventory.Distro{Name: "verylongdistroname-b"}
	writeBootFiles(t, long1)
	writeBootFiles(t, long2)

	short1, err := run.shortName(long1)
	require.NoError(t, err)
	assert.Equal(t, "verylong", short1)
	short2, err := run.shortName(long2)
	require.NoError(t, err)
	assert.NotEqual(t, short1, short2)
	assert.LessOrEqual(t, len(short2), 10)
}

func TestSelectProfilesUnknownName(t *testing.T) {
	inv, _ := netbootInventory(t)
	b := testBuilder(t, inv, testSettings(t))

	_, err := b.selectProfiles([]string{"nope"}, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope")
}

func TestSelectSystemsSkipsDetached(t *testing.T) {
	inv, _ := netbootInventory(t)
	b := testBuilder(t, inv, testSettings(t))

	systems, err := b.selectSystems(nil)
	require.NoError(t, err)
	require.Len(t, systems, 1)
	assert.Equal(t, "s1", systems[0].Name)

	_, err = b.selectSystems([]string{"nope"})
	assert.Error(t, err)
}

func TestSynthesizeAutoinstallURIPassesThroughFullURIs(t *testing.T) {
	inv, _ := netbootInventory(t)
	b := testBuilder(t, inv, testSettings(t))

	data := inventory.Blended{"autoinstall": "https://elsewhere.example/ks.cfg"}
	b.synthesizeAutoinstallURI(data, "profile", "p1")
	assert.Equal(t, "https://elsewhere.example/ks.cfg", data["autoinstall"])

	data = inventory.Blended{"autoinstall": "ks.cfg"}
	b.synthesizeAutoinstallURI(data, "profile", "p1")
	assert.Equal(t, "http://10.0.0.1:80/cblr/svc/op/autoinstall/profile/p1", data["autoinstall"])
}

func TestSynthesizeAutoinstallURIHonorsBlendServer(t *testing.T) {
	inv, _ := netbootInventory(t)
	b := testBuilder(t, inv, testSettings(t))

	data := inventory.Blended{
		"autoinstall": "",
		"server":      "192.168.5.5",
		"http_port":   "8080",
	}
	b.synthesizeAutoinstallURI(data, "system", "s1")
	assert.Equal(t, "http://192.168.5.5:8080/cblr/svc/op/autoinstall/system/s1", data["autoinstall"])
}

func TestMenuHeaderDefault(t *testing.T) {
	inv, _ := netbootInventory(t)
	b := testBuilder(t, inv, testSettings(t))

	run, err := b.newRunContext()
	require.NoError(t, err)
	defer os.RemoveAll(run.dir)

	require.NotEmpty(t, run.menu)
	assert.Contains(t, run.menu[0], "DEFAULT menu")
	assert.Contains(t, run.menu[0], "ONTIMEOUT local")
}
