package autoinstall

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bootforge/bootforge/internal/config"
	"github.com/bootforge/bootforge/internal/inventory"
	"github.com/bootforge/bootforge/internal/templates"
)

func testInventory() *inventory.StaticInventory {
	return &inventory.StaticInventory{
		DistroItems: []*inventory.Distro{
			{Name: "d1", Breed: "suse", OSVersion: "sles15"},
			{Name: "d2", Breed: "redhat", OSVersion: "rhel9"},
		},
		ProfileItems: []*inventory.Profile{
			{Name: "p1", Distro: "d1", Autoinstall: "ay.xml"},
			{Name: "p2", Distro: "d2", Autoinstall: "ks.cfg"},
			{Name: "orphan", Distro: ""},
			{Name: "image-profile", Distro: ""},
		},
		SystemItems: []*inventory.System{
			{Name: "s1", Profile: "p1"},
			{Name: "img1", Profile: "image-profile"},
		},
		Blends: map[string]inventory.Blended{},
		Defaults: map[string]interface{}{
			"server":    "10.0.0.1",
			"http_port": "80",
		},
	}
}

func testGenerator(t *testing.T, triggers bool, inv inventory.Inventory, templatesDir string) *Generator {
	t.Helper()
	settings := &config.Settings{
		Server:              "10.0.0.1",
		HTTPPort:            80,
		AutoinstallScheme:   "http",
		TemplatesDir:        templatesDir,
		SnippetsDir:         t.TempDir(),
		DefaultTemplateType: "gotpl",
		RunInstallTriggers:  triggers,
	}
	registry := templates.NewRegistry(templates.NewGotplProvider(), templates.NewJinjaProvider())
	renderer := templates.NewRenderer(registry, templates.NewSnippetStore(settings.SnippetsDir), settings.DefaultTemplateType)
	return NewGenerator(inv, settings, renderer)
}

func writeTemplate(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestForProfileSentinels(t *testing.T) {
	g := testGenerator(t, false, testInventory(), t.TempDir())

	doc, err := g.ForProfile("does-not-exist")
	require.NoError(t, err)
	assert.Equal(t, SentinelProfileNotFound, doc)

	_, err = g.ForProfile("orphan")
	assert.Error(t, err)
}

func TestForSystemSentinels(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "ay.xml", `<?xml version="1.0"?><profile/>`)
	g := testGenerator(t, false, testInventory(), dir)

	doc, err := g.ForSystem("does-not-exist")
	require.NoError(t, err)
	assert.Equal(t, SentinelSystemNotFound, doc)

	doc, err = g.ForSystem("img1")
	require.NoError(t, err)
	assert.Equal(t, SentinelImageBased, doc)
}

func TestUnknownTemplateType(t *testing.T) {
	inv := testInventory()
	inv.ProfileItems = append(inv.ProfileItems, &inventory.Profile{
		Name: "weird", Distro: "d2", TemplateType: "nonsense",
	})
	g := testGenerator(t, false, inv, t.TempDir())

	_, err := g.ForProfile("weird")
	require.Error(t, err)
	var unknownErr *UnknownTemplateTypeError
	assert.ErrorAs(t, err, &unknownErr)
	assert.Equal(t, "nonsense", unknownErr.Type)
}

func TestKickstartGeneration(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "ks.cfg", "url --url=http://@@server@@/tree\n%packages\n@core\n%end\n")
	g := testGenerator(t, false, testInventory(), dir)

	doc, err := g.ForProfile("p2")
	require.NoError(t, err)
	assert.Contains(t, doc, "url --url=http://10.0.0.1/tree")
	assert.Contains(t, doc, "%packages")
}

func TestReplaceInstallSourceWithCDROM(t *testing.T) {
	doc := "firstline\nurl --url=http://example/tree\nurl --url=http://other/tree\n"
	out := ReplaceInstallSourceWithCDROM(doc)
	assert.Contains(t, out, "cdrom\n")
	// only the first source line is rewritten
	assert.Contains(t, out, "url --url=http://other/tree")
	assert.NotContains(t, out, "url --url=http://example/tree")
}
