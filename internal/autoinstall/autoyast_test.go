package autoinstall

import (
	"strings"
	"testing"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const autoyastTemplate = `<?xml version="1.0"?>
<profile xmlns="http://www.suse.com/1.0/yast2ns" xmlns:config="http://www.suse.com/1.0/configns">
  <users config:type="list"/>
</profile>
`

const annotatedTemplate = `<?xml version="1.0"?>
<profile xmlns="http://www.suse.com/1.0/yast2ns" xmlns:config="http://www.suse.com/1.0/configns">
  <cobbler>
    <system_name/>
    <profile_name>p1</profile_name>
    <server>10.0.0.1</server>
  </cobbler>
  <scripts>
    <pre-scripts config:type="list">
      <script>
        <source><![CDATA[
curl "http://10.0.0.1/cblr/svc/op/trig/mode/pre/profile/p1" > /dev/null]]></source>
        <filename>pre-scripts_cobbler</filename>
      </script>
    </pre-scripts>
  </scripts>
</profile>
`

func parseDoc(t *testing.T, body string) *etree.Document {
	t.Helper()
	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromString(body))
	return doc
}

func TestAutoYaSTMetadataInjection(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "ay.xml", autoyastTemplate)
	g := testGenerator(t, false, testInventory(), dir)

	out, err := g.ForProfile("p1")
	require.NoError(t, err)

	doc := parseDoc(t, out)
	meta := doc.FindElement("//cobbler")
	require.NotNil(t, meta)
	assert.Equal(t, "p1", meta.SelectElement("profile_name").Text())
	assert.Equal(t, "", meta.SelectElement("system_name").Text())
	assert.Equal(t, "10.0.0.1", meta.SelectElement("server").Text())

	var children []string
	for _, el := range meta.ChildElements() {
		children = append(children, el.Tag)
	}
	assert.Equal(t, []string{"server", "system_name", "profile_name"}, children)
}

func TestAutoYaSTMetadataIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "ay.xml", annotatedTemplate)
	g := testGenerator(t, false, testInventory(), dir)

	out, err := g.ForProfile("p1")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, "<cobbler>"))
}

func TestAutoYaSTSystemMetadata(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "ay.xml", autoyastTemplate)
	g := testGenerator(t, false, testInventory(), dir)

	out, err := g.ForSystem("s1")
	require.NoError(t, err)

	doc := parseDoc(t, out)
	meta := doc.FindElement("//cobbler")
	require.NotNil(t, meta)
	assert.Equal(t, "s1", meta.SelectElement("system_name").Text())
	assert.Equal(t, "", meta.SelectElement("profile_name").Text())
}

func TestAutoYaSTTriggerScripts(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "ay.xml", autoyastTemplate)
	g := testGenerator(t, true, testInventory(), dir)

	out, err := g.ForProfile("p1")
	require.NoError(t, err)

	assert.Contains(t, out, `http://10.0.0.1/cblr/svc/op/trig/mode/pre/profile/p1`)
	assert.Contains(t, out, `http://10.0.0.1/cblr/svc/op/trig/mode/post/profile/p1`)

	doc := parseDoc(t, out)
	pre := doc.FindElement("//scripts/pre-scripts")
	require.NotNil(t, pre)
	assert.Equal(t, "list", pre.SelectAttrValue("config:type", ""))
	assert.Len(t, pre.SelectElements("script"), 1)
	initScripts := doc.FindElement("//scripts/init-scripts")
	require.NotNil(t, initScripts)
	assert.Len(t, initScripts.SelectElements("script"), 1)
}

func TestAutoYaSTTriggerScriptsDuplicate(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "ay.xml", annotatedTemplate)
	g := testGenerator(t, true, testInventory(), dir)

	out, err := g.ForProfile("p1")
	require.NoError(t, err)

	// trigger injection never deduplicates: a document that already
	// carries the callback gains a second copy
	doc := parseDoc(t, out)
	pre := doc.FindElement("//scripts/pre-scripts")
	require.NotNil(t, pre)
	assert.Len(t, pre.SelectElements("script"), 2)
}
