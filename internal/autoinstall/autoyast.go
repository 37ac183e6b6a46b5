package autoinstall

import (
	"fmt"

	"github.com/beevik/etree"

	"github.com/bootforge/bootforge/internal/inventory"
)

// autoyastGenerator renders the template and post-processes the
// result as an AutoYaST XML control file: management metadata is
// injected once, and installation trigger callbacks are added as
// pre/init scripts when enabled.
type autoyastGenerator struct{}

func (a *autoyastGenerator) generate(g *Generator, t target, body string, data inventory.Blended) (string, error) {
	rendered, err := g.renderer.Render(body, data, "")
	if err != nil {
		return "", err
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromString(rendered); err != nil {
		return "", fmt.Errorf("parsing rendered AutoYaST document for %s %s: %w", t.kind, t.name, err)
	}
	root := doc.Root()
	if root == nil {
		return "", fmt.Errorf("rendered AutoYaST document for %s %s has no root element", t.kind, t.name)
	}

	a.injectMetadata(root, t, data)
	if g.settings.RunInstallTriggers {
		server := data.GetString("http_server")
		if server == "" {
			server = data.GetString("server")
		}
		scheme := g.settings.AutoinstallScheme
		a.addScript(root, "pre-scripts", triggerScript(scheme, server, "pre", t))
		a.addScript(root, "init-scripts", triggerScript(scheme, server, "post", t))
	}

	doc.Indent(2)
	out, err := doc.WriteToString()
	if err != nil {
		return "", err
	}
	return out, nil
}

// injectMetadata attaches a <cobbler> element naming the server and
// the target, unless the document already carries one.
func (a *autoyastGenerator) injectMetadata(root *etree.Element, t target, data inventory.Blended) {
	if root.FindElement("//cobbler") != nil {
		return
	}
	meta := root.CreateElement("cobbler")
	meta.CreateElement("server").SetText(data.GetString("server"))
	systemName := meta.CreateElement("system_name")
	profileName := meta.CreateElement("profile_name")
	switch t.kind {
	case "system":
		systemName.SetText(t.name)
	case "profile":
		profileName.SetText(t.name)
	}
}

// addScript appends one script entry into the named phase container
// under <scripts>, creating containers on the way. Phase containers
// are lists in the AutoYaST schema and get the config:type attribute
// when created here. Entries are appended unconditionally; an already
// annotated document gains a duplicate on regeneration.
func (a *autoyastGenerator) addScript(root *etree.Element, phase, source string) {
	scripts := root.SelectElement("scripts")
	if scripts == nil {
		scripts = root.CreateElement("scripts")
	}
	container := scripts.SelectElement(phase)
	if container == nil {
		container = scripts.CreateElement(phase)
		container.CreateAttr("config:type", "list")
	}
	script := container.CreateElement("script")
	script.CreateElement("source").CreateCData(source)
	script.CreateElement("filename").SetText(phase + "_cobbler")
}

func triggerScript(scheme, server, mode string, t target) string {
	return fmt.Sprintf("\ncurl \"%s://%s/cblr/svc/op/trig/mode/%s/%s/%s\" > /dev/null",
		scheme, server, mode, t.kind, t.name)
}
