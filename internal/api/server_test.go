package api

import (
	"net/http"
	"net/http/httptest"
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

func testServer(t *testing.T) *Server {
	t.Helper()
	templatesDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(templatesDir, "ks.cfg"),
		[]byte("install\nurl --url=http://@@server@@/tree\n"), 0o644))

	inv := &inventory.StaticInventory{
		DistroItems: []*inventory.Distro{
			{Name: "d1", Breed: "redhat", OSVersion: "rhel9"},
		},
		ProfileItems: []*inventory.Profile{
			{Name: "p1", Distro: "d1", Autoinstall: "ks.cfg"},
		},
		SystemItems: []*inventory.System{
			{Name: "s1", Profile: "p1"},
		},
		Blends: map[string]inventory.Blended{},
		Defaults: map[string]interface{}{
			"server":    "10.0.0.1",
			"http_port": "80",
		},
	}
	settings := &config.Settings{
		Server:              "10.0.0.1",
		HTTPPort:            80,
		AutoinstallScheme:   "http",
		TemplatesDir:        templatesDir,
		SnippetsDir:         t.TempDir(),
		DefaultTemplateType: "gotpl",
	}
	registry := templates.NewRegistry(templates.NewGotplProvider(), templates.NewJinjaProvider())
	renderer := templates.NewRenderer(registry, templates.NewSnippetStore(settings.SnippetsDir), settings.DefaultTemplateType)
	gen := autoinstall.NewGenerator(inv, settings, renderer)
	return NewServer(gen, renderer)
}

func get(t *testing.T, handler http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestAutoinstallProfileEndpoint(t *testing.T) {
	handler := testServer(t).Handler()

	rec := get(t, handler, "/cblr/svc/op/autoinstall/profile/p1")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "url --url=http://10.0.0.1/tree")
}

func TestAutoinstallSentinels(t *testing.T) {
	handler := testServer(t).Handler()

	rec := get(t, handler, "/cblr/svc/op/autoinstall/profile/ghost")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, autoinstall.SentinelProfileNotFound, rec.Body.String())

	rec = get(t, handler, "/cblr/svc/op/autoinstall/system/ghost")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, autoinstall.SentinelSystemNotFound, rec.Body.String())
}

func TestTriggerEndpoint(t *testing.T) {
	handler := testServer(t).Handler()

	rec := get(t, handler, "/cblr/svc/op/trig/mode/pre/system/s1")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "True", rec.Body.String())

	rec = get(t, handler, "/cblr/svc/op/trig/mode/sideways/system/s1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "False", rec.Body.String())

	rec = get(t, handler, "/cblr/svc/op/trig/mode/post/image/s1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	handler := testServer(t).Handler()
	rec := get(t, handler, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "total_requests")
}
