package offline

import (
	"fmt"
	"net/url"
	"os"

	"gopkg.in/yaml.v3"
)

// Manifest is the on-disk description of the web shell to precache. Paths
// are relative to the origin the shell is served from.
type Manifest struct {
	OfflinePage  string   `yaml:"offline_page"`
	Assets       []string `yaml:"assets"`
	NetworkFirst struct {
		Hosts []string `yaml:"hosts"`
		Paths []string `yaml:"paths"`
	} `yaml:"network_first"`
}

// DefaultManifest is the shell of the Pukaar web app.
func DefaultManifest() Manifest {
	m := Manifest{
		OfflinePage: "offline.html",
		Assets: []string{
			"./",
			"index.html",
			"about.html",
			"contact.html",
			"profile.html",
			"assets/style.css",
			"scripts/script.js",
			"scripts/contact.js",
			"json/data.json",
			"assets/icons/icon-192.png",
			"assets/icons/icon-512.png",
		},
	}
	m.NetworkFirst.Hosts = []string{"overpass-api.de"}
	m.NetworkFirst.Paths = []string{"data.json"}
	return m
}

// LoadManifest reads a YAML manifest file.
func LoadManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	if len(m.Assets) == 0 {
		return Manifest{}, fmt.Errorf("manifest %s lists no assets", path)
	}
	return m, nil
}

// Config resolves the manifest against origin into a layer configuration.
// origin should end with "/" so relative paths land under it.
func (m Manifest) Config(origin *url.URL, version string, strict bool) (Config, error) {
	cfg := Config{
		Version:           version,
		NetworkFirstHosts: m.NetworkFirst.Hosts,
		NetworkFirstPaths: m.NetworkFirst.Paths,
		StrictInstall:     strict,
	}
	for _, a := range m.Assets {
		u, err := resolve(origin, a)
		if err != nil {
			return Config{}, err
		}
		cfg.Manifest = append(cfg.Manifest, u)
	}
	if m.OfflinePage != "" {
		u, err := resolve(origin, m.OfflinePage)
		if err != nil {
			return Config{}, err
		}
		cfg.OfflinePage = u
	}
	return cfg, nil
}

func resolve(origin *url.URL, ref string) (string, error) {
	r, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("invalid manifest entry %q: %w", ref, err)
	}
	return origin.ResolveReference(r).String(), nil
}
