// Package msgcat holds the user-facing chat texts as text/template snippets keyed by
// dotted paths ("reject.NOT_YOUR_TURN", "room.created", ...).
package msgcat

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"text/template"

	yaml "gopkg.in/yaml.v3"
)

//go:embed messages.ko.yaml
var embedded embed.FS

const defaultFile = "messages.ko.yaml"

// ErrMissingKey is returned by Render for keys the catalog does not know.
var ErrMissingKey = errors.New("msgcat: missing key")

// Catalog is safe for concurrent use. Templates are parsed once at load time so a broken
// override fails at startup rather than on the first chat message that needs it.
type Catalog struct {
	mu        sync.RWMutex
	templates map[string]*template.Template
}

// New loads the embedded Korean texts, then every *.yaml / *.yml file in overrideDir
// (lexical order). An override file may only redefine keys; two override files
// defining the same key is an error.
func New(overrideDir string) (*Catalog, error) {
	c := &Catalog{templates: make(map[string]*template.Template)}

	raw, err := embedded.ReadFile(defaultFile)
	if err != nil {
		return nil, fmt.Errorf("read embedded messages: %w", err)
	}
	flat, err := flatten(raw)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", defaultFile, err)
	}
	if err := c.merge(flat); err != nil {
		return nil, err
	}

	if dir := strings.TrimSpace(overrideDir); dir != "" {
		if err := c.loadOverrides(dir); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Catalog) loadOverrides(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read override dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".yaml", ".yml":
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	owner := make(map[string]string)
	for _, name := range names {
		b, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		flat, err := flatten(b)
		if err != nil {
			return fmt.Errorf("parse %s: %w", name, err)
		}
		for k := range flat {
			if prev, dup := owner[k]; dup {
				return fmt.Errorf("override key %q defined in both %s and %s", k, prev, name)
			}
			owner[k] = name
		}
		if err := c.merge(flat); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

func (c *Catalog) merge(flat map[string]string) error {
	parsed := make(map[string]*template.Template, len(flat))
	for k, v := range flat {
		t, err := template.New(k).Option("missingkey=error").Parse(v)
		if err != nil {
			return fmt.Errorf("template %s: %w", k, err)
		}
		parsed[k] = t
	}
	c.mu.Lock()
	for k, t := range parsed {
		c.templates[k] = t
	}
	c.mu.Unlock()
	return nil
}

// flatten turns nested YAML maps into dotted keys. Only string leaves are accepted.
func flatten(b []byte) (map[string]string, error) {
	var root map[string]any
	if err := yaml.Unmarshal(b, &root); err != nil {
		return nil, err
	}
	out := make(map[string]string)
	var walk func(prefix string, v any) error
	walk = func(prefix string, v any) error {
		switch node := v.(type) {
		case map[string]any:
			for k, child := range node {
				key := k
				if prefix != "" {
					key = prefix + "." + k
				}
				if err := walk(key, child); err != nil {
					return err
				}
			}
		case string:
			if prefix == "" {
				return errors.New("top-level string without key")
			}
			out[prefix] = node
		case nil:
		default:
			return fmt.Errorf("key %s: unsupported value %T", prefix, v)
		}
		return nil
	}
	if err := walk("", root); err != nil {
		return nil, err
	}
	return out, nil
}

// Has reports whether key is defined.
func (c *Catalog) Has(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.templates[strings.TrimSpace(key)]
	return ok
}

// Keys returns all defined keys, sorted.
func (c *Catalog) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.templates))
	for k := range c.templates {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Render executes the template stored under key. Fields missing from data are errors.
func (c *Catalog) Render(key string, data any) (string, error) {
	key = strings.TrimSpace(key)
	c.mu.RLock()
	t, ok := c.templates[key]
	c.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMissingKey, key)
	}
	var sb strings.Builder
	if err := t.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("render %s: %w", key, err)
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

// Text renders key and falls back to fallback on any error. Chat handlers use it so a
// catalog problem degrades to a plain message instead of silence.
func (c *Catalog) Text(key string, data any, fallback string) string {
	if c == nil {
		return fallback
	}
	s, err := c.Render(key, data)
	if err != nil || strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
