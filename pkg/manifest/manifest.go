// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package manifest loads static CoAP resources from a YAML file.
//
// Example manifest:
//
//	resources:
//	  - path: sensors/temp
//	    content_format: text/plain
//	    observable: true
//	    rt: temperature-c
//	    if: sensor
//	    title: Kitchen temperature
//	    payload: "21.5"
//
//	  - path: config/interval
//	    content_format: 50
//	    writable: true
//	    payload: '{"seconds":30}'
//
// Writable resources accept PUT, replacing the stored payload and
// notifying observers.
package manifest

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/absmach/mcoap/pkg/resource"
	"github.com/plgd-dev/go-coap/v3/message"
	"gopkg.in/yaml.v3"
)

// Manifest is the root of a manifest file.
type Manifest struct {
	Resources []Resource `yaml:"resources"`
}

// Resource describes one static resource.
type Resource struct {
	// Path is the resource path. Leading and trailing slashes are trimmed.
	Path string `yaml:"path"`

	// ContentFormat accepts a media type name ("application/json") or its
	// CoAP number (50). Defaults to text/plain.
	ContentFormat MediaType `yaml:"content_format"`

	Observable bool   `yaml:"observable"`
	Writable   bool   `yaml:"writable"`
	RT         string `yaml:"rt"`
	IF         string `yaml:"if"`
	Title      string `yaml:"title"`
	Size       uint64 `yaml:"sz"`
	Payload    string `yaml:"payload"`
}

// MediaType is a CoAP Content-Format that unmarshals from a name or a number.
type MediaType message.MediaType

var mediaTypes = map[string]message.MediaType{
	"text/plain":               message.TextPlain,
	"application/link-format":  message.AppLinkFormat,
	"application/xml":          message.AppXML,
	"application/octet-stream": message.AppOctets,
	"application/exi":          message.AppExi,
	"application/json":         message.AppJSON,
	"application/cbor":         message.AppCBOR,
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (m *MediaType) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	s = strings.TrimSpace(s)

	if n, err := strconv.ParseUint(s, 10, 16); err == nil {
		*m = MediaType(n)
		return nil
	}
	mt, ok := mediaTypes[strings.ToLower(s)]
	if !ok {
		return fmt.Errorf("line %d: unknown content format %q", node.Line, s)
	}
	*m = MediaType(mt)
	return nil
}

// Load reads and parses a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest file: %w", err)
	}
	return Parse(data)
}

// Parse parses and validates manifest data.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate normalizes paths and rejects empty or duplicate ones.
func (m *Manifest) Validate() error {
	seen := make(map[string]int, len(m.Resources))
	for i := range m.Resources {
		r := &m.Resources[i]
		r.Path = strings.Trim(r.Path, "/")

		if r.Path == "" {
			return fmt.Errorf("resources[%d]: path is required", i)
		}
		if strings.Contains(r.Path, "//") {
			return fmt.Errorf("resources[%d]: path %q has an empty segment", i, r.Path)
		}
		if j, ok := seen[r.Path]; ok {
			return fmt.Errorf("resources[%d]: path %q already declared by resources[%d]", i, r.Path, j)
		}
		seen[r.Path] = i
	}
	return nil
}

// Registrar creates server-owned resources.
type Registrar interface {
	CreateResource(name string, format message.MediaType, observable bool) *resource.FunctionalResource
}

// Apply registers every manifest resource with reg and returns the
// registered paths in manifest order.
func (m *Manifest) Apply(reg Registrar) []string {
	paths := make([]string, 0, len(m.Resources))
	for _, r := range m.Resources {
		f := reg.CreateResource(r.Path, message.MediaType(r.ContentFormat), r.Observable).
			SetResourceType(r.RT).
			SetInterfaceDescription(r.IF).
			SetTitle(r.Title).
			SetMaxSizeEstimate(r.Size)
		bindStatic(f, r)
		paths = append(paths, r.Path)
	}
	return paths
}

// bindStatic serves the stored payload on GET and, for writable
// resources, replaces it on PUT.
func bindStatic(f *resource.FunctionalResource, r Resource) {
	var mu sync.RWMutex
	payload := []byte(r.Payload)

	f.OnGet(func(req *resource.Request) resource.Status {
		mu.RLock()
		defer mu.RUnlock()
		return resource.Content(payload)
	})
	if !r.Writable {
		return
	}
	f.OnPut(func(req *resource.Request) resource.Status {
		mu.Lock()
		payload = append([]byte(nil), req.Payload...)
		current := payload
		mu.Unlock()

		f.Notify(context.Background(), resource.Content(current))
		return resource.Changed(nil)
	})
}
