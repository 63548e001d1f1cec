// Copyright 2024 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0

// Package config loads the list of known time servers from a YAML file:
//
//	servers:
//	  - name: example
//	    address: roughtime.example:2002
//	    public_key: AW5uAoTSTDfG5NfY1bTh08GUnOqlRb+HVhbJ3ODJvsE=
//	    version: classic
//
// Environment variables referenced in the file ($VAR or ${VAR}) are expanded
// before parsing.
package config

import (
	"crypto/ed25519"
	"fmt"
	"os"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/veraison/roughstamp/protocol"
	"gopkg.in/yaml.v3"
)

// Server describes a time server
type Server struct {
	Name      string           `mapstructure:"name" validate:"required"`
	Address   string           `mapstructure:"address" validate:"required,hostname_port"`
	PublicKey string           `mapstructure:"public_key"`
	Version   protocol.Version `mapstructure:"version"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return fld.Tag.Get("mapstructure")
	})
	return v
}

// Configure populates the Server from a generic map, as found in the config
// file.  Unknown keys are an error.
func (o *Server) Configure(cfg map[string]interface{}) error {
	decoded := struct {
		Server `mapstructure:",squash"`
		Rest   map[string]interface{} `mapstructure:",remain"`
	}{}

	if err := mapstructure.Decode(cfg, &decoded); err != nil {
		return err
	}

	*o = decoded.Server

	if o.Version == "" {
		o.Version = protocol.VersionClassic
	}

	if err := o.validate(); err != nil {
		return err
	}

	if len(decoded.Rest) > 0 {
		var unexpected []string
		for k := range decoded.Rest {
			unexpected = append(unexpected, k)
		}
		sort.Strings(unexpected)
		return fmt.Errorf("unexpected fields in config: %s",
			strings.Join(unexpected, ", "))
	}

	return nil
}

// TrustAnchor returns the decoded public key of the server, or nil if none is
// configured
func (o Server) TrustAnchor() (ed25519.PublicKey, error) {
	if o.PublicKey == "" {
		return nil, nil
	}
	return protocol.ParsePublicKey(o.PublicKey)
}

func (o *Server) validate() error {
	if err := validate.Struct(o); err != nil {
		return err
	}

	if err := o.Version.Validate(); err != nil {
		return err
	}

	if _, err := o.TrustAnchor(); err != nil {
		return fmt.Errorf("server %q: %w", o.Name, err)
	}

	return nil
}

// Servers is the list of configured servers
type Servers []Server

// Lookup returns the server called name
func (o Servers) Lookup(name string) (Server, bool) {
	for _, s := range o {
		if s.Name == name {
			return s, true
		}
	}
	return Server{}, false
}

// Load reads the server list from the file at path
func Load(path string) (Servers, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	return Parse(content)
}

// Parse decodes a server list from YAML
func Parse(data []byte) (Servers, error) {
	// expand environment variables $
	expanded := os.ExpandEnv(string(data))

	doc := struct {
		Servers []map[string]interface{} `yaml:"servers"`
	}{}

	if err := yaml.Unmarshal([]byte(expanded), &doc); err != nil {
		return nil, fmt.Errorf("decode config file: %w", err)
	}

	servers := make(Servers, 0, len(doc.Servers))
	seen := map[string]bool{}

	for i, entry := range doc.Servers {
		var s Server
		if err := s.Configure(entry); err != nil {
			return nil, fmt.Errorf("server #%d: %w", i, err)
		}

		if seen[s.Name] {
			return nil, fmt.Errorf("server #%d: duplicate name %q", i, s.Name)
		}
		seen[s.Name] = true

		servers = append(servers, s)
	}

	return servers, nil
}
