package main

import (
	"bytes"
	_ "embed"
	"fmt"

	"github.com/MrEthical07/authgate"
	"gopkg.in/yaml.v3"
)

//go:embed routes.yaml
var routesYAML []byte

//go:embed seed.yaml
var seedYAML []byte

type routeTable struct {
	Routes  []authgate.Route `yaml:"routes"`
	Plugins []authgate.Route `yaml:"plugins"`
}

func loadRoutes(data []byte) (*routeTable, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var table routeTable
	if err := dec.Decode(&table); err != nil {
		return nil, fmt.Errorf("decode routes: %w", err)
	}
	for i, r := range append(append([]authgate.Route(nil), table.Routes...), table.Plugins...) {
		if r.Method == "" || r.Path == "" {
			return nil, fmt.Errorf("route %d: method and path are required", i)
		}
	}
	return &table, nil
}
