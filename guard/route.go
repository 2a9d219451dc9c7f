package guard

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Roles is a set of allowed role names. It decodes from a single string or a
// list of strings.
type Roles []string

func (r *Roles) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*r = fromSingle(single)
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("guard: requiresRole must be a string or a list of strings")
	}
	*r = Roles(list)
	return nil
}

func (r *Roles) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			*r = nil
			return nil
		}
		*r = fromSingle(node.Value)
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return fmt.Errorf("guard: requiresRole: %w", err)
		}
		*r = Roles(list)
		return nil
	}
	return fmt.Errorf("guard: requiresRole must be a string or a list of strings (line %d)", node.Line)
}

func fromSingle(s string) Roles {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return Roles{s}
}

// RouteMeta is the per-route access requirement.
type RouteMeta struct {
	RequiresAuth bool  `json:"requiresAuth" yaml:"requiresAuth"`
	RequiresRole Roles `json:"requiresRole,omitempty" yaml:"requiresRole,omitempty"`
}

// Routes maps a path to its metadata. A key ending in "/*" covers every path
// below it.
type Routes map[string]RouteMeta

// ParseRoutes decodes a YAML (or JSON) route table.
func ParseRoutes(data []byte) (Routes, error) {
	var routes Routes
	if err := yaml.Unmarshal(data, &routes); err != nil {
		return nil, fmt.Errorf("guard: parse routes: %w", err)
	}
	if routes == nil {
		routes = Routes{}
	}
	return routes, nil
}

// Lookup returns the metadata for path. Exact keys win over wildcards, and
// longer wildcards win over shorter ones. Unknown paths are public.
func (r Routes) Lookup(path string) RouteMeta {
	if meta, ok := r[path]; ok {
		return meta
	}

	prefixes := make([]string, 0, len(r))
	for key := range r {
		if strings.HasSuffix(key, "/*") {
			prefixes = append(prefixes, key)
		}
	}
	sort.Slice(prefixes, func(i, j int) bool { return len(prefixes[i]) > len(prefixes[j]) })

	for _, key := range prefixes {
		base := strings.TrimSuffix(key, "*")
		if strings.HasPrefix(path, base) || path == strings.TrimSuffix(base, "/") {
			return r[key]
		}
	}
	return RouteMeta{}
}
