package resource

import (
	"path"
	"strings"
)

// Kind names a mock entity type. It only namespaces routes and log files.
type Kind string

// Default resource kinds served by the mock.
const (
	Users            Kind = "Users"
	Activities       Kind = "Activities"
	Employments      Kind = "Employments"
	SchoolUnits      Kind = "SchoolUnits"
	StudentGroups    Kind = "StudentGroups"
	SchoolUnitGroups Kind = "SchoolUnitGroups"
)

// Defaults returns the kinds mounted when no explicit list is configured.
func Defaults() []Kind {
	return []Kind{Users, Activities, Employments, SchoolUnits, StudentGroups, SchoolUnitGroups}
}

// Parse turns a configured mount name such as "/Users" or "scim/Users/" into a Kind.
func Parse(raw string) Kind {
	return Kind(strings.Trim(strings.TrimSpace(raw), "/"))
}

// ParseList parses a list of mount names, dropping blanks and duplicates while keeping order.
func ParseList(raw []string) []Kind {
	seen := make(map[Kind]struct{}, len(raw))
	kinds := make([]Kind, 0, len(raw))
	for _, item := range raw {
		kind := Parse(item)
		if kind == "" {
			continue
		}
		if _, ok := seen[kind]; ok {
			continue
		}
		seen[kind] = struct{}{}
		kinds = append(kinds, kind)
	}
	return kinds
}

func (k Kind) String() string {
	return string(k)
}

// Prefix returns the mount path of the kind below basePath.
func (k Kind) Prefix(basePath string) string {
	return path.Join("/", strings.TrimSpace(basePath), string(k))
}

// LogFileName returns the journal file name for the kind. Nested mount names
// are flattened so every kind writes directly into the log directory.
func (k Kind) LogFileName() string {
	name := strings.ReplaceAll(strings.Trim(string(k), "/"), "/", "_")
	if name == "" {
		name = "root"
	}
	return name + ".log"
}
