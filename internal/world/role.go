// Package world holds the mutable simulation state: the directed graph of
// entities, territories, and relationships, the global economy, and the
// append-only event log. Systems mutate it; nothing here decides anything.
package world

import "fmt"

// Role is the closed set of class positions an entity can occupy.
type Role uint8

const (
	RolePeripheryProletariat Role = iota
	RoleCompradorBourgeoisie
	RoleCoreBourgeoisie
	RoleLaborAristocracy
	RoleCarceralEnforcer
	RoleInternalProletariat
	RoleLumpenproletariat
	RolePettyBourgeoisie
)

var roleNames = [...]string{
	"PeripheryProletariat",
	"CompradorBourgeoisie",
	"CoreBourgeoisie",
	"LaborAristocracy",
	"CarceralEnforcer",
	"InternalProletariat",
	"Lumpenproletariat",
	"PettyBourgeoisie",
}

func (r Role) String() string {
	if int(r) < len(roleNames) {
		return roleNames[r]
	}
	return fmt.Sprintf("Role(%d)", uint8(r))
}

// ParseRole maps a role name back to its enum value.
func ParseRole(s string) (Role, error) {
	for i, name := range roleNames {
		if name == s {
			return Role(i), nil
		}
	}
	return 0, fmt.Errorf("unknown role %q", s)
}

// SectorType classifies a territory's economic base.
type SectorType uint8

const (
	SectorAgrarian SectorType = iota
	SectorExtractive
	SectorIndustrial
	SectorUrban
)

var sectorNames = [...]string{"Agrarian", "Extractive", "Industrial", "Urban"}

func (s SectorType) String() string {
	if int(s) < len(sectorNames) {
		return sectorNames[s]
	}
	return fmt.Sprintf("SectorType(%d)", uint8(s))
}

// ParseSectorType maps a sector name back to its enum value.
func ParseSectorType(s string) (SectorType, error) {
	for i, name := range sectorNames {
		if name == s {
			return SectorType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown sector type %q", s)
}

// EdgeType is the closed set of relationship kinds.
type EdgeType uint8

const (
	EdgeExploitation EdgeType = iota
	EdgeTribute
	EdgeWages
	EdgeClientState
	EdgeSolidarity
	EdgeTenancy
)

var edgeTypeNames = [...]string{
	"Exploitation",
	"Tribute",
	"Wages",
	"ClientState",
	"Solidarity",
	"Tenancy",
}

func (t EdgeType) String() string {
	if int(t) < len(edgeTypeNames) {
		return edgeTypeNames[t]
	}
	return fmt.Sprintf("EdgeType(%d)", uint8(t))
}

// ParseEdgeType maps an edge type name back to its enum value.
func ParseEdgeType(s string) (EdgeType, error) {
	for i, name := range edgeTypeNames {
		if name == s {
			return EdgeType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown edge type %q", s)
}
