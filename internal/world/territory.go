package world

// Territory is a land node worked through Tenancy edges. Production reads
// and renews its biocapacity; no other system touches it.
type Territory struct {
	ID          string
	Sector      SectorType
	Biocapacity float64 // bounded to [0, configured max]
}
