package model

import "time"

// Accepted values for Sheep.Gender.  Parentage resolution relies on them
// to tell fathers from mothers.
const (
	GenderMale   = "Macho"
	GenderFemale = "Fêmea"
)

// ValidGender reports whether g is one of the accepted gender labels.
func ValidGender(g string) bool {
	return g == GenderMale || g == GenderFemale
}

// Sheep represents a row of the `sheep` table.  FatherID, MotherID and
// MilkProduction are not columns: they are filled by the repository from
// sheep_parentage and milk_production_individual when requested.
type Sheep struct {
	ID             uint64   `json:"id"`
	FarmID         uint64   `json:"farm_id"`
	BirthDate      *Date    `json:"birth_date"`
	Gender         string   `json:"gender"`
	FeedingHay     float64  `json:"feeding_hay"`
	FeedingFeed    float64  `json:"feeding_feed"`
	GroupID        *uint64  `json:"group_id"`
	FatherID       *uint64  `json:"father_id,omitempty"`
	MotherID       *uint64  `json:"mother_id,omitempty"`
	MilkProduction *float64 `json:"milk_production"`
}

// SheepGroup represents a row of the `sheep_group` table.
type SheepGroup struct {
	ID          uint64  `json:"id"`
	FarmID      uint64  `json:"farm_id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

// MilkProduction is one day's recorded volume for a single sheep
// (`milk_production_individual`).  (sheep_id, date) is unique.
type MilkProduction struct {
	ID      uint64  `json:"id"`
	SheepID uint64  `json:"sheep_id"`
	Date    Date    `json:"date"`
	Volume  float64 `json:"volume"`
}

// GroupMilkTotal aggregates milk volume over a period for one group.
type GroupMilkTotal struct {
	GroupID     uint64  `json:"group_id"`
	GroupName   string  `json:"group_name"`
	TotalVolume float64 `json:"total_volume"`
}

// InventoryItem represents a row of the `farm_inventory` table.
type InventoryItem struct {
	ID              uint64    `json:"id"`
	FarmID          uint64    `json:"farm_id"`
	ItemName        string    `json:"item_name"`
	Quantity        int       `json:"quantity"`
	Unit            string    `json:"unit"`
	ConsumptionRate float64   `json:"consumption_rate"`
	Category        string    `json:"category"`
	LastUpdated     time.Time `json:"last_updated"`
}

// Sensor represents a row of the `sensor` table: the latest reading of a
// farm probe together with its acceptable range.
type Sensor struct {
	ID           uint64    `json:"id"`
	FarmID       uint64    `json:"farm_id"`
	Name         string    `json:"name"`
	MinValue     *float64  `json:"min_value"`
	MaxValue     *float64  `json:"max_value"`
	CurrentValue float64   `json:"current_value"`
	Unit         *string   `json:"unit"`
	Timestamp    time.Time `json:"timestamp"`
}
