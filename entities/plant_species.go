package entities

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type PlantSpecies struct {
	ID             uuid.UUID      `gorm:"type:uuid;primary_key" json:"id"`
	ScientificName string         `gorm:"uniqueIndex;not null" json:"scientific_name"`
	CommonName     string         `json:"common_name"`
	Description    string         `gorm:"type:text" json:"description"`
	CareGuide      datatypes.JSON `json:"care_guide"`

	Scans []*Scan `gorm:"foreignKey:PlantID"`
	Timestamp
}

func (PlantSpecies) TableName() string {
	return "plant_species"
}
