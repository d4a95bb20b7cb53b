package entities

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Scan struct {
	ID                   uuid.UUID      `gorm:"type:uuid;primary_key" json:"id"`
	UserID               uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	PlantID              *uuid.UUID     `gorm:"type:uuid" json:"plant_id,omitempty"`
	ImageURL             string         `json:"image_url"`
	AIRawResponse        datatypes.JSON `json:"ai_raw_response"`
	IsHealthy            bool           `json:"is_healthy"`
	DiseaseName          string         `json:"disease_name"`
	IdentificationStatus string         `json:"identification_status"` // "Confirmed", "Uncertain", "Invalid Object"
	Confidence           float64        `json:"confidence"`
	CorrectedResponse    datatypes.JSON `json:"corrected_response,omitempty"` // NULL until a correction is recorded
	Feedback             *string        `json:"feedback,omitempty"`           // "like", "dislike"

	User  *User         `gorm:"foreignKey:UserID"`
	Plant *PlantSpecies `gorm:"foreignKey:PlantID"`
	Timestamp
}

func (s *Scan) HasCorrection() bool {
	return len(s.CorrectedResponse) > 0
}
