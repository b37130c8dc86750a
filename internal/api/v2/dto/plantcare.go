// Package dto contains data transfer objects for API v2 responses.
// Field names are snake_case to stay compatible with existing clients.
package dto

import (
	"time"

	"github.com/plantcare-go/plantcare/internal/datastore/entities"
	"github.com/plantcare-go/plantcare/internal/disease"
)

// UserResponse never carries the password hash.
type UserResponse struct {
	ID        uint      `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// PlantResponse is the API view of a plant.
type PlantResponse struct {
	ID      uint   `json:"id"`
	Name    string `json:"name"`
	Species string `json:"species"`
	UserID  uint   `json:"user_id"`
}

// GrowthLogResponse is one observation with its predicted milestone.
type GrowthLogResponse struct {
	ID                 uint       `json:"id"`
	PlantID            uint       `json:"plant_id"`
	Date               *time.Time `json:"date"`
	PredictedMilestone *int       `json:"predicted_milestone"`
	SoilType           string     `json:"soil_type"`
	SunlightHours      float64    `json:"sunlight_hours"`
	WaterFrequency     string     `json:"water_frequency"`
	FertilizerType     string     `json:"fertilizer_type"`
	Temperature        float64    `json:"temperature"`
	Humidity           float64    `json:"humidity"`
}

// DiseaseTypeResponse shows the display name next to the stored class name.
type DiseaseTypeResponse struct {
	ID      uint   `json:"id"`
	Name    string `json:"name"`
	RawName string `json:"raw_name"`
}

// DiseaseCheckResponse is a stored detection result.
type DiseaseCheckResponse struct {
	ID             uint      `json:"id"`
	PlantID        uint      `json:"plant_id"`
	ImagePath      string    `json:"image_path"`
	Confidence     float64   `json:"confidence"`
	ConfidenceBand string    `json:"confidence_band"`
	CreatedAt      time.Time `json:"created_at"`
	DiseaseTypeID  uint      `json:"disease_type_id"`
	DiseaseName    string    `json:"disease_name"`
}

// PlantCareResponse is a treatment record.
type PlantCareResponse struct {
	ID                  uint      `json:"id"`
	PlantID             uint      `json:"plant_id"`
	MedicineName        string    `json:"medicine_name"`
	AppliedAt           time.Time `json:"applied_at"`
	Notes               string    `json:"notes"`
	RelatedGrowthLog    *uint     `json:"related_growth_log"`
	RelatedDiseaseCheck *uint     `json:"related_disease_check"`
}

// NewUserResponse converts a user entity.
func NewUserResponse(u *entities.User) UserResponse {
	return UserResponse{ID: u.ID, Username: u.Username, Email: u.Email, CreatedAt: u.CreatedAt}
}

// NewPlantResponse converts a plant entity.
func NewPlantResponse(p *entities.Plant) PlantResponse {
	return PlantResponse{ID: p.ID, Name: p.Name, Species: p.Species, UserID: p.UserID}
}

// NewGrowthLogResponse converts a growth log entity.
func NewGrowthLogResponse(l *entities.GrowthLog) GrowthLogResponse {
	return GrowthLogResponse{
		ID:                 l.ID,
		PlantID:            l.PlantID,
		Date:               l.Date,
		PredictedMilestone: l.PredictedMilestone,
		SoilType:           l.SoilType,
		SunlightHours:      l.SunlightHours,
		WaterFrequency:     l.WaterFrequency,
		FertilizerType:     l.FertilizerType,
		Temperature:        l.Temperature,
		Humidity:           l.Humidity,
	}
}

// NewDiseaseTypeResponse converts a disease type entity.
func NewDiseaseTypeResponse(t *entities.DiseaseType) DiseaseTypeResponse {
	return DiseaseTypeResponse{ID: t.ID, Name: disease.FormatName(t.Name), RawName: t.Name}
}

// NewDiseaseCheckResponse converts a disease check entity. The disease name
// is empty when the type was not loaded.
func NewDiseaseCheckResponse(c *entities.DiseaseCheck) DiseaseCheckResponse {
	resp := DiseaseCheckResponse{
		ID:             c.ID,
		PlantID:        c.PlantID,
		ImagePath:      c.ImagePath,
		Confidence:     c.Confidence,
		ConfidenceBand: disease.ConfidenceBand(c.Confidence),
		CreatedAt:      c.CreatedAt,
		DiseaseTypeID:  c.DiseaseTypeID,
	}
	if c.DiseaseType != nil {
		resp.DiseaseName = disease.FormatName(c.DiseaseType.Name)
	}
	return resp
}

// NewPlantCareResponse converts a plant care entity.
func NewPlantCareResponse(c *entities.PlantCare) PlantCareResponse {
	return PlantCareResponse{
		ID:                  c.ID,
		PlantID:             c.PlantID,
		MedicineName:        c.MedicineName,
		AppliedAt:           c.AppliedAt,
		Notes:               c.Notes,
		RelatedGrowthLog:    c.GrowthLogID,
		RelatedDiseaseCheck: c.DiseaseCheckID,
	}
}

// Map converts a slice of entities with fn.
func Map[E, R any](items []E, fn func(*E) R) []R {
	out := make([]R, 0, len(items))
	for i := range items {
		out = append(out, fn(&items[i]))
	}
	return out
}
