// Package entities defines the GORM models for the plant-care schema.
package entities

import "time"

// User owns plants. Deleting a user deletes their plants.
type User struct {
	ID        uint      `gorm:"primaryKey"`
	Username  string    `gorm:"size:80;not null;uniqueIndex"`
	Email     string    `gorm:"size:120;not null;uniqueIndex"`
	Password  string    `gorm:"size:200;not null"` // bcrypt hash
	CreatedAt time.Time `gorm:"autoCreateTime"`

	Plants []Plant `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM.
func (User) TableName() string {
	return "users"
}

// Plant is a single tracked plant. Plant names are globally unique.
type Plant struct {
	ID      uint   `gorm:"primaryKey"`
	Name    string `gorm:"size:80;not null;uniqueIndex"`
	Species string `gorm:"size:120"`
	UserID  uint   `gorm:"not null;index"`

	GrowthLogs    []GrowthLog    `gorm:"foreignKey:PlantID;constraint:OnDelete:CASCADE"`
	DiseaseChecks []DiseaseCheck `gorm:"foreignKey:PlantID;constraint:OnDelete:CASCADE"`
	Cares         []PlantCare    `gorm:"foreignKey:PlantID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM.
func (Plant) TableName() string {
	return "plants"
}

// GrowthLog stores one growth observation and the milestone the model predicted for it.
type GrowthLog struct {
	ID                 uint       `gorm:"primaryKey"`
	PlantID            uint       `gorm:"not null;index"`
	Date               *time.Time `gorm:"index"`
	SoilType           string     `gorm:"size:50"`
	SunlightHours      float64
	WaterFrequency     string `gorm:"size:50"`
	FertilizerType     string `gorm:"size:50"`
	Temperature        float64
	Humidity           float64
	PredictedMilestone *int
}

// TableName returns the table name for GORM.
func (GrowthLog) TableName() string {
	return "growth_logs"
}

// DiseaseType is one class of the disease model, stored as "Species___Condition".
type DiseaseType struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"size:100;not null;uniqueIndex"`
}

// TableName returns the table name for GORM.
func (DiseaseType) TableName() string {
	return "disease_types"
}

// DiseaseCheck is the stored result of one disease detection run.
type DiseaseCheck struct {
	ID            uint      `gorm:"primaryKey"`
	PlantID       uint      `gorm:"not null;index"`
	DiseaseTypeID uint      `gorm:"not null;index"`
	Confidence    float64   `gorm:"not null"`
	ImagePath     string    `gorm:"size:255"`
	CreatedAt     time.Time `gorm:"autoCreateTime;index"`

	DiseaseType *DiseaseType `gorm:"foreignKey:DiseaseTypeID;constraint:OnDelete:RESTRICT"`
}

// TableName returns the table name for GORM.
func (DiseaseCheck) TableName() string {
	return "disease_checks"
}

// PlantCare records a treatment applied to a plant, optionally linked to the
// growth log or disease check that prompted it.
type PlantCare struct {
	ID             uint      `gorm:"primaryKey"`
	PlantID        uint      `gorm:"not null;index"`
	MedicineName   string    `gorm:"size:100"`
	Notes          string    `gorm:"type:text"`
	AppliedAt      time.Time `gorm:"autoCreateTime;index"`
	GrowthLogID    *uint     `gorm:"index"`
	DiseaseCheckID *uint     `gorm:"index"`

	GrowthLog    *GrowthLog    `gorm:"foreignKey:GrowthLogID;constraint:OnDelete:SET NULL"`
	DiseaseCheck *DiseaseCheck `gorm:"foreignKey:DiseaseCheckID;constraint:OnDelete:SET NULL"`
}

// TableName returns the table name for GORM.
func (PlantCare) TableName() string {
	return "plant_cares"
}

// All returns every entity in migration order.
func All() []any {
	return []any{
		&User{},
		&Plant{},
		&DiseaseType{},
		&GrowthLog{},
		&DiseaseCheck{},
		&PlantCare{},
	}
}
