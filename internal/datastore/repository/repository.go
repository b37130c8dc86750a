package repository

import "gorm.io/gorm"

// Repositories bundles every repository over one database handle.
type Repositories struct {
	Users         UserRepository
	Plants        PlantRepository
	GrowthLogs    GrowthLogRepository
	DiseaseTypes  DiseaseTypeRepository
	DiseaseChecks DiseaseCheckRepository
	PlantCares    PlantCareRepository
}

// New creates all repositories for db.
func New(db *gorm.DB) *Repositories {
	return &Repositories{
		Users:         NewUserRepository(db),
		Plants:        NewPlantRepository(db),
		GrowthLogs:    NewGrowthLogRepository(db),
		DiseaseTypes:  NewDiseaseTypeRepository(db),
		DiseaseChecks: NewDiseaseCheckRepository(db),
		PlantCares:    NewPlantCareRepository(db),
	}
}
