package conf

import (
	"time"

	"github.com/spf13/viper"
)

// setDefaultConfig registers default values for every configuration key.
func setDefaultConfig() {
	viper.SetDefault("debug", false)
	viper.SetDefault("main.name", "PlantCare")

	viper.SetDefault("webserver.host", "")
	viper.SetDefault("webserver.port", "8080")
	viper.SetDefault("webserver.bodylimit", "10M")
	viper.SetDefault("webserver.corsorigins", []string{"*"})
	viper.SetDefault("webserver.readtimeout", 30*time.Second)
	viper.SetDefault("webserver.writetimeout", 60*time.Second)

	viper.SetDefault("database.type", "sqlite")
	viper.SetDefault("database.testmode", false)
	viper.SetDefault("database.slowquerythreshold", 200*time.Millisecond)
	viper.SetDefault("database.sqlite.path", "plant_care.db")
	viper.SetDefault("database.mysql.host", "localhost")
	viper.SetDefault("database.mysql.port", "3306")
	viper.SetDefault("database.mysql.database", "plantcare")

	viper.SetDefault("models.growthmodelpath", "models/growth_model.tflite")
	viper.SetDefault("models.diseasemodelpath", "models/disease_model.tflite")
	viper.SetDefault("models.referencecsv", "data/plant_growth_data.csv")
	viper.SetDefault("models.targetcolumn", "Growth_Milestone")
	viper.SetDefault("models.threads", 0)
	viper.SetDefault("models.imagesize", 224)
	viper.SetDefault("models.usexnnpack", false)

	viper.SetDefault("uploads.dir", "uploads")
	viper.SetDefault("seed.diseasetypescsv", "data/disease_types.csv")
	viper.SetDefault("cache.diseasetypesttl", 5*time.Minute)

	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.path", "/metrics")

	viper.SetDefault("telemetry.enabled", false)

	viper.SetDefault("logging.default_level", "info")
	viper.SetDefault("logging.timezone", "Local")
	viper.SetDefault("logging.console.enabled", true)
	viper.SetDefault("logging.console.level", "info")
	viper.SetDefault("logging.file_output.enabled", false)
	viper.SetDefault("logging.file_output.path", "logs/plantcare.log")
	viper.SetDefault("logging.file_output.level", "info")
}
