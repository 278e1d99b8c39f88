package database

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/charlesng35/screwcat/internal/models"
)

// AutoMigrate creates or updates the catalog tables and the cache fallback table.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(models.CatalogModels()...)
}

// SeedData inserts the sentinel "Unknown" rows that unresolved type, material and size
// references point at. It is idempotent.
func SeedData(db *gorm.DB) error {
	sentinel := func(id uint) models.ReferenceModel {
		return models.ReferenceModel{
			BaseModel: models.BaseModel{ID: id},
			Name:      models.UnknownName,
			Note:      "Fallback for unresolved references",
		}
	}

	seeds := []struct {
		name  string
		id    uint
		model interface{}
		attrs interface{}
	}{
		{"type", models.DefaultTypeID, &models.FastenerType{}, models.FastenerType{ReferenceModel: sentinel(models.DefaultTypeID)}},
		{"material", models.DefaultMaterialID, &models.Material{}, models.Material{ReferenceModel: sentinel(models.DefaultMaterialID)}},
		{"size", models.DefaultSizeID, &models.Size{}, models.Size{ReferenceModel: sentinel(models.DefaultSizeID)}},
	}

	for _, seed := range seeds {
		if err := db.Where("id = ?", seed.id).Attrs(seed.attrs).FirstOrCreate(seed.model).Error; err != nil {
			return fmt.Errorf("seed default %s: %w", seed.name, err)
		}
	}
	return nil
}

// SeedReferenceData ensures the named types and materials exist, skipping names already present.
// It backs the demo data loaded at start-up and the test fixtures.
func SeedReferenceData(db *gorm.DB, typeNames, materialNames []string) error {
	for _, name := range typeNames {
		row := models.FastenerType{ReferenceModel: models.ReferenceModel{Name: name}}
		if err := db.Where("name = ? AND is_deleted = ?", name, false).Attrs(row).FirstOrCreate(&models.FastenerType{}).Error; err != nil {
			return fmt.Errorf("seed type %q: %w", name, err)
		}
	}
	for _, name := range materialNames {
		row := models.Material{ReferenceModel: models.ReferenceModel{Name: name}}
		if err := db.Where("name = ? AND is_deleted = ?", name, false).Attrs(row).FirstOrCreate(&models.Material{}).Error; err != nil {
			return fmt.Errorf("seed material %q: %w", name, err)
		}
	}
	return nil
}
