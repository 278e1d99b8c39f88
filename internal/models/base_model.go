package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// BaseModel provides shared fields for all catalog tables. Rows are never removed;
// IsDeleted marks them as gone for every read path.
type BaseModel struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	IsDeleted bool      `gorm:"not null;default:false;index" json:"isDeleted"`
}

// ReferenceModel is the shape shared by the type, material and size dimensions.
type ReferenceModel struct {
	BaseModel
	Name string         `gorm:"size:255;index" json:"name"`
	Note string         `gorm:"type:text" json:"note,omitempty"`
	Data datatypes.JSON `json:"data,omitempty"`
}

// Active restricts a query to rows that have not been soft deleted.
func Active(db *gorm.DB) *gorm.DB {
	return db.Where("is_deleted = ?", false)
}

// ActiveIn is Active with the column qualified by table, for joined queries.
func ActiveIn(table string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(table+".is_deleted = ?", false)
	}
}
