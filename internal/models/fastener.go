package models

// Sentinel ids of the seeded "Unknown" rows that unresolved references fall back to.
const (
	DefaultTypeID     uint = 9999
	DefaultMaterialID uint = 9999
	DefaultSizeID     uint = 9999
)

// UnknownName is the display name of every sentinel reference row.
const UnknownName = "Unknown"

// Fastener is a catalog record. A fastener name is unique within its type, which is what
// lets repeated spreadsheet imports skip rows that are already present.
type Fastener struct {
	BaseModel
	Name        string  `gorm:"size:255;uniqueIndex:idx_screw_type_name,priority:2" json:"name"`
	Description string  `gorm:"type:text" json:"description"`
	Quantity    Decimal `gorm:"type:text" json:"quantity"`
	Price       Decimal `gorm:"type:text" json:"price"`
	Note        string  `gorm:"type:text" json:"note"`
	ImageURL    string  `gorm:"column:image_url;type:text" json:"imageUrl,omitempty"`
	TypeID      uint    `gorm:"column:type_id;not null;uniqueIndex:idx_screw_type_name,priority:1" json:"typeId"`
	SizeID      uint    `gorm:"column:size_id;not null" json:"sizeId"`
	MaterialID  uint    `gorm:"column:material_id;not null;index" json:"materialId"`
}

func (Fastener) TableName() string { return "t_screw" }

// FastenerType classifies fasteners; spreadsheet sheet names resolve against it.
type FastenerType struct {
	ReferenceModel
}

func (FastenerType) TableName() string { return "t_screw_type" }

type Material struct {
	ReferenceModel
}

func (Material) TableName() string { return "t_screw_material" }

type Size struct {
	ReferenceModel
}

func (Size) TableName() string { return "t_screw_size" }

// CatalogModels lists the tables managed by auto-migration, reference tables first.
func CatalogModels() []interface{} {
	return []interface{}{
		&FastenerType{},
		&Material{},
		&Size{},
		&Fastener{},
		&CacheEntry{},
	}
}
