package models

// HashTag labels posts. Names are not unique.
type HashTag struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:255;not null;index" json:"name"`
}

// TableName specifies the table name for GORM
func (HashTag) TableName() string {
	return "hashtags"
}
