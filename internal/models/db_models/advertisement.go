package db_models

import (
	"github.com/lib/pq"
)

// PlaceholderText is the title and description the legacy upload flow gave
// to throwaway records created while analysing a photo.
const PlaceholderText = "Temporary"

type Advertisement struct {
	BaseModel
	Title           string         `gorm:"size:255;not null"`
	Description     string         `gorm:"type:text"`
	Author          string         `gorm:"size:255"`
	Phone           string         `gorm:"size:15"`
	Photo           string         `gorm:"size:512"`
	Type            string         `gorm:"size:20;index;default:cat"`
	Breed           string         `gorm:"size:255;index"`
	Color           string         `gorm:"size:20;index"`
	Sex             string         `gorm:"size:10;default:unknown"`
	EyeColor        string         `gorm:"size:20"`
	FaceShape       string         `gorm:"size:20"`
	SpecialFeatures pq.StringArray `gorm:"type:text[]"`
	Size            string         `gorm:"size:20"`
	CoatType        string         `gorm:"size:20"`
	Status          string         `gorm:"size:10;index;default:lost"`
	Latitude        *float64       `gorm:"type:double precision"`
	Longitude       *float64       `gorm:"type:double precision"`
	Location        string         `gorm:"size:255"`
	IsPlaceholder   bool           `gorm:"index;not null;default:false"`
}

func (Advertisement) TableName() string { return "advertisements" }

// Placeholder reports whether the record must stay out of search results.
func (a Advertisement) Placeholder() bool {
	return a.IsPlaceholder || (a.Title == PlaceholderText && a.Description == PlaceholderText)
}
