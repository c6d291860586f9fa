package models

import "gorm.io/gorm"

type Tag struct {
	gorm.Model
	Name  string `gorm:"not null;size:200" json:"name"`
	Slug  string `gorm:"uniqueIndex;not null;size:200" json:"slug"`
	Color string `gorm:"size:7" json:"color"`
}
