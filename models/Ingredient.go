package models

import (
	"fmt"

	"gorm.io/gorm"
)

type Ingredient struct {
	gorm.Model
	Name            string `gorm:"not null;size:200;uniqueIndex:idx_ingredients_name_unit" json:"name"`
	MeasurementUnit string `gorm:"not null;size:200;uniqueIndex:idx_ingredients_name_unit" json:"measurement_unit"`
}

// Label renders the ingredient the way it appears on a shopping list.
func (i Ingredient) Label() string {
	return fmt.Sprintf("%s (%s)", i.Name, i.MeasurementUnit)
}
