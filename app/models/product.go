package models

import (
	"time"

	"gorm.io/gorm"
)

// Product categories.
const (
	CategoryInsecticides   = "Insecticides"
	CategoryHerbicides     = "Herbicides"
	CategoryFungicides     = "Fungicides"
	CategoryRodenticides   = "Rodenticides"
	CategoryGrowthRegulate = "Plant Growth Regulators"
	CategoryBioPesticides  = "Bio-Pesticides"
	CategoryOther          = "Other"
)

// Categories lists every accepted category in display order.
var Categories = []string{
	CategoryInsecticides,
	CategoryHerbicides,
	CategoryFungicides,
	CategoryRodenticides,
	CategoryGrowthRegulate,
	CategoryBioPesticides,
	CategoryOther,
}

func IsValidCategory(c string) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

type Image struct {
	URL string `bson:"url" json:"url"`
	Alt string `bson:"alt" json:"alt"`
}

type Ratings struct {
	Average float64 `gorm:"default:0" bson:"average" json:"average" validate:"gte=0,lte=5"`
	Count   int     `gorm:"default:0" bson:"count"   json:"count"   validate:"gte=0"`
}

// Product is a catalogue entry. InStock mirrors Stock > 0 and is rewritten
// by every storage operation that touches Stock.
type Product struct {
	ID                string    `gorm:"primaryKey;size:24"                      bson:"_id"                         json:"_id"`
	Name              string    `gorm:"size:200;not null;index"                 bson:"name"                        json:"name"`
	Description       string    `gorm:"type:text;not null"                      bson:"description"                 json:"description"`
	Price             float64   `gorm:"not null;default:0;index"                bson:"price"                       json:"price"`
	Category          string    `gorm:"size:50;not null;index"                  bson:"category"                    json:"category"`
	Stock             int       `gorm:"not null;default:0"                      bson:"stock"                       json:"stock"`
	InStock           bool      `gorm:"not null;index"                          bson:"inStock"                     json:"inStock"`
	Images            []Image   `gorm:"serializer:json"                         bson:"images"                      json:"images"`
	SafetyWarnings    string    `gorm:"type:text;not null"                      bson:"safetyWarnings"              json:"safetyWarnings"`
	UsageInstructions string    `gorm:"type:text;not null"                      bson:"usageInstructions"           json:"usageInstructions"`
	ActiveIngredient  string    `gorm:"size:200"                                bson:"activeIngredient,omitempty"  json:"activeIngredient,omitempty"`
	PackSize          string    `gorm:"size:100"                                bson:"packSize,omitempty"          json:"packSize,omitempty"`
	Manufacturer      string    `gorm:"size:200"                                bson:"manufacturer,omitempty"      json:"manufacturer,omitempty"`
	Ratings           Ratings   `gorm:"embedded;embeddedPrefix:rating_"         bson:"ratings"                     json:"ratings"`
	Featured          bool      `gorm:"not null;default:false;index"            bson:"featured"                    json:"featured"`
	CreatedAt         time.Time `gorm:"index"                                   bson:"createdAt"                   json:"createdAt"`
	UpdatedAt         time.Time `                                               bson:"updatedAt"                   json:"updatedAt"`
}

// SyncStock recomputes the derived availability flag.
func (p *Product) SyncStock() {
	p.InStock = p.Stock > 0
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	if p.ID == "" {
		p.ID = NewID()
	}
	p.SyncStock()
	return nil
}

func (p *Product) BeforeSave(*gorm.DB) error {
	p.SyncStock()
	return nil
}

// PrimaryImage is the URL snapshotted into order and cart lines.
func (p *Product) PrimaryImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0].URL
}
