package models

import (
	"encoding/json"
	"strings"

	"gorm.io/datatypes"
)

// AnonymousOwner is the bucket requests without a user identifier fall into.
const AnonymousOwner = "anonymous"

// Drawing is a completed step-by-step drawing generation, persisted only after
// a full image result has been obtained.
type Drawing struct {
	BaseModel

	Title       string         `gorm:"type:varchar(100);not null" json:"title"`
	Description string         `gorm:"type:text" json:"description,omitempty"`
	Prompt      string         `gorm:"type:text;not null" json:"prompt"`
	ImageURL    string         `gorm:"type:varchar(255)" json:"image_url"`
	StepImages  datatypes.JSON `json:"step_images"`
	OwnerID     string         `gorm:"type:varchar(50);index" json:"owner_id"`
	Style       string         `gorm:"type:varchar(50)" json:"style"`
	Steps       int            `json:"steps"`
}

// Normalise fills the anonymous owner bucket for records without an owner.
func (d *Drawing) Normalise() {
	d.OwnerID = strings.TrimSpace(d.OwnerID)
	if d.OwnerID == "" {
		d.OwnerID = AnonymousOwner
	}
}

// StepImageURLs decodes the stored JSON step list, preserving generation order.
func (d *Drawing) StepImageURLs() []string {
	if len(d.StepImages) == 0 {
		return nil
	}
	var urls []string
	if err := json.Unmarshal(d.StepImages, &urls); err != nil {
		return nil
	}
	return urls
}

// SetStepImageURLs encodes the ordered step list into the JSON column.
func (d *Drawing) SetStepImageURLs(urls []string) error {
	raw, err := json.Marshal(urls)
	if err != nil {
		return err
	}
	d.StepImages = datatypes.JSON(raw)
	return nil
}
