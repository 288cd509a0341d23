package resource

import "time"

const ResourcesTableName = "resources"

// Resource types.
const (
	TypeLogo       = "logo"
	TypeScreenshot = "screenshot"
)

// Owner kinds a resource can hang off.
const (
	OwnerMod  = "mods"
	OwnerGame = "games"
)

const (
	URLMaxLen   = 512
	PageSizeMin = 1
	PageSizeMax = 50
	OwnersMax   = 50
)

// ResourceModel is one image attached to a mod or game.
type ResourceModel struct {
	ID   int64  `gorm:"primaryKey" json:"id"`
	Type string `gorm:"size:32;index" json:"type"`
	URL  string `gorm:"size:512" json:"url"`

	DateEvent time.Time `json:"date_event"`

	OwnerType string `gorm:"size:16;index:idx_resource_owner" json:"owner_type"`
	OwnerID   int64  `gorm:"index:idx_resource_owner" json:"owner_id"`
}

func (ResourceModel) TableName() string {
	return ResourcesTableName
}
