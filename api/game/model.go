package game

import "time"

const GamesTableName = "games"

// Field limits of the game catalog.
const (
	NameMinLen      = 1
	NameMaxLen      = 128
	ShortDescMaxLen = 256
	DescMaxLen      = 10000
	PageSizeMin     = 1
	PageSizeMax     = 50
)

// Types of catalog entries.
const (
	TypeGame = "game"
	TypeApp  = "app"
)

// GameModel is one game or app the catalog groups mods under.
type GameModel struct {
	ID   int64  `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:256" json:"name"`

	ShortDescription string `gorm:"size:512" json:"short_description,omitempty"`
	Description      string `gorm:"type:text" json:"description,omitempty"`

	Type   string `gorm:"size:16" json:"type"`
	Logo   string `gorm:"size:512" json:"logo,omitempty"`
	Source string `gorm:"size:64" json:"source"`

	DateCreation time.Time `json:"date_creation"`

	ModsCount     int64 `gorm:"column:mods_count" json:"mods_count"`
	ModsDownloads int64 `gorm:"column:mods_downloads" json:"mods_downloads"`
}

func (GameModel) TableName() string {
	return GamesTableName
}
