package mod

import (
	"time"
)

const ModsTableName = "mods"
const ModAuthorsTableName = "mods_and_authors"
const ModTagsTableName = "unity_mods_tags"
const ModDependenciesTableName = "unity_mods_dependencies"

// Condition of a mod's archive.
const (
	ConditionReady     = 0
	ConditionUploading = 1
)

// Validation limits.
const (
	NameMinLen       = 1
	NameMaxLen       = 60
	ShortDescMaxLen  = 256
	DescMaxLen       = 10000
	PageSizeMin      = 1
	PageSizeMax      = 50
	FiltersMax       = 90
	PublicIDsMax     = 50
	FileMaxBytes     = 838_860_800
)

// ModModel is one catalog entry. Public is the visibility tri-state:
// 0 cataloged, 1 unlisted-but-accessible, 2 restricted.
type ModModel struct {
	ID   int64  `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:128" json:"name"`

	ShortDescription string `gorm:"size:512" json:"short_description,omitempty"`
	Description      string `gorm:"type:text" json:"description,omitempty"`

	Size int64 `json:"size"`

	Condition int `json:"condition"`
	Public    int `json:"public"`

	DateCreation   time.Time `json:"date_creation"`
	DateUpdateFile time.Time `json:"date_update_file"`
	DateEdit       time.Time `json:"date_edit"`

	Source    string `gorm:"size:64" json:"source"`
	SourceID  *int64 `gorm:"uniqueIndex" json:"source_id"`
	Downloads int64  `json:"downloads"`

	Game int64 `gorm:"index" json:"game"`
}

func (ModModel) TableName() string {
	return ModsTableName
}

// ModAuthorModel is one authorship row. At most one row per (mod, user);
// at most one row per mod with Owner=true.
type ModAuthorModel struct {
	ModID  int64 `gorm:"uniqueIndex:idx_mod_author" json:"mod_id"`
	UserID int64 `gorm:"uniqueIndex:idx_mod_author;index" json:"user_id"`
	Owner  bool  `json:"owner"`
}

func (ModAuthorModel) TableName() string {
	return ModAuthorsTableName
}

// ModTagModel associates a mod with a tag.
type ModTagModel struct {
	ModID int64 `gorm:"uniqueIndex:idx_mod_tag" json:"mod_id"`
	TagID int64 `gorm:"uniqueIndex:idx_mod_tag" json:"tag_id"`
}

func (ModTagModel) TableName() string {
	return ModTagsTableName
}

// ModDependencyModel marks Dependence as required by ModID.
type ModDependencyModel struct {
	ModID      int64 `gorm:"uniqueIndex:idx_mod_dependency" json:"mod_id"`
	Dependence int64 `gorm:"uniqueIndex:idx_mod_dependency" json:"dependence"`
}

func (ModDependencyModel) TableName() string {
	return ModDependenciesTableName
}

// AccessDeniedSentinel replaces hidden entries in mixed listing results.
const AccessDeniedSentinel = "Access denied (hide info)"
