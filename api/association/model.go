package association

const GameGenresTableName = "unity_games_genres"
const GameTagsTableName = "unity_games_tags"

// GameGenreModel links a game to one of its genres.
type GameGenreModel struct {
	GameID  int64 `gorm:"uniqueIndex:idx_game_genre" json:"game_id"`
	GenreID int64 `gorm:"uniqueIndex:idx_game_genre" json:"genre_id"`
}

func (GameGenreModel) TableName() string {
	return GameGenresTableName
}

// GameTagModel allow-lists a mod tag for a game.
type GameTagModel struct {
	GameID int64 `gorm:"uniqueIndex:idx_game_tag" json:"game_id"`
	TagID  int64 `gorm:"uniqueIndex:idx_game_tag" json:"tag_id"`
}

func (GameTagModel) TableName() string {
	return GameTagsTableName
}
