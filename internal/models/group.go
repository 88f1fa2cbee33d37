package models

// Group is a named community posts can be filed under.
type Group struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Title       string `gorm:"size:200;not null" json:"title"`
	Slug        string `gorm:"size:50;uniqueIndex;not null" json:"slug"`
	Description string `gorm:"type:text" json:"description,omitempty"`
	// PostsCount is computed at query time.
	PostsCount int64 `gorm:"->;-:migration" json:"posts_count,omitempty"`
}

func (g Group) String() string {
	return g.Title
}
