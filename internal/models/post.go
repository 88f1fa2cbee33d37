package models

import (
	"time"
	"unicode/utf8"
)

// PostPreviewLength is the number of runes shown by Post.String.
const PostPreviewLength = 15

// Post is a text entry by an author, optionally filed under a group.
type Post struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	CreatedAt time.Time `gorm:"index" json:"pub_date"`
	UpdatedAt time.Time `json:"updated_at"`
	AuthorID  uint      `gorm:"not null;index" json:"author_id"`
	Author    User      `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"author"`
	GroupID   *uint     `gorm:"index" json:"group_id,omitempty"`
	Group     *Group    `gorm:"foreignKey:GroupID;constraint:OnDelete:SET NULL" json:"group,omitempty"`
	Image     string    `gorm:"size:255" json:"image,omitempty"`
}

func (p Post) String() string {
	if utf8.RuneCountInString(p.Text) <= PostPreviewLength {
		return p.Text
	}
	return string([]rune(p.Text)[:PostPreviewLength])
}
