package models

import "time"

// ReadEvent records one view of one article at one instant. Rows are
// append-only: they are written when an article is served and never updated.
// ReaderID is nil for anonymous visitors. De-duplication of repeat reads, if
// any, is the writer's concern; the rollup counts every stored row.
type ReadEvent struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ArticleID uint      `gorm:"index;not null" json:"article_id"`
	ReaderID  *uint     `gorm:"index" json:"reader_id"`
	ReadAt    time.Time `gorm:"index;not null" json:"read_at"`
}
