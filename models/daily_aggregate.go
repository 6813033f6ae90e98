package models

import "time"

// DailyAggregate stores the materialized view count for one article on one
// UTC calendar day. Date is always midnight UTC. At most one row exists per
// (article_id, date); days with zero reads have no row at all, and readers
// must treat the absence as zero.
type DailyAggregate struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ArticleID uint      `gorm:"index:idx_daily_article_date,unique;not null" json:"article_id"`
	Date      time.Time `gorm:"index:idx_daily_article_date,unique;type:date;not null" json:"date"`
	ViewCount int64     `gorm:"not null;default:0" json:"view_count"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
