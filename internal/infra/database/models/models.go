package models

import (
	"time"
)

type Album struct {
	ID          string    `json:"id" gorm:"primaryKey;type:text"`
	Title       string    `json:"title" gorm:"type:text;not null"`
	Description string    `json:"description" gorm:"type:text"`
	CoverURL    string    `json:"coverUrl" gorm:"type:text"`
	CreatedAt   time.Time `json:"createdAt" gorm:"type:timestamp with time zone;not null;default:clock_timestamp()"`
	UpdatedAt   time.Time `json:"updatedAt" gorm:"type:timestamp with time zone;not null;default:clock_timestamp()"`
}

// Media.Order is nullable on purpose: rows created before the order
// column was introduced carry NULL and sort by uploaded_at instead.
type Media struct {
	ID         string    `json:"id" gorm:"primaryKey;type:text"`
	AlbumID    string    `json:"albumId" gorm:"type:text;index;not null"`
	Album      Album     `json:"-" gorm:"foreignKey:AlbumID;references:ID;constraint:OnDelete:CASCADE;"`
	URL        string    `json:"url" gorm:"type:text;index;not null"`
	Filename   string    `json:"filename" gorm:"type:text"`
	Type       string    `json:"type" gorm:"type:text"`
	Order      *int64    `json:"order" gorm:"column:order;type:bigint"`
	UploadedAt time.Time `json:"uploadedAt" gorm:"type:timestamp with time zone;not null;default:clock_timestamp();index"`
	Published  bool      `json:"published" gorm:"type:boolean;not null;default:true"`
	Favorite   bool      `json:"favorite" gorm:"type:boolean;not null;default:false"`
}
