// Package gallery writes the target gallery: its category, image and comment
// tables and the originals/details/thumbnails file layout.
package gallery

import (
	"context"
	"fmt"
	"time"

	"github.com/tphakala/gallery-migrate/internal/errors"
	"gorm.io/gorm"
)

// Category is a gallery category. Categories form a nested set rebuilt by
// RebuildTree; ParentID 0 marks a top level category.
type Category struct {
	CID         uint   `gorm:"column:cid;primaryKey;autoIncrement:false"`
	Name        string `gorm:"size:255;not null"`
	Alias       string `gorm:"size:255;not null;index"`
	ParentID    uint   `gorm:"index;not null;default:0"`
	Lft         int    `gorm:"not null;default:0"`
	Rgt         int    `gorm:"not null;default:0"`
	Level       int    `gorm:"not null;default:0"`
	Description string `gorm:"type:text"`
	Ordering    int    `gorm:"not null;default:0"`
	Published   int    `gorm:"not null;default:0"`
	Catpath     string `gorm:"size:2048;not null"`
	Owner       int    `gorm:"not null;default:0"`
	Created     time.Time
}

// Image is a gallery image. ImgFilename and ImgThumbName are relative to
// the category directory.
type Image struct {
	ID           uint      `gorm:"column:id;primaryKey;autoIncrement:false"`
	CatID        uint      `gorm:"column:catid;index;not null"`
	ImgTitle     string    `gorm:"column:imgtitle;size:255;not null"`
	Alias        string    `gorm:"size:255;not null"`
	ImgText      string    `gorm:"column:imgtext;type:text"`
	ImgAuthor    string    `gorm:"column:imgauthor;size:255"`
	ImgDate      time.Time `gorm:"column:imgdate"`
	Hits         int       `gorm:"not null;default:0"`
	ImgVotes     int       `gorm:"column:imgvotes;not null;default:0"`
	ImgVoteSum   float64   `gorm:"column:imgvotesum;not null;default:0"`
	Published    int       `gorm:"not null;default:0"`
	Approved     int       `gorm:"not null;default:0"`
	ImgFilename  string    `gorm:"column:imgfilename;size:255;not null"`
	ImgThumbName string    `gorm:"column:imgthumbname;size:255;not null"`
	Owner        int       `gorm:"not null;default:0"`
}

// Comment is a comment on a gallery image.
type Comment struct {
	CmtID     uint      `gorm:"column:cmtid;primaryKey;autoIncrement:false"`
	CmtPic    uint      `gorm:"column:cmtpic;index;not null"`
	CmtIP     string    `gorm:"column:cmtip;size:45"`
	UserID    int       `gorm:"column:userid;not null;default:0"`
	CmtName   string    `gorm:"column:cmtname;size:255"`
	CmtText   string    `gorm:"column:cmttext;type:text"`
	CmtDate   time.Time `gorm:"column:cmtdate"`
	Published int       `gorm:"not null;default:0"`
	Approved  int       `gorm:"not null;default:0"`
}

// Initialize creates the gallery tables.
func Initialize(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(&Category{}, &Image{}, &Comment{}); err != nil {
		return errors.New(fmt.Errorf("failed to migrate gallery tables: %w", err)).
			Component("gallery").
			Category(errors.CategoryDatabase).
			Build()
	}
	return nil
}
