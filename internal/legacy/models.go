// Package legacy reads a 4images gallery: its database tables and the media
// directories under data/.
package legacy

// Table describes one 4images table by its unprefixed name and id column.
type Table struct {
	Name     string
	IDColumn string
}

// The 4images tables read by the migration.
var (
	CategoriesTable = Table{Name: "categories", IDColumn: "cat_id"}
	ImagesTable     = Table{Name: "images", IDColumn: "image_id"}
	CommentsTable   = Table{Name: "comments", IDColumn: "comment_id"}
	UsersTable      = Table{Name: "users", IDColumn: "user_id"}
)

// RequiredTables lists the tables that must exist before a migration starts.
var RequiredTables = []Table{ImagesTable, CategoriesTable, CommentsTable, UsersTable}

// Category is a row of <prefix>categories.
type Category struct {
	CatID          uint   `gorm:"column:cat_id;primaryKey"`
	CatName        string `gorm:"column:cat_name"`
	CatDescription string `gorm:"column:cat_description"`
	CatParentID    uint   `gorm:"column:cat_parent_id"`
	CatHits        int    `gorm:"column:cat_hits"`
	CatOrder       int    `gorm:"column:cat_order"`
}

// SourceID returns the category id.
func (c Category) SourceID() uint { return c.CatID }

// Image is a row of <prefix>images joined with the uploader's user name.
type Image struct {
	ImageID          uint    `gorm:"column:image_id;primaryKey"`
	CatID            uint    `gorm:"column:cat_id"`
	UserID           int     `gorm:"column:user_id"` // -1 for guests
	ImageName        string  `gorm:"column:image_name"`
	ImageDescription string  `gorm:"column:image_description"`
	ImageKeywords    string  `gorm:"column:image_keywords"`
	ImageDate        int64   `gorm:"column:image_date"` // unix seconds
	ImageActive      int     `gorm:"column:image_active"`
	ImageMediaFile   string  `gorm:"column:image_media_file"`
	ImageThumbFile   string  `gorm:"column:image_thumb_file"`
	ImageVotes       int     `gorm:"column:image_votes"`
	ImageRating      float64 `gorm:"column:image_rating"`
	ImageHits        int     `gorm:"column:image_hits"`

	// UserName comes from the LEFT JOIN on <prefix>users; empty for guests.
	UserName *string `gorm:"column:user_name;->"`
}

// SourceID returns the image id.
func (i Image) SourceID() uint { return i.ImageID }

// Author returns the joined user name or an empty string.
func (i Image) Author() string {
	if i.UserName == nil {
		return ""
	}
	return *i.UserName
}

// Comment is a row of <prefix>comments.
type Comment struct {
	CommentID       uint   `gorm:"column:comment_id;primaryKey"`
	ImageID         uint   `gorm:"column:image_id"`
	UserID          int    `gorm:"column:user_id"`
	UserName        string `gorm:"column:user_name"`
	CommentHeadline string `gorm:"column:comment_headline"`
	CommentText     string `gorm:"column:comment_text"`
	CommentIP       string `gorm:"column:comment_ip"`
	CommentDate     int64  `gorm:"column:comment_date"` // unix seconds
}

// SourceID returns the comment id.
func (c Comment) SourceID() uint { return c.CommentID }
