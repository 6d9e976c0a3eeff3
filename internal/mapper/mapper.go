// Package mapper converts 4images rows into gallery records. The functions
// are pure: the same row and Options always give the same record.
package mapper

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/tphakala/gallery-migrate/internal/gallery"
	"github.com/tphakala/gallery-migrate/internal/legacy"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Options parameterizes the mapping.
type Options struct {
	// Now is used for fields the source has no value for, e.g. category creation time.
	Now time.Time
	// Decode converts legacy text to UTF-8; nil leaves text unchanged.
	Decode func(string) string
}

func (o Options) decode(s string) string {
	if o.Decode == nil {
		return s
	}
	return o.Decode(s)
}

// Published and approved flags set on records the source has no flag for.
const (
	DefaultPublished = 1
	DefaultApproved  = 1
)

// Category maps a 4images category. The id and parent id are kept.
func Category(src legacy.Category, opts Options) gallery.Category {
	name := opts.decode(src.CatName)
	return gallery.Category{
		CID:         src.CatID,
		Name:        name,
		Alias:       Alias(name, "category", src.CatID),
		ParentID:    src.CatParentID,
		Description: opts.decode(src.CatDescription),
		Ordering:    src.CatOrder,
		Published:   DefaultPublished,
		Created:     opts.Now.UTC(),
	}
}

// Image maps a 4images image. The vote sum is votes times the average rating.
func Image(src legacy.Image, opts Options) gallery.Image {
	title := opts.decode(src.ImageName)
	return gallery.Image{
		ID:           src.ImageID,
		CatID:        src.CatID,
		ImgTitle:     title,
		Alias:        Alias(title, "image", src.ImageID),
		ImgText:      opts.decode(src.ImageDescription),
		ImgAuthor:    opts.decode(src.Author()),
		ImgDate:      UnixTime(src.ImageDate),
		Hits:         src.ImageHits,
		ImgVotes:     src.ImageVotes,
		ImgVoteSum:   float64(src.ImageVotes) * src.ImageRating,
		Published:    src.ImageActive,
		Approved:     DefaultApproved,
		ImgFilename:  src.ImageMediaFile,
		ImgThumbName: src.ImageMediaFile,
	}
}

// Comment maps a 4images comment. Headline and text are combined into one
// BBCode text: the headline in bold, a blank line, then the text.
func Comment(src legacy.Comment, opts Options) gallery.Comment {
	return gallery.Comment{
		CmtID:     src.CommentID,
		CmtPic:    src.ImageID,
		CmtIP:     src.CommentIP,
		UserID:    max(src.UserID, 0),
		CmtName:   opts.decode(src.UserName),
		CmtText:   CommentText(opts.decode(src.CommentHeadline), opts.decode(src.CommentText)),
		CmtDate:   UnixTime(src.CommentDate),
		Published: DefaultPublished,
		Approved:  DefaultApproved,
	}
}

// CommentText combines a comment headline and body.
func CommentText(headline, body string) string {
	return "[b]" + headline + "[/b]\n\n" + body
}

// UnixTime converts a unix timestamp in seconds to UTC.
func UnixTime(seconds int64) time.Time {
	return time.Unix(seconds, 0).UTC()
}

// Alias returns a URL slug of name: lower case ASCII letters and digits
// separated by single dashes. An empty slug falls back to "<fallback>-<id>".
func Alias(name, fallback string, id uint) string {
	stripped, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), name)
	if err != nil {
		stripped = name
	}

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(stripped) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}

	alias := strings.TrimSuffix(b.String(), "-")
	if alias == "" {
		return fmt.Sprintf("%s-%d", fallback, id)
	}
	return alias
}
