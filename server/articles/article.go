package articles

import (
	"errors"
	"time"
)

// Status is the location of an article's canonical file. Draft content is
// mutable and invisible to readers; Published content is live. Publishing
// moves the file between the two locations, it never edits content.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
)

var (
	ErrArticleNotFound = errors.New("article not found")
	// Reserved. Create accepts externally generated ids and trusts them to be unique.
	ErrArticleAlreadyExists = errors.New("article already exists")
)

// Article is the canonical document stored at articles/<status>/<id>.json.
// The id is the storage key only; it is never written into the document.
type Article struct {
	Title       string    `json:"title"`
	Author      string    `json:"author"`
	Data        string    `json:"data"`
	Tags        []string  `json:"tags"`
	CreatedDate time.Time `json:"created_date"`
	UpdateDate  time.Time `json:"update_date"`
}

// Metadata is the list-friendly projection of an Article, one file per
// (status, id) under cache/metadata.
type Metadata struct {
	Title       string    `json:"title"`
	Author      string    `json:"author"`
	Tags        []string  `json:"tags"`
	CreatedDate time.Time `json:"created_date"`
	UpdateDate  time.Time `json:"update_date"`
}

func metadataOf(a *Article) Metadata {
	return Metadata{
		Title:       a.Title,
		Author:      a.Author,
		Tags:        a.Tags,
		CreatedDate: a.CreatedDate,
		UpdateDate:  a.UpdateDate,
	}
}

// Latest is what ReadLatest returns: the most current copy of an article,
// which location it came from, and enough context for an editor UI to show
// "has unpublished changes".
type Latest struct {
	Article     *Article
	Status      Status
	IsPublished bool
	// Update date of the published copy, when one exists.
	PublishedUpdateDate *time.Time
}
