// Package models holds the persisted entity shapes: content items, expert
// responses, library entries and the expert/domain reference data.
package models

import (
	"strconv"
	"time"
)

// ContentStatus is the lifecycle state of a content item.
type ContentStatus string

const (
	StatusPending   ContentStatus = "pending"
	StatusInReview  ContentStatus = "in-review"
	StatusValidated ContentStatus = "validated"
	StatusRejected  ContentStatus = "rejected"
)

// Terminal reports whether no further transitions are permitted.
func (s ContentStatus) Terminal() bool {
	return s == StatusValidated || s == StatusRejected
}

// Valid reports whether s is a recognized status.
func (s ContentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInReview, StatusValidated, StatusRejected:
		return true
	}
	return false
}

// ContentType tags the kind of submitted material.
type ContentType string

const (
	TypeArticle                ContentType = "article"
	TypeBlogPost               ContentType = "blog-post"
	TypeResearchPaper          ContentType = "research-paper"
	TypeMarketingCopy          ContentType = "marketing-copy"
	TypeTechnicalDocumentation ContentType = "technical-documentation"
	TypeOther                  ContentType = "other"
)

// ContentTypes lists the recognized content type tags.
var ContentTypes = []ContentType{
	TypeArticle,
	TypeBlogPost,
	TypeResearchPaper,
	TypeMarketingCopy,
	TypeTechnicalDocumentation,
	TypeOther,
}

// Valid reports whether t is a recognized content type.
func (t ContentType) Valid() bool {
	for _, known := range ContentTypes {
		if t == known {
			return true
		}
	}
	return false
}

// ContentItem is a unit of submitted material awaiting or having completed
// expert validation.
type ContentItem struct {
	ID           string        `json:"id"`
	Title        string        `json:"title"`
	Body         string        `json:"body"`
	Source       string        `json:"source"`
	Type         ContentType   `json:"type"`
	Requirements string        `json:"requirements,omitempty"`
	Status       ContentStatus `json:"status"`
	SubmittedAt  time.Time     `json:"submittedAt"`
	ValidatedAt  *time.Time    `json:"validatedAt,omitempty"`
}

func (c ContentItem) Key() string { return c.ID }

func (c ContentItem) WithKey(id string) ContentItem {
	c.ID = id
	return c
}

func (c ContentItem) Index() map[string]string {
	return map[string]string{
		"status": string(c.Status),
		"type":   string(c.Type),
	}
}

// ExpertResponse is a candidate validation submitted against a content item.
type ExpertResponse struct {
	ID          string    `json:"id"`
	ContentID   string    `json:"contentId"`
	ExpertName  string    `json:"expertName"`
	Feedback    string    `json:"feedback"`
	Corrections string    `json:"corrections,omitempty"`
	Fee         float64   `json:"fee"`
	SubmittedAt time.Time `json:"submittedAt"`
	Selected    bool      `json:"selected"`
}

func (r ExpertResponse) Key() string { return r.ID }

func (r ExpertResponse) WithKey(id string) ExpertResponse {
	r.ID = id
	return r
}

func (r ExpertResponse) Index() map[string]string {
	return map[string]string{
		"contentId": r.ContentID,
		"selected":  strconv.FormatBool(r.Selected),
	}
}

// LibraryEntry is the append-only record produced by a successful commit.
type LibraryEntry struct {
	ID               string    `json:"id"`
	ContentID        string    `json:"contentId"`
	ValidatedContent string    `json:"validatedContent"`
	ExpertName       string    `json:"expertName"`
	ValidatedAt      time.Time `json:"validatedAt"`
	Tags             []string  `json:"tags"`
}

func (e LibraryEntry) Key() string { return e.ID }

func (e LibraryEntry) WithKey(id string) LibraryEntry {
	e.ID = id
	return e
}

func (e LibraryEntry) Index() map[string]string {
	return map[string]string{"contentId": e.ContentID}
}
