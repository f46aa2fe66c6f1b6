package model

import "time"

// Collection names a slug namespace. Categories and surveys never share slugs
// with each other's checks.
type Collection string

const (
	Categories Collection = "categories"
	Surveys    Collection = "surveys"
)

type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl,omitempty"`
	GoogleID  string `json:"-"`
}

type Category struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type QuestionType struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Survey owns its questions and custom fields; an update replaces both sets.
type Survey struct {
	ID            string        `json:"id"`
	Title         string        `json:"title"`
	Subtitle      string        `json:"subtitle"`
	Description   string        `json:"description"`
	Instructions  string        `json:"instructions"`
	Slug          string        `json:"slug"`
	IsPublished   bool          `json:"isPublished"`
	CategoryID    string        `json:"categoryId,omitempty"`
	UserID        string        `json:"userId"`
	Questions     []Question    `json:"questions"`
	CustomFields  []CustomField `json:"customFields"`
	ResponseCount int           `json:"responseCount"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

type Question struct {
	Text           string `json:"text"`
	QuestionTypeID string `json:"questionTypeId"`
}

type CustomField struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// SurveySummary is the row shape of the surveys listing.
type SurveySummary struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Slug          string    `json:"slug"`
	IsPublished   bool      `json:"isPublished"`
	CategoryName  string    `json:"categoryName,omitempty"`
	Questions     []string  `json:"questions"`
	ResponseCount int       `json:"responseCount"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}
