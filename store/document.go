package store

import (
	"strings"

	"github.com/pkg/errors"
)

// Category classifies a knowledge document.
type Category string

const (
	CategoryLoans       Category = "loans"
	CategoryAccounts    Category = "accounts"
	CategoryCredit      Category = "credit"
	CategoryInvestments Category = "investments"
	CategorySecurity    Category = "security"
	CategoryBusiness    Category = "business"
	CategoryRegulations Category = "regulations"
	CategoryRates       Category = "rates"
	CategorySupport     Category = "support"
	CategoryDigital     Category = "digital"
	CategoryPlanning    Category = "planning"
)

var knownCategories = map[Category]bool{
	CategoryLoans:       true,
	CategoryAccounts:    true,
	CategoryCredit:      true,
	CategoryInvestments: true,
	CategorySecurity:    true,
	CategoryBusiness:    true,
	CategoryRegulations: true,
	CategoryRates:       true,
	CategorySupport:     true,
	CategoryDigital:     true,
	CategoryPlanning:    true,
}

// IsValid reports whether c is a known category.
func (c Category) IsValid() bool {
	return knownCategories[c]
}

// Document is a knowledge-base document. Immutable once indexed; the ID is unique.
type Document struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Category Category `json:"category"`
	Source   string   `json:"source"`
}

// EmbeddingText returns the text that is embedded for this document.
// Title and content together, matching what queries are scored against.
func (d *Document) EmbeddingText() string {
	return d.Title + "\n" + d.Content
}

// Validate checks the document shape at ingestion time.
func (d *Document) Validate() error {
	if strings.TrimSpace(d.ID) == "" {
		return errors.New("document id is required")
	}
	if strings.TrimSpace(d.Title) == "" {
		return errors.Errorf("document %s: title is required", d.ID)
	}
	if strings.TrimSpace(d.Content) == "" {
		return errors.Errorf("document %s: content is required", d.ID)
	}
	if !d.Category.IsValid() {
		return errors.Errorf("document %s: unknown category %q", d.ID, d.Category)
	}
	return nil
}

// FindDocument is the find condition for documents.
type FindDocument struct {
	ID       *string
	Category *Category
}
