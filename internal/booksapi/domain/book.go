package domain

import "time"

// Book is the managed resource entity. IDs are server-assigned ULIDs, so id
// order matches creation order.
type Book struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Author        string    `json:"author"`
	Genre         string    `json:"genre"`
	PublishedDate *string   `json:"published_date"` // ISO date, optional
	Summary       *string   `json:"summary"`        // optional
	CreatedAt     time.Time `json:"-"`
	UpdatedAt     time.Time `json:"-"`
}

// BookPatch is a partial update. Nil fields were not provided by the caller;
// the distinction matters both for persistence and for the change event
// payload, which carries only the fields that were actually set.
type BookPatch struct {
	Title         *string
	Author        *string
	Genre         *string
	PublishedDate *string
	Summary       *string
}

// IsEmpty reports whether the patch sets no fields at all.
func (p BookPatch) IsEmpty() bool {
	return p.Title == nil && p.Author == nil && p.Genre == nil &&
		p.PublishedDate == nil && p.Summary == nil
}

// Fields returns the explicitly-set fields as a map, which is exactly the
// changed-field subset the mutation event carries.
func (p BookPatch) Fields() map[string]any {
	fields := make(map[string]any)
	if p.Title != nil {
		fields["title"] = *p.Title
	}
	if p.Author != nil {
		fields["author"] = *p.Author
	}
	if p.Genre != nil {
		fields["genre"] = *p.Genre
	}
	if p.PublishedDate != nil {
		fields["published_date"] = *p.PublishedDate
	}
	if p.Summary != nil {
		fields["summary"] = *p.Summary
	}
	return fields
}

// Apply overlays the set fields onto b.
func (p BookPatch) Apply(b *Book) {
	if p.Title != nil {
		b.Title = *p.Title
	}
	if p.Author != nil {
		b.Author = *p.Author
	}
	if p.Genre != nil {
		b.Genre = *p.Genre
	}
	if p.PublishedDate != nil {
		b.PublishedDate = p.PublishedDate
	}
	if p.Summary != nil {
		b.Summary = p.Summary
	}
}
