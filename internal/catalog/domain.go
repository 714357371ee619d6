// internal/catalog/domain.go
package catalog

// Book is a catalog title. Author and category links are stored by id.
type Book struct {
	ID              int64   `db:"id"`
	ISBN            string  `db:"isbn"`
	Title           string  `db:"title"`
	PublicationYear int     `db:"publication_year"`
	Edition         string  `db:"edition"`
	Summary         string  `db:"summary"`
	Language        string  `db:"language"`
	CoverURL        string  `db:"cover_url"`
	PublisherID     int64   `db:"publisher_id"`
	AuthorIDs       []int64 `db:"-"`
	CategoryIDs     []int64 `db:"-"`
	// CategoryNames is filled on reads, in CategoryIDs order.
	CategoryNames []string `db:"-"`
}

// BookOverview is the listing view of a book.
type BookOverview struct {
	ID    int64  `db:"id"`
	ISBN  string `db:"isbn"`
	Title string `db:"title"`
}

// BookInput holds the writable fields of a book. On update a nil field keeps
// the stored value; on create every field except Summary and CoverURL is set.
type BookInput struct {
	ISBN            *string
	Title           *string
	PublicationYear *int
	Edition         *string
	Summary         *string
	Language        *string
	CoverURL        *string
	PublisherID     *int64
	AuthorIDs       []int64
	CategoryIDs     []int64
}

func (in BookInput) apply(b *Book) {
	if in.ISBN != nil {
		b.ISBN = *in.ISBN
	}
	if in.Title != nil {
		b.Title = *in.Title
	}
	if in.PublicationYear != nil {
		b.PublicationYear = *in.PublicationYear
	}
	if in.Edition != nil {
		b.Edition = *in.Edition
	}
	if in.Summary != nil {
		b.Summary = *in.Summary
	}
	if in.Language != nil {
		b.Language = *in.Language
	}
	if in.CoverURL != nil {
		b.CoverURL = *in.CoverURL
	}
}

type Author struct {
	ID        int64  `db:"id"`
	Name      string `db:"name"`
	Biography string `db:"biography"`
}

type Publisher struct {
	ID      int64  `db:"id"`
	Name    string `db:"name"`
	Address string `db:"address"`
}

// uniqueIDs returns ids without duplicates, keeping first occurrences.
func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
