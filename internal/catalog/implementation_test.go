package catalog_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libranexus/internal/apperror"
	"libranexus/internal/catalog"
	"libranexus/internal/category"
	"libranexus/internal/circulation"
	"libranexus/internal/membership"
	"libranexus/internal/storage/memory"
)

func ptr[T any](v T) *T { return &v }

type fixture struct {
	db         *memory.DB
	svc        catalog.Service
	publisher  int64
	author     int64
	categories []int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	db := memory.New()
	svc := catalog.NewService(db.Catalog(), zerolog.Nop())

	pub, err := svc.CreatePublisher(ctx, "Chilton Books", "Philadelphia")
	require.NoError(t, err)
	author, err := svc.CreateAuthor(ctx, "Frank Herbert", "American author")
	require.NoError(t, err)

	cats := category.NewService(db.Categories(), zerolog.Nop())
	fiction, err := cats.Create(ctx, "Fiction", nil)
	require.NoError(t, err)
	scifi, err := cats.Create(ctx, "Sci-Fi", &fiction.ID)
	require.NoError(t, err)

	return &fixture{db: db, svc: svc, publisher: pub.ID, author: author.ID, categories: []int64{scifi.ID, fiction.ID}}
}

func (f *fixture) dune() catalog.BookInput {
	return catalog.BookInput{
		ISBN:            ptr("9780441172719"),
		Title:           ptr("Dune"),
		PublicationYear: ptr(1965),
		Edition:         ptr("1st"),
		Language:        ptr("en"),
		PublisherID:     ptr(f.publisher),
		AuthorIDs:       []int64{f.author, f.author},
		CategoryIDs:     f.categories,
	}
}

func TestCreateBookResolvesLinks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.svc.CreateBook(ctx, f.dune())
	require.NoError(t, err)
	assert.Equal(t, []int64{f.author}, b.AuthorIDs, "duplicate author ids collapse")
	assert.Equal(t, []string{"Sci-Fi", "Fiction"}, b.CategoryNames)

	_, err = f.svc.CreateBook(ctx, f.dune())
	assert.Equal(t, apperror.KindAlreadyExists, apperror.KindOf(err))

	byISBN, err := f.svc.GetBookByISBN(ctx, "9780441172719")
	require.NoError(t, err)
	assert.Equal(t, b.ID, byISBN.ID)

	_, err = f.svc.GetBookByISBN(ctx, "nope")
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
	assert.Contains(t, err.Error(), "book not found with isbn: nope")
}

func TestCreateBookMissingReferences(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := f.dune()
	in.CategoryIDs = []int64{f.categories[0], 999}
	_, err := f.svc.CreateBook(ctx, in)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))

	in = f.dune()
	in.AuthorIDs = []int64{999}
	_, err = f.svc.CreateBook(ctx, in)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))

	in = f.dune()
	in.PublisherID = ptr(int64(999))
	_, err = f.svc.CreateBook(ctx, in)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))

	_, err = f.svc.CreateBook(ctx, catalog.BookInput{Title: ptr("No ISBN")})
	assert.Equal(t, apperror.KindInvalidInput, apperror.KindOf(err))

	list, err := f.svc.ListBooks(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestUpdateBookIsPartial(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b, err := f.svc.CreateBook(ctx, f.dune())
	require.NoError(t, err)

	updated, err := f.svc.UpdateBook(ctx, b.ID, catalog.BookInput{Title: ptr("Dune Messiah")})
	require.NoError(t, err)
	assert.Equal(t, "Dune Messiah", updated.Title)
	assert.Equal(t, "9780441172719", updated.ISBN)
	assert.Equal(t, []string{"Sci-Fi", "Fiction"}, updated.CategoryNames)

	updated, err = f.svc.UpdateBook(ctx, b.ID, catalog.BookInput{CategoryIDs: []int64{f.categories[1]}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Fiction"}, updated.CategoryNames)

	other := f.dune()
	other.ISBN = ptr("9780441013593")
	second, err := f.svc.CreateBook(ctx, other)
	require.NoError(t, err)
	_, err = f.svc.UpdateBook(ctx, second.ID, catalog.BookInput{ISBN: ptr("9780441172719")})
	assert.Equal(t, apperror.KindAlreadyExists, apperror.KindOf(err))

	_, err = f.svc.UpdateBook(ctx, 999, catalog.BookInput{Title: ptr("x")})
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
}

func TestDeleteBorrowedBookConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b, err := f.svc.CreateBook(ctx, f.dune())
	require.NoError(t, err)

	members := membership.NewService(f.db.Membership(), zerolog.Nop())
	m, err := members.CreateMember(ctx, membership.MemberInput{Name: ptr("Paul"), Email: ptr("paul@arrakis.example")})
	require.NoError(t, err)
	lending := circulation.NewService(f.db.Circulation(), zerolog.Nop())
	loan, err := lending.Borrow(ctx, m.ID, b.ID)
	require.NoError(t, err)

	available, err := f.svc.IsBookAvailable(ctx, b.ID)
	require.NoError(t, err)
	assert.False(t, available)

	err = f.svc.DeleteBook(ctx, b.ID)
	assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))
	assert.Contains(t, err.Error(), "currently borrowed")

	_, err = lending.Return(ctx, loan.TransactionID)
	require.NoError(t, err)
	available, err = f.svc.IsBookAvailable(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, available)

	require.NoError(t, f.svc.DeleteBook(ctx, b.ID))
	_, err = f.svc.GetBook(ctx, b.ID)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
	_, err = f.svc.IsBookAvailable(ctx, b.ID)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
}

func TestContributorsWithBooksCannotBeDeleted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b, err := f.svc.CreateBook(ctx, f.dune())
	require.NoError(t, err)

	err = f.svc.DeleteAuthor(ctx, f.author)
	assert.Equal(t, apperror.KindHasAssociatedBooks, apperror.KindOf(err))
	err = f.svc.DeletePublisher(ctx, f.publisher)
	assert.Equal(t, apperror.KindHasAssociatedBooks, apperror.KindOf(err))

	require.NoError(t, f.svc.DeleteBook(ctx, b.ID))
	require.NoError(t, f.svc.DeleteAuthor(ctx, f.author))
	require.NoError(t, f.svc.DeletePublisher(ctx, f.publisher))

	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(f.svc.DeleteAuthor(ctx, f.author)))
}

func TestContributorNamesAreUnique(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateAuthor(ctx, "Frank Herbert", "")
	assert.Equal(t, apperror.KindAlreadyExists, apperror.KindOf(err))
	_, err = f.svc.CreatePublisher(ctx, "Chilton Books", "")
	assert.Equal(t, apperror.KindAlreadyExists, apperror.KindOf(err))

	other, err := f.svc.CreateAuthor(ctx, "Brian Herbert", "son")
	require.NoError(t, err)
	_, err = f.svc.UpdateAuthor(ctx, other.ID, "Frank Herbert", "")
	assert.Equal(t, apperror.KindAlreadyExists, apperror.KindOf(err))

	a, err := f.svc.UpdateAuthor(ctx, other.ID, "", "novelist")
	require.NoError(t, err)
	assert.Equal(t, "Brian Herbert", a.Name)
	assert.Equal(t, "novelist", a.Biography)

	p, err := f.svc.UpdatePublisher(ctx, f.publisher, "Ace Books", "")
	require.NoError(t, err)
	assert.Equal(t, "Philadelphia", p.Address)
}
