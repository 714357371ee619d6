package membership_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libranexus/internal/apperror"
	"libranexus/internal/catalog"
	"libranexus/internal/circulation"
	"libranexus/internal/membership"
	"libranexus/internal/storage/memory"
)

func ptr[T any](v T) *T { return &v }

func TestCreateMemberDefaultsMembershipDate(t *testing.T) {
	db := memory.New()
	svc := membership.NewService(db.Membership(), zerolog.Nop())
	ctx := context.Background()

	before := time.Now().UTC().Truncate(24 * time.Hour)
	m, err := svc.CreateMember(ctx, membership.MemberInput{Name: ptr("Jessica"), Email: ptr("jessica@example.com")})
	require.NoError(t, err)
	assert.NotZero(t, m.ID)
	assert.False(t, m.MembershipDate.Before(before))
	assert.Equal(t, 0, m.MembershipDate.Hour())

	joined := time.Date(2020, 3, 1, 15, 30, 0, 0, time.UTC)
	m, err = svc.CreateMember(ctx, membership.MemberInput{Name: ptr("Leto"), Email: ptr("leto@example.com"), MembershipDate: &joined})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC), m.MembershipDate)

	_, err = svc.CreateMember(ctx, membership.MemberInput{Name: ptr("Impostor"), Email: ptr("leto@example.com")})
	assert.Equal(t, apperror.KindAlreadyExists, apperror.KindOf(err))

	_, err = svc.CreateMember(ctx, membership.MemberInput{Name: ptr("No Email")})
	assert.Equal(t, apperror.KindInvalidInput, apperror.KindOf(err))

	list, err := svc.ListMembers(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestUpdateMemberKeepsEmailUnique(t *testing.T) {
	db := memory.New()
	svc := membership.NewService(db.Membership(), zerolog.Nop())
	ctx := context.Background()

	a, err := svc.CreateMember(ctx, membership.MemberInput{Name: ptr("Alia"), Email: ptr("alia@example.com"), Phone: ptr("1")})
	require.NoError(t, err)
	_, err = svc.CreateMember(ctx, membership.MemberInput{Name: ptr("Ghanima"), Email: ptr("ghanima@example.com")})
	require.NoError(t, err)

	_, err = svc.UpdateMember(ctx, a.ID, membership.MemberInput{Email: ptr("ghanima@example.com")})
	assert.Equal(t, apperror.KindAlreadyExists, apperror.KindOf(err))

	updated, err := svc.UpdateMember(ctx, a.ID, membership.MemberInput{Email: ptr("alia@example.com"), Phone: ptr("2")})
	require.NoError(t, err)
	assert.Equal(t, "Alia", updated.Name)
	assert.Equal(t, "2", updated.Phone)

	_, err = svc.UpdateMember(ctx, 999, membership.MemberInput{Name: ptr("Nobody")})
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))

	got, err := svc.GetMember(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "2", got.Phone)
}

func TestDeleteMemberWithHistoryConflicts(t *testing.T) {
	db := memory.New()
	ctx := context.Background()
	svc := membership.NewService(db.Membership(), zerolog.Nop())
	books := catalog.NewService(db.Catalog(), zerolog.Nop())
	lending := circulation.NewService(db.Circulation(), zerolog.Nop())

	pub, err := books.CreatePublisher(ctx, "Ace Books", "New York")
	require.NoError(t, err)
	b, err := books.CreateBook(ctx, catalog.BookInput{ISBN: ptr("1"), Title: ptr("Dune"), PublisherID: &pub.ID})
	require.NoError(t, err)
	m, err := svc.CreateMember(ctx, membership.MemberInput{Name: ptr("Stilgar"), Email: ptr("stilgar@example.com")})
	require.NoError(t, err)

	loan, err := lending.Borrow(ctx, m.ID, b.ID)
	require.NoError(t, err)
	_, err = lending.Return(ctx, loan.TransactionID)
	require.NoError(t, err)

	err = svc.DeleteMember(ctx, m.ID)
	assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))
	assert.Contains(t, err.Error(), "borrowing transactions")

	other, err := svc.CreateMember(ctx, membership.MemberInput{Name: ptr("Chani"), Email: ptr("chani@example.com")})
	require.NoError(t, err)
	require.NoError(t, svc.DeleteMember(ctx, other.ID))
	_, err = svc.GetMember(ctx, other.ID)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(svc.DeleteMember(ctx, other.ID)))
}
