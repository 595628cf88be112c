package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/titikruang/ruang/internal/domain"
	"github.com/titikruang/ruang/internal/repository"
)

func TestClockNeverGoesBackwards(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	times := []time.Time{base, base.Add(-time.Second), base.Add(time.Second)}
	i := 0
	clock := NewClock(func() time.Time {
		t := times[i]
		i++
		return t
	})

	assert.Equal(t, base, clock.Now())
	assert.Equal(t, base, clock.Now())
	assert.Equal(t, base.Add(time.Second), clock.Now())
}

func TestGroupRepoQuotaAndReverseIndex(t *testing.T) {
	ctx := context.Background()
	repo := NewGroupRepo(nil)
	creator := uuid.New()

	for i := 0; i < 2; i++ {
		require.NoError(t, repo.Create(ctx, &domain.Group{ID: uuid.New(), Name: "g", CreatedBy: creator}, 2))
	}
	err := repo.Create(ctx, &domain.Group{ID: uuid.New(), Name: "g", CreatedBy: creator}, 2)
	assert.ErrorIs(t, err, repository.ErrQuotaReached)

	n, err := repo.CountByCreator(ctx, creator)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	groups, err := repo.ListByMember(ctx, creator)
	require.NoError(t, err)
	assert.Len(t, groups, 2)

	other := uuid.New()
	require.NoError(t, repo.UpsertMember(ctx, groups[0].ID, other, domain.RoleMember))
	require.NoError(t, repo.UpsertMember(ctx, groups[0].ID, other, domain.RoleAdmin))

	g, err := repo.GetByID(ctx, groups[0].ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleMember, g.Members[other].Role)

	require.NoError(t, repo.RemoveMember(ctx, groups[0].ID, other))
	require.NoError(t, repo.RemoveMember(ctx, groups[0].ID, other))
	mine, err := repo.ListByMember(ctx, other)
	require.NoError(t, err)
	assert.Empty(t, mine)
}

func TestGroupRepoReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewGroupRepo(nil)
	g := &domain.Group{ID: uuid.New(), Name: "g", CreatedBy: uuid.New()}
	require.NoError(t, repo.Create(ctx, g, 10))

	got, err := repo.GetByID(ctx, g.ID)
	require.NoError(t, err)
	got.Members[uuid.New()] = domain.Member{Role: domain.RoleAdmin}

	again, err := repo.GetByID(ctx, g.ID)
	require.NoError(t, err)
	assert.Len(t, again.Members, 1)
}

func TestMessageRepoOrdersByTimestampThenSeq(t *testing.T) {
	ctx := context.Background()
	fixed := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	repo := NewMessageRepo(NewClock(func() time.Time { return fixed }))
	scope := domain.ChannelScope("general")

	var ids []uuid.UUID
	for _, text := range []string{"m1", "m2", "m3"} {
		msg := &domain.Message{ID: uuid.New(), Scope: scope.Key(), Text: text, UID: uuid.New(), SenderName: "Anon"}
		require.NoError(t, repo.Create(ctx, msg))
		ids = append(ids, msg.ID)
	}

	messages, err := repo.ListByScope(ctx, scope)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	for i, msg := range messages {
		assert.Equal(t, ids[i], msg.ID)
	}

	empty, err := repo.ListByScope(ctx, domain.ChannelScope("other"))
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestMessageRepoConcurrentToggles(t *testing.T) {
	ctx := context.Background()
	repo := NewMessageRepo(nil)
	scope := domain.ChannelScope("general")
	msg := &domain.Message{ID: uuid.New(), Scope: scope.Key(), Text: "hi", UID: uuid.New(), SenderName: "Anon"}
	require.NoError(t, repo.Create(ctx, msg))

	users := make([]uuid.UUID, 50)
	for i := range users {
		users[i] = uuid.New()
	}

	var wg sync.WaitGroup
	for _, u := range users {
		wg.Add(1)
		go func(u uuid.UUID) {
			defer wg.Done()
			_, err := repo.ToggleReaction(ctx, scope, msg.ID, "👍", u)
			assert.NoError(t, err)
		}(u)
	}
	wg.Wait()

	got, err := repo.GetByID(ctx, scope, msg.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, users, got.Reactions["👍"])
}

func TestMessageRepoScopeMismatch(t *testing.T) {
	ctx := context.Background()
	repo := NewMessageRepo(nil)
	msg := &domain.Message{ID: uuid.New(), Scope: domain.ChannelScope("a").Key(), Text: "hi", UID: uuid.New(), SenderName: "Anon"}
	require.NoError(t, repo.Create(ctx, msg))

	got, err := repo.ToggleReaction(ctx, domain.ChannelScope("b"), msg.ID, "👍", uuid.New())
	require.NoError(t, err)
	assert.Nil(t, got)
}
