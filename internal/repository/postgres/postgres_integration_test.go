//go:build integration

package postgres

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/titikruang/ruang/internal/config"
	"github.com/titikruang/ruang/internal/database"
	"github.com/titikruang/ruang/internal/domain"
	"github.com/titikruang/ruang/internal/repository"
)

// Run with: go test -tags integration ./internal/repository/postgres
// against the database named by the DB_* settings.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := database.Connect(ctx, config.Load())
	if err != nil {
		t.Skipf("postgres unavailable: %v", err)
	}
	t.Cleanup(pool.Close)

	require.NoError(t, database.Migrate(ctx, pool))
	return pool
}

func TestGroupQuotaUnderConcurrentCreates(t *testing.T) {
	ctx := context.Background()
	repo := NewGroupRepo(testPool(t))
	creator := uuid.New()
	const quota = 10

	var wg sync.WaitGroup
	var mu sync.Mutex
	created, refused := 0, 0
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.Create(ctx, &domain.Group{ID: uuid.New(), Name: "g", CreatedBy: creator}, quota)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case errors.Is(err, repository.ErrQuotaReached):
				refused++
			default:
				t.Errorf("create: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, quota, created)
	assert.Equal(t, 25-quota, refused)

	n, err := repo.CountByCreator(ctx, creator)
	require.NoError(t, err)
	assert.Equal(t, quota, n)

	mine, err := repo.ListByMember(ctx, creator)
	require.NoError(t, err)
	require.Len(t, mine, quota)
	for _, g := range mine {
		assert.Equal(t, domain.RoleAdmin, g.Members[creator].Role)
	}
}

func TestConcurrentTogglesKeepEveryReaction(t *testing.T) {
	ctx := context.Background()
	repo := NewMessageRepo(testPool(t))
	scope := domain.ChannelScope("it-" + uuid.NewString())

	msg := &domain.Message{
		ID:         uuid.New(),
		Scope:      scope.Key(),
		Text:       "react to me",
		UID:        uuid.New(),
		SenderName: "Anon-AB12",
	}
	require.NoError(t, repo.Create(ctx, msg))

	reactors := make([]uuid.UUID, 50)
	for i := range reactors {
		reactors[i] = uuid.New()
	}

	toggleAll := func() {
		var wg sync.WaitGroup
		for _, id := range reactors {
			wg.Add(1)
			go func(id uuid.UUID) {
				defer wg.Done()
				got, err := repo.ToggleReaction(ctx, scope, msg.ID, "🔥", id)
				assert.NoError(t, err)
				assert.NotNil(t, got)
			}(id)
		}
		wg.Wait()
	}

	toggleAll()
	got, err := repo.GetByID(ctx, scope, msg.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.ElementsMatch(t, reactors, got.Reactions["🔥"])

	toggleAll()
	got, err = repo.GetByID(ctx, scope, msg.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Reactions["🔥"])

	missing, err := repo.ToggleReaction(ctx, scope, uuid.New(), "🔥", reactors[0])
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestListByScopeKeepsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	repo := NewMessageRepo(testPool(t))
	scope := domain.ChannelScope("it-" + uuid.NewString())

	for _, text := range []string{"m1", "m2", "m3"} {
		require.NoError(t, repo.Create(ctx, &domain.Message{
			ID:         uuid.New(),
			Scope:      scope.Key(),
			Text:       text,
			UID:        uuid.New(),
			SenderName: "Anon-AB12",
		}))
	}

	msgs, err := repo.ListByScope(ctx, scope)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	for i, want := range []string{"m1", "m2", "m3"} {
		assert.Equal(t, want, msgs[i].Text)
	}
}
