package client

import (
	"context"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/titikruang/ruang/internal/broker"
	"github.com/titikruang/ruang/internal/domain"
	"github.com/titikruang/ruang/internal/identity"
	"github.com/titikruang/ruang/internal/repository/memory"
	"github.com/titikruang/ruang/internal/server"
	"github.com/titikruang/ruang/internal/service"
	"github.com/titikruang/ruang/internal/transport/http/middleware"
	"github.com/titikruang/ruang/internal/transport/ws"
)

const testSecret = "test-secret"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	clock := memory.NewClock(time.Now)
	groupRepo := memory.NewGroupRepo(clock)
	messageRepo := memory.NewMessageRepo(clock)
	b := broker.NewMemory()

	hub := ws.NewHub()
	go hub.Run(ctx)

	handler := server.NewRouter(server.Deps{
		Auth:           service.NewAuthService(memory.NewIdentityRepo(), testSecret, time.Hour),
		Groups:         service.NewGroupService(groupRepo, 3),
		Messages:       service.NewMessageService(messageRepo, groupRepo, b),
		Reactions:      service.NewReactionService(messageRepo, groupRepo, b),
		Names:          identity.NewMemoryNameStore(),
		Hub:            hub,
		Limiter:        middleware.NewIPRateLimiter(6000, 100),
		JWTSecret:      testSecret,
		AllowedOrigins: []string{"*"},
	})

	srv := httptest.NewServer(handler)
	t.Cleanup(func() {
		cancel()
		srv.Close()
		b.Close()
	})
	return srv
}

func signedIn(t *testing.T, srv *httptest.Server) (*Client, uuid.UUID) {
	t.Helper()
	c := New(srv.URL)
	id, err := c.SignInAnonymously(context.Background())
	require.NoError(t, err)
	return c, id
}

func nextList(t *testing.T, s *Subscription) []Message {
	t.Helper()
	select {
	case msgs, ok := <-s.C:
		require.True(t, ok, "subscription closed: %v", s.Err())
		return msgs
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return nil
	}
}

func TestStudyGroupScenario(t *testing.T) {
	ctx := context.Background()
	srv := newTestServer(t)
	c1, u1 := signedIn(t, srv)
	c2, u2 := signedIn(t, srv)

	g1, err := c1.CreateGroup(ctx, "Study Group")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, g1.Members[u1].Role)

	scope := domain.GroupScope(g1.ID)
	m1, err := c1.Send(ctx, scope, SendInput{Text: "hello"})
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^Anon-[0-9A-Z]{4}$`), m1.SenderName)

	got, err := c2.ToggleReaction(ctx, scope, m1.ID, "👍")
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{u2}, got.Reactions["👍"])

	messages, err := c2.Messages(ctx, scope)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, []uuid.UUID{u2}, messages[0].Reactions["👍"])
}

func TestSenderNameMatchesMe(t *testing.T) {
	ctx := context.Background()
	srv := newTestServer(t)
	c, id := signedIn(t, srv)

	me, err := c.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, id, me.Identity)

	msg, err := c.Send(ctx, domain.ChannelScope(domain.GeneralChannel), SendInput{Text: "hi all"})
	require.NoError(t, err)
	assert.Equal(t, me.DisplayName, msg.SenderName)

	msg, err = c.Send(ctx, domain.ChannelScope(domain.GeneralChannel), SendInput{Text: "hi again", SenderName: "Custom"})
	require.NoError(t, err)
	assert.Equal(t, "Custom", msg.SenderName)
}

func TestErrorKindsMapBack(t *testing.T) {
	ctx := context.Background()
	srv := newTestServer(t)
	admin, _ := signedIn(t, srv)
	outsider, _ := signedIn(t, srv)

	for i := 0; i < 3; i++ {
		_, err := admin.CreateGroup(ctx, "g")
		require.NoError(t, err)
	}
	_, err := admin.CreateGroup(ctx, "one more")
	assert.ErrorIs(t, err, ErrQuotaExceeded)

	groups, err := admin.MyGroups(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 3)

	err = outsider.AddMember(ctx, groups[0].ID, uuid.New())
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = admin.CreateGroup(ctx, "  ")
	assert.ErrorIs(t, err, ErrValidation)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Contains(t, apiErr.Fields, "name")

	_, err = admin.Send(ctx, domain.ChannelScope(domain.GeneralChannel), SendInput{Text: ""})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = admin.ToggleReaction(ctx, domain.ChannelScope(domain.GeneralChannel), uuid.New(), "🔥")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = admin.Group(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = New(srv.URL).MyGroups(ctx)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestMembershipRoundTrip(t *testing.T) {
	ctx := context.Background()
	srv := newTestServer(t)
	admin, _ := signedIn(t, srv)
	member, memberID := signedIn(t, srv)

	g, err := admin.CreateGroup(ctx, "club")
	require.NoError(t, err)

	require.NoError(t, admin.AddMember(ctx, g.ID, memberID))
	mine, err := member.MyGroups(ctx)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, domain.RoleMember, mine[0].Members[memberID].Role)

	require.NoError(t, admin.RemoveMember(ctx, g.ID, memberID))
	mine, err = member.MyGroups(ctx)
	require.NoError(t, err)
	assert.Empty(t, mine)

	dir, err := member.Directory(ctx)
	require.NoError(t, err)
	require.Len(t, dir, 1)
	assert.Equal(t, "club", dir[0].Name)
}

func TestResumeKeepsIdentity(t *testing.T) {
	ctx := context.Background()
	srv := newTestServer(t)
	c, id := signedIn(t, srv)
	creds := c.Credentials()

	other := New(srv.URL)
	require.NoError(t, other.Resume(ctx, creds.Identity, creds.DeviceSecret))
	me, err := other.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, id, me.Identity)

	err = New(srv.URL).Resume(ctx, id, "wrong")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestSessionSignsInOnce(t *testing.T) {
	srv := newTestServer(t)
	c := New(srv.URL)
	session := c.Session()
	defer session.Close()

	var wg sync.WaitGroup
	ids := make([]uuid.UUID, 5)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := session.EnsureIdentity(context.Background())
			assert.NoError(t, err)
			ids[i] = id
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, c.Credentials().Identity, id)
	}
}

func TestSessionProviderUnavailable(t *testing.T) {
	srv := newTestServer(t)
	url := srv.URL
	srv.Close()

	session := New(url).Session()
	defer session.Close()

	_, err := session.EnsureIdentity(context.Background())
	assert.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestSubscribeOrderedSnapshots(t *testing.T) {
	ctx := context.Background()
	srv := newTestServer(t)
	c, _ := signedIn(t, srv)
	scope := domain.ChannelScope(domain.GeneralChannel)

	sub, err := c.Subscribe(ctx, scope)
	require.NoError(t, err)
	defer sub.Close()

	assert.Empty(t, nextList(t, sub))

	for _, text := range []string{"m1", "m2", "m3"} {
		_, err := c.Send(ctx, scope, SendInput{Text: text})
		require.NoError(t, err)
	}

	var got []Message
	for len(got) < 3 {
		got = nextList(t, sub)
	}
	texts := make([]string, len(got))
	for i, m := range got {
		texts[i] = m.Text
	}
	assert.Equal(t, []string{"m1", "m2", "m3"}, texts)

	sub.Close()
	_, ok := <-sub.C
	assert.False(t, ok)
}

func TestSubscribeSnapshotAboveDefaultFrameLimit(t *testing.T) {
	ctx := context.Background()
	srv := newTestServer(t)
	c, _ := signedIn(t, srv)
	scope := domain.ChannelScope(domain.GeneralChannel)

	text := strings.Repeat("x", 500)
	for i := 0; i < 100; i++ {
		_, err := c.Send(ctx, scope, SendInput{Text: text})
		require.NoError(t, err)
	}

	sub, err := c.Subscribe(ctx, scope)
	require.NoError(t, err)
	defer sub.Close()

	assert.Len(t, nextList(t, sub), 100)

	_, err = c.Send(ctx, scope, SendInput{Text: "one more"})
	require.NoError(t, err)

	var got []Message
	for len(got) < 101 {
		got = nextList(t, sub)
	}
	assert.Equal(t, "one more", got[100].Text)
	assert.NoError(t, sub.Err())
}

func TestSubscribeUnknownGroup(t *testing.T) {
	ctx := context.Background()
	srv := newTestServer(t)
	c, _ := signedIn(t, srv)

	sub, err := c.Subscribe(ctx, domain.GroupScope(uuid.New()))
	require.NoError(t, err)
	defer sub.Close()

	select {
	case <-sub.Done():
	case <-time.After(3 * time.Second):
		t.Fatal("subscription did not end")
	}
	assert.ErrorIs(t, sub.Err(), ErrNotFound)
}
