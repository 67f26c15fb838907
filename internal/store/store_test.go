package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/mohammad-safakhou/prizm/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(nil, WithBcryptCost(bcrypt.MinCost))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCreateUserAssignsIncreasingIDs(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	a, err := s.CreateUser(ctx, models.NewUser{Username: "alice", Password: "secret1", Type: models.UserTypeUser})
	require.NoError(t, err)
	b, err := s.CreateUser(ctx, models.NewUser{Username: "bob", Password: "secret2", Type: models.UserTypeUser})
	require.NoError(t, err)

	assert.Equal(t, 1, a.ID)
	assert.Equal(t, 2, b.ID)
	assert.NotEqual(t, models.AssistantID, a.ID)

	got, err := s.GetUserByUsername(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)

	ok, err := s.CheckPassword(ctx, a.ID, "secret1")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.CheckPassword(ctx, a.ID, "wrong")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NotContains(t, string(a.PasswordHash), "secret1")
}

func TestCreateUserDuplicateUsername(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	_, err := s.CreateUser(ctx, models.NewUser{Username: "alice", Password: "secret1", Type: models.UserTypeUser})
	require.NoError(t, err)
	_, err = s.CreateUser(ctx, models.NewUser{Username: "alice", Password: "secret1", Type: models.UserTypeUser})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestLookupsNotFound(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	_, err := s.GetUser(ctx, 42)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetBusiness(ctx, 42)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetBusinessByUserID(ctx, 42)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.CreateBusiness(ctx, 42, models.NewBusiness{Description: "x", Category: "y", Location: "z"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSeedLoadsSampleData(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.Seed(ctx))

	businesses, err := s.ListBusinesses(ctx)
	require.NoError(t, err)
	require.Len(t, businesses, 3)
	assert.Equal(t, "Technology", businesses[0].Category)
	assert.Equal(t, "Home Services", businesses[1].Category)
	assert.Equal(t, "Healthcare", businesses[2].Category)

	homefix, err := s.GetUserByUsername(ctx, "homefix")
	require.NoError(t, err)
	b, err := s.GetBusinessByUserID(ctx, homefix.ID)
	require.NoError(t, err)
	assert.Contains(t, b.Services, "HVAC")

	cats, err := s.ListCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.Category{ID: 1, Name: "Plumbing"}, cats[0])
}

func TestBusinessesDoNotAliasCallerMemory(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	u, err := s.CreateUser(ctx, models.NewUser{Username: "roofer", Password: "secret1", Type: models.UserTypeBusiness})
	require.NoError(t, err)

	prio := 5.0
	in := models.NewBusiness{
		Description: "Roof repair",
		Category:    "Roofing",
		Location:    "Austin",
		Services:    []string{"Shingles"},
		IndustryRules: &models.IndustryRules{
			Keywords: []string{"roof"},
			Priority: &prio,
		},
	}
	created, err := s.CreateBusiness(ctx, u.ID, in)
	require.NoError(t, err)

	in.Services[0] = "changed"
	in.IndustryRules.Keywords[0] = "changed"
	prio = 1
	created.Services[0] = "changed"
	created.IndustryRules.Keywords = append(created.IndustryRules.Keywords, "extra")

	got, err := s.GetBusiness(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Shingles"}, got.Services)
	assert.Equal(t, []string{"roof"}, got.IndustryRules.Keywords)
	assert.Equal(t, 5.0, *got.IndustryRules.Priority)

	got.IndustryRules.Keywords[0] = "changed"
	list, err := s.ListBusinesses(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "roof", list[0].IndustryRules.Keywords[0])
}

func TestSeededStoresShareNoRules(t *testing.T) {
	ctx := context.Background()
	a, b := newTestStore(t), newTestStore(t)
	require.NoError(t, a.Seed(ctx))
	require.NoError(t, b.Seed(ctx))

	ba, err := a.GetBusiness(ctx, 1)
	require.NoError(t, err)
	bb, err := b.GetBusiness(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, ba.IndustryRules)
	assert.NotSame(t, ba.IndustryRules, bb.IndustryRules)
	assert.NotSame(t, sampleBusinesses[0].business.IndustryRules, ba.IndustryRules)

	*ba.IndustryRules.Priority = -1
	again, err := a.GetBusiness(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, *sampleBusinesses[0].business.IndustryRules.Priority, *again.IndustryRules.Priority)
}

func TestSearchBusinessesReturnsAllWithLexicalHitsFirst(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.Seed(ctx))

	got, err := s.SearchBusinesses(ctx, "plumbing leak")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "Home Services", got[0].Category)

	ids := map[int]bool{}
	for _, b := range got {
		ids[b.ID] = true
	}
	assert.Len(t, ids, 3)

	// no lexical overlap keeps id order
	got, err = s.SearchBusinesses(ctx, "zzzz")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{got[0].ID, got[1].ID, got[2].ID})
}

func TestGetMessagesConversationOrder(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	s, err := New(nil, WithBcryptCost(bcrypt.MinCost), WithClock(func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}))
	require.NoError(t, err)

	_, _ = s.CreateMessage(ctx, models.NewMessage{FromID: 1, ToID: models.AssistantID, Content: "hi"})
	_, _ = s.CreateMessage(ctx, models.NewMessage{FromID: 2, ToID: 3, Content: "other"})
	_, _ = s.CreateMessage(ctx, models.NewMessage{FromID: models.AssistantID, ToID: 1, Content: "hello", IsAiAssistant: true})

	msgs, err := s.GetMessages(ctx, 1, models.AssistantID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "hi", msgs[0].Content)
	assert.Equal(t, "hello", msgs[1].Content)
	assert.True(t, msgs[1].IsAiAssistant)
	assert.True(t, msgs[0].Timestamp.Before(msgs[1].Timestamp))
	assert.Equal(t, 3, msgs[1].ID)
}

func TestConcurrentCreates(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.CreateMessage(ctx, models.NewMessage{FromID: 1, ToID: 2, Content: "x"})
		}()
	}
	wg.Wait()
	msgs, err := s.GetMessages(ctx, 1, 2)
	require.NoError(t, err)
	assert.Len(t, msgs, 50)
	seen := map[int]bool{}
	for _, m := range msgs {
		seen[m.ID] = true
	}
	assert.Len(t, seen, 50)
}
