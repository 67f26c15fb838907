// Package store holds users, businesses and messages in process memory.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mohammad-safakhou/prizm/models"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

type Store struct {
	mu         sync.RWMutex
	users      map[int]models.User
	businesses map[int]models.Business
	messages   []models.Message
	categories []models.Category
	nextID     map[string]int

	index      *businessIndex
	logger     *zap.Logger
	bcryptCost int
	now        func() time.Time
}

type Option func(*Store)

// WithBcryptCost overrides the password hashing cost.
func WithBcryptCost(cost int) Option {
	return func(s *Store) { s.bcryptCost = cost }
}

// WithClock overrides the message timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(logger *zap.Logger, opts ...Option) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	idx, err := newBusinessIndex()
	if err != nil {
		return nil, fmt.Errorf("business index: %w", err)
	}
	s := &Store{
		users:      make(map[int]models.User),
		businesses: make(map[int]models.Business),
		nextID:     map[string]int{"users": 1, "businesses": 1, "messages": 1},
		index:      idx,
		logger:     logger,
		bcryptCost: bcrypt.DefaultCost,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close releases the search index.
func (s *Store) Close() error {
	return s.index.Close()
}

// allocate returns the next id of kind. Caller holds mu.
func (s *Store) allocate(kind string) int {
	id := s.nextID[kind]
	s.nextID[kind] = id + 1
	return id
}

func (s *Store) GetUser(_ context.Context, id int) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return models.User{}, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	return u, nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return models.User{}, fmt.Errorf("user %q: %w", username, ErrNotFound)
}

// ListUsers returns every user ordered by id.
func (s *Store) ListUsers(_ context.Context) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) CreateUser(_ context.Context, in models.NewUser) (models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == in.Username {
			return models.User{}, fmt.Errorf("username %q taken: %w", in.Username, ErrConflict)
		}
	}
	u := models.User{
		ID:           s.allocate("users"),
		Username:     in.Username,
		PasswordHash: hash,
		Type:         in.Type,
		Name:         in.Name,
	}
	s.users[u.ID] = u
	return u, nil
}

// CheckPassword reports whether password matches the stored hash of user id.
func (s *Store) CheckPassword(ctx context.Context, id int, password string) (bool, error) {
	u, err := s.GetUser(ctx, id)
	if err != nil {
		return false, err
	}
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)) == nil, nil
}

func (s *Store) GetBusiness(_ context.Context, id int) (models.Business, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.businesses[id]
	if !ok {
		return models.Business{}, fmt.Errorf("business %d: %w", id, ErrNotFound)
	}
	return cloneBusiness(b), nil
}

func (s *Store) GetBusinessByUserID(_ context.Context, userID int) (models.Business, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, b := range s.businesses {
		if b.UserID == userID {
			return cloneBusiness(b), nil
		}
	}
	return models.Business{}, fmt.Errorf("business for user %d: %w", userID, ErrNotFound)
}

// ListBusinesses returns every business ordered by id.
func (s *Store) ListBusinesses(_ context.Context) ([]models.Business, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedBusinesses(), nil
}

func (s *Store) sortedBusinesses() []models.Business {
	out := make([]models.Business, 0, len(s.businesses))
	for _, b := range s.businesses {
		out = append(out, cloneBusiness(b))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) CreateBusiness(_ context.Context, userID int, in models.NewBusiness) (models.Business, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		return models.Business{}, fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}
	b := models.Business{
		ID:            s.allocate("businesses"),
		UserID:        userID,
		Description:   in.Description,
		Category:      in.Category,
		Location:      in.Location,
		Services:      in.Services,
		IndustryRules: in.IndustryRules,
	}
	b = cloneBusiness(b)
	if err := s.index.add(b); err != nil {
		s.logger.Warn("index business", zap.Int("business_id", b.ID), zap.Error(err))
	}
	s.businesses[b.ID] = b
	return cloneBusiness(b), nil
}

// cloneBusiness copies the slices and rules of b so stored profiles never
// share memory with callers.
func cloneBusiness(b models.Business) models.Business {
	b.Services = cloneStrings(b.Services)
	if b.IndustryRules != nil {
		rules := *b.IndustryRules
		rules.Keywords = cloneStrings(rules.Keywords)
		rules.Requirements = cloneStrings(rules.Requirements)
		rules.Specializations = cloneStrings(rules.Specializations)
		if rules.Priority != nil {
			p := *rules.Priority
			rules.Priority = &p
		}
		b.IndustryRules = &rules
	}
	return b
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}

// SearchBusinesses returns every business. Lexical hits for query come first in
// relevance order, the rest follow by id. Semantic filtering happens downstream.
func (s *Store) SearchBusinesses(ctx context.Context, query string) ([]models.Business, error) {
	s.mu.RLock()
	all := s.sortedBusinesses()
	s.mu.RUnlock()

	query = strings.TrimSpace(query)
	if query == "" || len(all) == 0 {
		return all, nil
	}
	hits, err := s.index.search(ctx, query, len(all))
	if err != nil {
		// pre-ranking is best effort
		s.logger.Warn("business index search", zap.String("query", query), zap.Error(err))
		return all, nil
	}
	return preRank(all, hits), nil
}

func preRank(all []models.Business, hits []int) []models.Business {
	pos := make(map[int]int, len(all))
	for i, b := range all {
		pos[b.ID] = i
	}
	out := make([]models.Business, 0, len(all))
	taken := make(map[int]bool, len(hits))
	for _, id := range hits {
		i, ok := pos[id]
		if !ok || taken[id] {
			continue
		}
		taken[id] = true
		out = append(out, all[i])
	}
	for _, b := range all {
		if !taken[b.ID] {
			out = append(out, b)
		}
	}
	return out
}

// GetMessages returns the conversation between a and b ordered by creation.
func (s *Store) GetMessages(_ context.Context, a, b int) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Message{}
	for _, m := range s.messages {
		if (m.FromID == a && m.ToID == b) || (m.FromID == b && m.ToID == a) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *Store) CreateMessage(_ context.Context, in models.NewMessage) (models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := models.Message{
		ID:            s.allocate("messages"),
		FromID:        in.FromID,
		ToID:          in.ToID,
		Content:       in.Content,
		Timestamp:     s.now(),
		IsAiAssistant: in.IsAiAssistant,
	}
	s.messages = append(s.messages, m)
	return m, nil
}

// ListCategories returns the service category catalogue.
func (s *Store) ListCategories(_ context.Context) ([]models.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Category(nil), s.categories...), nil
}
