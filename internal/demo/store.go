package demo

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CatStore is an in-memory cat repository shared by every request
type CatStore struct {
	Logger *zap.Logger `inject:",optional"`

	mu   sync.RWMutex
	cats map[uuid.UUID]*Cat
	now  func() time.Time
}

// Init seeds the store after injection
func (s *CatStore) Init(ctx context.Context) error {
	if s.Logger == nil {
		s.Logger = zap.NewNop()
	}
	s.cats = make(map[uuid.UUID]*Cat)
	s.now = time.Now

	for _, seed := range []CreateCatDto{
		{Name: "Tom", Age: 3, Breed: "Tabby"},
		{Name: "Luna", Age: 1, Breed: "Siamese"},
	} {
		s.Create(seed)
	}
	s.Logger.Debug("cat store ready", zap.Int("cats", len(s.cats)))
	return nil
}

// List returns cats ordered by name, optionally filtered by breed, paged by offset and limit
func (s *CatStore) List(breed string, offset, limit int) []Cat {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Cat, 0, len(s.cats))
	for _, c := range s.cats {
		if breed != "" && !strings.EqualFold(c.Breed, breed) {
			continue
		}
		out = append(out, *c)
	}
	slices.SortFunc(out, func(a, b Cat) int {
		if n := strings.Compare(a.Name, b.Name); n != 0 {
			return n
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})

	offset = max(offset, 0)
	if offset >= len(out) {
		return []Cat{}
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out
}

func (s *CatStore) Get(id uuid.UUID) (Cat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.cats[id]
	if !ok {
		return Cat{}, &CatNotFoundError{ID: id}
	}
	return *c, nil
}

func (s *CatStore) Create(dto CreateCatDto) Cat {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	c := &Cat{
		ID:        uuid.New(),
		Name:      dto.Name,
		Age:       dto.Age,
		Breed:     dto.Breed,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.cats[c.ID] = c
	return *c
}

func (s *CatStore) Update(id uuid.UUID, dto UpdateCatDto) (Cat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.cats[id]
	if !ok {
		return Cat{}, &CatNotFoundError{ID: id}
	}
	if dto.Name != nil {
		c.Name = *dto.Name
	}
	if dto.Age != nil {
		c.Age = *dto.Age
	}
	if dto.Breed != nil {
		c.Breed = *dto.Breed
	}
	c.UpdatedAt = s.now()
	return *c, nil
}

func (s *CatStore) Delete(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.cats[id]; !ok {
		return &CatNotFoundError{ID: id}
	}
	delete(s.cats, id)
	return nil
}

func (s *CatStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cats)
}
