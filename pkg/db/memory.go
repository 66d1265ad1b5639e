package db

import (
	"context"
	"sync"
	"time"

	"github.com/FrontGate/FrontGate/pkg/common"
)

// MemoryStore keeps all three stores in process memory. Used by tests and
// the local playground; semantics mirror the Postgres implementation,
// including per-key atomicity of the dedup and cooldown writes.
type MemoryStore struct {
	mu        sync.Mutex
	visitors  map[string]*common.VisitorRecord
	passcodes map[string]*common.PasscodeRecord
	buckets   map[int64]struct{}
}

var (
	_ common.VisitorStore  = (*MemoryStore)(nil)
	_ common.PasscodeStore = (*MemoryStore)(nil)
	_ common.DedupStore    = (*MemoryStore)(nil)
)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		visitors:  make(map[string]*common.VisitorRecord),
		passcodes: make(map[string]*common.PasscodeRecord),
		buckets:   make(map[int64]struct{}),
	}
}

func (s *MemoryStore) GetVisitor(_ context.Context, identity string) (*common.VisitorRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	visitor, ok := s.visitors[identity]
	if !ok {
		return nil, common.ErrRecordNotFound
	}

	clone := *visitor
	clone.Photos = append([]common.PhotoRef(nil), visitor.Photos...)
	return &clone, nil
}

func (s *MemoryStore) CreateVisitor(_ context.Context, visitor *common.VisitorRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *visitor
	clone.Photos = append([]common.PhotoRef(nil), visitor.Photos...)
	s.visitors[visitor.Identity] = &clone
	return nil
}

func (s *MemoryStore) AuthorizeVisitor(_ context.Context, identity, name, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	visitor, ok := s.visitors[identity]
	if !ok {
		visitor = &common.VisitorRecord{Identity: identity}
		s.visitors[identity] = visitor
	}

	visitor.Name = name
	visitor.Email = email
	visitor.Authorized = true
	return nil
}

func (s *MemoryStore) MarkNotified(_ context.Context, identity string, now time.Time, minInterval time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	visitor, ok := s.visitors[identity]
	if !ok {
		return false, common.ErrRecordNotFound
	}

	if now.Unix()-visitor.LastNotifiedAt < int64(minInterval/time.Second) {
		return false, nil
	}

	visitor.LastNotifiedAt = now.Unix()
	return true, nil
}

func (s *MemoryStore) SavePasscode(_ context.Context, code, identity string, issuedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.passcodes[code] = &common.PasscodeRecord{
		Code:            code,
		VisitorIdentity: identity,
		IssuedAt:        issuedAt,
	}
	return nil
}

func (s *MemoryStore) LookupPasscode(_ context.Context, code string) (*common.PasscodeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.passcodes[code]
	if !ok {
		return nil, common.ErrRecordNotFound
	}

	clone := *record
	return &clone, nil
}

func (s *MemoryStore) DeletePasscode(_ context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.passcodes, code)
	return nil
}

func (s *MemoryStore) MarkBucket(_ context.Context, bucket int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.buckets[bucket]; ok {
		return false, nil
	}

	s.buckets[bucket] = struct{}{}
	return true, nil
}
