// Package risk implements the pre-trade and post-trade risk processing
// spec.md §4.7/§4.8 describes: balance holds and margin checks before a
// command reaches the matching engine (R1), and settlement/position
// bookkeeping after the matching engine returns its event chain (R2).
// Grounded on original_source/src/exchange/core/processors/RiskEngine.cpp,
// adapted from a single-threaded switch-dispatch design into sharded Go
// services addressed by uid & shardMask, matching the teacher's sharding
// idiom in orderbook/price_tree_sharded.go.
package risk

import "clob-engine/domain"

// ProfileService owns every UserProfile whose uid hashes to this shard.
// Like orderbook.NaiveBook/DirectBook, a ProfileService instance is never
// touched by more than one goroutine: the pipeline routes every command for
// a uid to the same risk shard for the lifetime of the engine.
type ProfileService struct {
	profiles map[int64]*domain.UserProfile
}

// NewProfileService creates an empty shard.
func NewProfileService() *ProfileService {
	return &ProfileService{profiles: make(map[int64]*domain.UserProfile)}
}

// Get returns the profile for uid, or nil if it has not been added.
func (s *ProfileService) Get(uid int64) *domain.UserProfile {
	return s.profiles[uid]
}

// GetOrCreate returns the profile for uid, creating it if absent. Used by
// ADD_USER (idempotent: re-adding an existing user is a no-op) and by
// BALANCE_ADJUSTMENT against a user that predates this engine instance
// (e.g. replay starting mid-stream from a snapshot).
func (s *ProfileService) GetOrCreate(uid int64) *domain.UserProfile {
	p, ok := s.profiles[uid]
	if !ok {
		p = domain.NewUserProfile(uid)
		s.profiles[uid] = p
	}
	return p
}

// ForEach visits every profile owned by this shard, in unspecified order.
// Used by snapshot serialization.
func (s *ProfileService) ForEach(fn func(*domain.UserProfile)) {
	for _, p := range s.profiles {
		fn(p)
	}
}
