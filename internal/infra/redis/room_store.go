package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/magnusohlin/numba/internal/app"
	"github.com/magnusohlin/numba/internal/domain"
)

// RoomStore is a Redis-aware implementation of app.RoomRepository.
// Notes:
//   - Room state stays in a local map; the coordinator owns it in memory.
//   - Redis holds one reservation key per live code (SET NX with a TTL), so
//     a code is never handed out twice while the key lives, even by another
//     process sharing the Redis instance.
//   - Run refreshes the reservations of local rooms until its context ends.
type RoomStore struct {
	client *redis.Client
	ttl    time.Duration
	mu     sync.RWMutex
	rooms  map[string]*app.Room
}

func NewRoomStore(client *redis.Client, ttl time.Duration) *RoomStore {
	return &RoomStore{
		client: client,
		ttl:    ttl,
		rooms:  make(map[string]*app.Room),
	}
}

func (s *RoomStore) Insert(ctx context.Context, room *app.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[room.Code()]; ok {
		return domain.ErrRoomCodeTaken
	}
	reserved, err := s.client.SetNX(ctx, s.key(room.Code()), room.OwnerID(), s.ttl).Result()
	if err != nil {
		return fmt.Errorf("reserve room code: %w", err)
	}
	if !reserved {
		return domain.ErrRoomCodeTaken
	}
	s.rooms[room.Code()] = room
	return nil
}

func (s *RoomStore) Get(code string) (*app.Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[code]
	return room, ok
}

func (s *RoomStore) Delete(code string) {
	s.mu.Lock()
	_, ok := s.rooms[code]
	delete(s.rooms, code)
	s.mu.Unlock()
	if !ok {
		return
	}
	// best-effort release; the TTL cleans up if this fails
	if err := s.client.Del(context.Background(), s.key(code)).Err(); err != nil {
		log.Warn().Err(err).Str("room_code", code).Msg("failed to release room code")
	}
}

func (s *RoomStore) Rooms() []*app.Room {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*app.Room, 0, len(s.rooms))
	for _, room := range s.rooms {
		out = append(out, room)
	}
	return out
}

// Run extends the reservation of every local room at half the TTL.
func (s *RoomStore) Run(ctx context.Context) error {
	if s.ttl <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(s.ttl / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.Refresh(ctx); err != nil {
				log.Warn().Err(err).Msg("failed to refresh room reservations")
			}
		}
	}
}

// Refresh resets the TTL on every local room's reservation.
func (s *RoomStore) Refresh(ctx context.Context) error {
	s.mu.RLock()
	codes := make([]string, 0, len(s.rooms))
	for code := range s.rooms {
		codes = append(codes, code)
	}
	s.mu.RUnlock()
	if len(codes) == 0 {
		return nil
	}

	pipe := s.client.Pipeline()
	for _, code := range codes {
		pipe.Expire(ctx, s.key(code), s.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RoomStore) key(code string) string {
	return "numba:room:" + code
}
