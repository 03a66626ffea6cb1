package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/duskfall/hollowvale/internal/game"
	"github.com/duskfall/hollowvale/internal/models"
)

// MemoryRoomRegistry is the in-memory test double for game.RoomRegistry.
type MemoryRoomRegistry struct {
	mu    sync.Mutex
	rooms map[uuid.UUID]*models.Room
}

func NewMemoryRoomRegistry() *MemoryRoomRegistry {
	return &MemoryRoomRegistry{rooms: map[uuid.UUID]*models.Room{}}
}

var _ game.RoomRegistry = (*MemoryRoomRegistry)(nil)

func (m *MemoryRoomRegistry) Put(room *models.Room) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rooms[room.ID] = room
}

func (m *MemoryRoomRegistry) GetRoom(ctx context.Context, roomID uuid.UUID) (*models.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[roomID]
	if !ok {
		return nil, fmt.Errorf("room not found")
	}
	cp := *room
	cp.Members = append([]models.Seat{}, room.Members...)
	return &cp, nil
}

func (m *MemoryRoomRegistry) GetRoomByNumber(ctx context.Context, roomNumber string) (*models.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, room := range m.rooms {
		if room.RoomNumber == roomNumber {
			cp := *room
			cp.Members = append([]models.Seat{}, room.Members...)
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("room not found")
}

func (m *MemoryRoomRegistry) SetRoomPlaying(ctx context.Context, roomID, gameID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[roomID]
	if !ok {
		return fmt.Errorf("room not found")
	}
	room.Status = models.RoomStatusPlaying
	room.GameID = &gameID
	return nil
}

func (m *MemoryRoomRegistry) MarkRoomEnded(ctx context.Context, roomID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[roomID]
	if !ok {
		return fmt.Errorf("room not found")
	}
	room.Status = models.RoomStatusEnded
	return nil
}
