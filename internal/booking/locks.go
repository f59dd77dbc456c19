package booking

import "sync"

// RoomLocks serialises the check-then-write sequence per room.
type RoomLocks struct {
	mu    sync.Mutex
	rooms map[string]*sync.Mutex
}

// NewRoomLocks creates an empty lock table.
func NewRoomLocks() *RoomLocks {
	return &RoomLocks{rooms: make(map[string]*sync.Mutex)}
}

// Lock blocks until the room is free and returns the matching unlock.
func (l *RoomLocks) Lock(roomID string) (unlock func()) {
	l.mu.Lock()
	m, ok := l.rooms[roomID]
	if !ok {
		m = &sync.Mutex{}
		l.rooms[roomID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
