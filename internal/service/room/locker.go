package room

import "sync"

type roomLock struct {
	mu   sync.Mutex
	refs int
}

// roomLocker serializes all mutations of one room while leaving different
// rooms independent. Lock entries are reference counted so a torn-down
// room leaves nothing behind.
type roomLocker struct {
	mu    sync.Mutex
	locks map[string]*roomLock
}

func (l *roomLocker) lock(roomId string) (unlock func()) {
	l.mu.Lock()
	entry, ok := l.locks[roomId]
	if !ok {
		entry = &roomLock{}
		l.locks[roomId] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, roomId)
		}
		l.mu.Unlock()
	}
}
