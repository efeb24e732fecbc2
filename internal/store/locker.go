package store

import "sync"

// EpisodeLocker hands out one mutex per episode id. Locks for different
// episodes are independent, and a key is dropped once nobody holds or waits
// for it.
type EpisodeLocker struct {
	mu    sync.Mutex
	locks map[int64]*episodeLock
}

type episodeLock struct {
	mu   sync.Mutex
	refs int
}

// NewEpisodeLocker returns an empty locker.
func NewEpisodeLocker() *EpisodeLocker {
	return &EpisodeLocker{locks: make(map[int64]*episodeLock)}
}

// Lock blocks until the caller owns episodeID and returns the release func.
func (l *EpisodeLocker) Lock(episodeID int64) (unlock func()) {
	l.mu.Lock()
	el, ok := l.locks[episodeID]
	if !ok {
		el = &episodeLock{}
		l.locks[episodeID] = el
	}
	el.refs++
	l.mu.Unlock()

	el.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			el.mu.Unlock()
			l.mu.Lock()
			el.refs--
			if el.refs == 0 {
				delete(l.locks, episodeID)
			}
			l.mu.Unlock()
		})
	}
}

// held returns the number of episode keys currently tracked.
func (l *EpisodeLocker) held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
