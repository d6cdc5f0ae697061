// Package keylock выдаёт мьютекс на строковый ключ.
// Запись удаляется, когда её больше никто не держит и не ждёт.
package keylock

import "sync"

type entry struct {
	mu   sync.Mutex
	refs int
}

// Locker держит мьютексы по ключам. Нулевое значение готово к работе.
type Locker struct {
	mu    sync.Mutex
	locks map[string]*entry
}

func New() *Locker {
	return &Locker{locks: make(map[string]*entry)}
}

// Lock блокирует key и возвращает функцию разблокировки.
func (l *Locker) Lock(key string) func() {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[string]*entry)
	}
	e, ok := l.locks[key]
	if !ok {
		e = &entry{}
		l.locks[key] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()

		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}
}

// Len возвращает число ключей, которые сейчас заняты или ожидаются.
func (l *Locker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
