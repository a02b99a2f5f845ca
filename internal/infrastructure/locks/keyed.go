// Package locks oferece mutexes por chave para serializar trabalho dentro do processo.
package locks

import "sync"

// Keyed mantém um mutex por chave enquanto houver quem o use
type Keyed struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	sync.Mutex
	refs int
}

// NewKeyed cria um conjunto vazio de locks
func NewKeyed() *Keyed {
	return &Keyed{locks: make(map[string]*keyLock)}
}

// Lock adquire o lock da chave e devolve a função que o libera
func (l *Keyed) Lock(key string) func() {
	l.mu.Lock()
	lock, ok := l.locks[key]
	if !ok {
		lock = &keyLock{}
		l.locks[key] = lock
	}
	lock.refs++
	l.mu.Unlock()

	lock.Lock()

	return func() {
		lock.Unlock()

		l.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}
}

// Len retorna quantas chaves estão em uso
func (l *Keyed) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
