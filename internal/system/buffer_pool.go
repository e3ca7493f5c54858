package system

import (
	"sync"
)

// BytePool предоставляет механизмы повторного использования пиксельных буферов
// поверхностей для снижения нагрузки на Garbage Collector (GC).
// Буферы группируются по точному размеру: страницы документа обычно
// одинаковые, поэтому попадания в пул частые.
type BytePool struct {
	pools map[int]*sync.Pool
	mu    sync.RWMutex
}

var globalPool = NewBytePool()

func NewBytePool() *BytePool {
	return &BytePool{pools: make(map[int]*sync.Pool)}
}

// GetBytes возвращает срез длины n из пула или создает новый,
// если в пуле нет подходящего по размеру объекта.
// Содержимое переиспользованного среза не обнуляется.
func GetBytes(n int) []byte {
	return globalPool.Get(n)
}

// PutBytes возвращает срез в пул для повторного использования.
func PutBytes(b []byte) {
	globalPool.Put(b)
}

func (p *BytePool) Get(n int) []byte {
	if n <= 0 {
		return nil
	}
	p.mu.RLock()
	pool, exists := p.pools[n]
	p.mu.RUnlock()

	if !exists {
		p.mu.Lock()
		// Double check
		pool, exists = p.pools[n]
		if !exists {
			pool = &sync.Pool{
				New: func() interface{} {
					b := make([]byte, n)
					return &b
				},
			}
			p.pools[n] = pool
		}
		p.mu.Unlock()
	}

	return *(pool.Get().(*[]byte))
}

func (p *BytePool) Put(b []byte) {
	if len(b) == 0 {
		return
	}
	b = b[:cap(b)]
	p.mu.RLock()
	pool, exists := p.pools[len(b)]
	p.mu.RUnlock()

	if exists {
		pool.Put(&b)
	}
}
