package uniq

import (
	"hash/maphash"
	"reflect"
	"runtime"
	"sync"

	"github.com/golang/groupcache/lru"
)

// Key addresses one slot of a Store.
type Key uint64

var seed = maphash.MakeSeed()

// maxSites bounds the program counter cache used by Here.
const maxSites = 4096

var sites = struct {
	sync.Mutex
	cache *lru.Cache // pc -> Key
}{cache: lru.New(maxSites)}

type site struct {
	file string
	line int
}

type mixed struct {
	key   Key
	typ   reflect.Type
	value any
}

// Here returns a Key for the source line that called it, mixed with values.
// Every execution of that line yields the same Key for the same values, so
// code that runs once per frame finds its state again:
//
//	for i, row := range rows {
//		open := uniq.GetOrDefault[bool](s, uniq.Here(i))
//	}
//
// The Key identifies the line that calls Here. Called from inside a helper
// it identifies the helper, so every caller of the helper shares one Key
// unless each passes its own values. Two calls on the same line share a Key
// as well.
//
// values must be comparable; Here panics otherwise.
//
//go:noinline
func Here(values ...any) Key {
	var pcs [1]uintptr
	if runtime.Callers(2, pcs[:]) == 0 {
		return Mix(0, values...)
	}
	return Mix(siteKey(pcs[0]), values...)
}

// Mix combines key with values into a new Key. values must be comparable.
func Mix(key Key, values ...any) Key {
	for _, v := range values {
		key = Key(maphash.Comparable(seed, mixed{key, reflect.TypeOf(v), v}))
	}
	return key
}

// siteKey resolves pc to the logical source position, which stays the same
// when the calling function is inlined into several places.
func siteKey(pc uintptr) Key {
	sites.Lock()
	defer sites.Unlock()

	if k, ok := sites.cache.Get(pc); ok {
		return k.(Key)
	}
	frame, _ := runtime.CallersFrames([]uintptr{pc}).Next()
	k := Key(maphash.Comparable(seed, site{frame.File, frame.Line}))
	sites.cache.Add(pc, k)
	return k
}
