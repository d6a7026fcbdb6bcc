package texture

import (
	"runtime"
	"sync"

	"github.com/pkg/errors"

	"github.com/mogaika/scene_project/scene"
)

type AssignFunc func(tex *scene.Texture, err error)

type pending struct {
	payload string
	name    string
	assign  AssignFunc
	tex     *scene.Texture
	err     error
}

// Batch decodes textures concurrently. Assignments are applied on the
// goroutine calling Wait, in the order decodes were submitted.
type Batch struct {
	cache   *Cache
	wg      sync.WaitGroup
	sem     chan struct{}
	pending []*pending
}

func NewBatch(cache *Cache) *Batch {
	return &Batch{
		cache: cache,
		sem:   make(chan struct{}, runtime.NumCPU()),
	}
}

func (b *Batch) Go(payload string, name string, assign AssignFunc) {
	p := &pending{payload: payload, name: name, assign: assign}
	b.pending = append(b.pending, p)

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.sem <- struct{}{}
		defer func() { <-b.sem }()
		defer func() {
			if r := recover(); r != nil {
				p.err = errors.Errorf("Panic while decoding texture %q: %v", p.name, r)
			}
		}()
		p.tex, p.err = b.cache.Decode(p.payload, p.name)
	}()
}

// Wait blocks until every submitted decode settled, then assigns results.
// Returns the number of failed decodes.
func (b *Batch) Wait() int {
	b.wg.Wait()
	failed := 0
	for _, p := range b.pending {
		if p.err != nil {
			failed++
		}
		if p.assign != nil {
			p.assign(p.tex, p.err)
		}
	}
	b.pending = nil
	return failed
}
