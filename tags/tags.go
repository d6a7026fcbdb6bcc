// Package tags attaches provenance labels ("added", "modified", ...) to live
// scene entities. Labels are informational for tooling such as the exporter
// and never drive reconstruction.
package tags

import (
	"log"
	"sort"
	"strings"
	"sync"
)

const (
	Added               = "added"
	Modified            = "modified"
	AddedParticleSystem = "added_particlesystem"
)

// Store keeps tags per entity pointer. The zero value is ready to use.
type Store struct {
	mu   sync.RWMutex
	tags map[interface{}]map[string]struct{}
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) entry(obj interface{}) map[string]struct{} {
	if s.tags == nil {
		s.tags = make(map[interface{}]map[string]struct{})
	}
	set, ok := s.tags[obj]
	if !ok {
		set = make(map[string]struct{})
		s.tags[obj] = set
	}
	return set
}

// EnableFor makes obj taggable without adding any tag
func (s *Store) EnableFor(obj interface{}) {
	if obj == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entry(obj)
}

// AddTagsTo adds space separated tags. Operators are not valid tag names.
func (s *Store) AddTagsTo(obj interface{}, tagsString string) {
	if obj == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.entry(obj)
	for _, tag := range strings.Fields(tagsString) {
		if !validTag(tag) {
			log.Printf("[tags] Ignoring invalid tag %q", tag)
			continue
		}
		set[tag] = struct{}{}
	}
}

func (s *Store) RemoveTagsFrom(obj interface{}, tagsString string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.tags[obj]
	if !ok {
		return
	}
	for _, tag := range strings.Fields(tagsString) {
		delete(set, tag)
	}
}

// Forget drops every tag of obj, used when an entity leaves the scene
func (s *Store) Forget(obj interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tags, obj)
}

// IsEnabled reports whether obj went through EnableFor, tagged or not
func (s *Store) IsEnabled(obj interface{}) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.tags[obj]
	return ok
}

// HasTags reports whether obj has at least one tag
func (s *Store) HasTags(obj interface{}) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tags[obj]) != 0
}

func (s *Store) HasTag(obj interface{}, tag string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.tags[obj][tag]
	return ok
}

// GetTags returns sorted tags of obj
func (s *Store) GetTags(obj interface{}) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]string, 0, len(s.tags[obj]))
	for tag := range s.tags[obj] {
		result = append(result, tag)
	}
	sort.Strings(result)
	return result
}

// MatchesQuery evaluates a boolean tag query against obj.
// An invalid query never matches.
func (s *Store) MatchesQuery(obj interface{}, query string) bool {
	q, err := compiled(query)
	if err != nil {
		log.Printf("[tags] %v", err)
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	set := s.tags[obj]
	if set == nil {
		set = map[string]struct{}{}
	}
	return q.Match(set)
}

func validTag(tag string) bool {
	if tag == "" || strings.ContainsAny(tag, "!()") {
		return false
	}
	return !strings.Contains(tag, "&&") && !strings.Contains(tag, "||")
}
