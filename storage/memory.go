package storage

import (
	"context"
	"errors"
	"reflect"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"taskboard-api/domain"
)

// Memory is an in-process Store with the same filter semantics as the Mongo
// implementation (field equality, array-contains, "$or"). It backs tests and
// local development; state lives only as long as the process.
type Memory struct {
	mu   sync.RWMutex
	cols map[string][]bson.M
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{cols: make(map[string][]bson.M)}
}

func (s *Memory) FindOne(ctx context.Context, collection string, filter Filter, out any) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, doc := range s.cols[collection] {
		if matches(doc, filter) {
			return decodeDoc(doc, out)
		}
	}
	return domain.ErrNotFound
}

func (s *Memory) FindAll(ctx context.Context, collection string, filter Filter, out any) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var docs []bson.M
	for _, doc := range s.cols[collection] {
		if matches(doc, filter) {
			docs = append(docs, doc)
		}
	}
	return decodeSlice(docs, out)
}

func (s *Memory) Insert(ctx context.Context, collection string, doc any) error {
	m, err := toDoc(doc)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cols[collection] = append(s.cols[collection], m)
	return nil
}

func (s *Memory) UpdateFields(ctx context.Context, collection string, filter Filter, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, doc := range s.cols[collection] {
		if !matches(doc, filter) {
			continue
		}
		for k, v := range fields {
			bv, err := toValue(v)
			if err != nil {
				return err
			}
			doc[k] = bv
		}
		return nil
	}
	return nil
}

func (s *Memory) DeleteOne(ctx context.Context, collection string, filter Filter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	docs := s.cols[collection]
	for i, doc := range docs {
		if matches(doc, filter) {
			s.cols[collection] = append(docs[:i:i], docs[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *Memory) DeleteMany(ctx context.Context, collection string, filter Filter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.cols[collection][:0:0]
	for _, doc := range s.cols[collection] {
		if !matches(doc, filter) {
			kept = append(kept, doc)
		}
	}
	s.cols[collection] = kept
	return nil
}

func (s *Memory) ListSorted(ctx context.Context, collection string, filter Filter, sortField string, descending bool, limit int64, out any) error {
	s.mu.RLock()
	var docs []bson.M
	for _, doc := range s.cols[collection] {
		if matches(doc, filter) {
			docs = append(docs, doc)
		}
	}
	s.mu.RUnlock()
	sort.SliceStable(docs, func(i, j int) bool {
		if descending {
			return lessValue(docs[j][sortField], docs[i][sortField])
		}
		return lessValue(docs[i][sortField], docs[j][sortField])
	})
	if limit > 0 && int64(len(docs)) > limit {
		docs = docs[:limit]
	}
	return decodeSlice(docs, out)
}

// toDoc converts a domain struct to its stored form, honoring bson tags.
func toDoc(doc any) (bson.M, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// toValue normalizes a single field value the way bson storage would
// (e.g. time.Time becomes a BSON datetime).
func toValue(v any) (any, error) {
	m, err := toDoc(bson.M{"v": v})
	if err != nil {
		return nil, err
	}
	return m["v"], nil
}

func decodeDoc(doc bson.M, out any) error {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return err
	}
	return bson.Unmarshal(raw, out)
}

func decodeSlice(docs []bson.M, out any) error {
	v := reflect.ValueOf(out)
	if v.Kind() != reflect.Pointer || v.Elem().Kind() != reflect.Slice {
		return errors.New("storage: out must be a pointer to a slice")
	}
	slice := v.Elem()
	result := reflect.MakeSlice(slice.Type(), 0, len(docs))
	for _, doc := range docs {
		elem := reflect.New(slice.Type().Elem())
		if err := decodeDoc(doc, elem.Interface()); err != nil {
			return err
		}
		result = reflect.Append(result, elem.Elem())
	}
	slice.Set(result)
	return nil
}

func matches(doc bson.M, filter Filter) bool {
	for key, want := range filter {
		if key == "$or" {
			if !matchesAny(doc, want) {
				return false
			}
			continue
		}
		got, ok := doc[key]
		if !ok {
			return false
		}
		if reflect.DeepEqual(got, want) {
			continue
		}
		if arr, ok := got.(bson.A); ok && arrayContains(arr, want) {
			continue
		}
		return false
	}
	return true
}

func matchesAny(doc bson.M, subs any) bool {
	rv := reflect.ValueOf(subs)
	if rv.Kind() != reflect.Slice {
		return false
	}
	for i := 0; i < rv.Len(); i++ {
		var sub Filter
		switch f := rv.Index(i).Interface().(type) {
		case Filter:
			sub = f
		case bson.M:
			sub = Filter(f)
		case map[string]any:
			sub = Filter(f)
		default:
			continue
		}
		if matches(doc, sub) {
			return true
		}
	}
	return false
}

func arrayContains(arr bson.A, want any) bool {
	for _, el := range arr {
		if reflect.DeepEqual(el, want) {
			return true
		}
	}
	return false
}

func lessValue(a, b any) bool {
	switch av := a.(type) {
	case nil:
		return b != nil
	case string:
		bv, ok := b.(string)
		return ok && av < bv
	case int32:
		bv, ok := b.(int32)
		return ok && av < bv
	case int64:
		bv, ok := b.(int64)
		return ok && av < bv
	case float64:
		bv, ok := b.(float64)
		return ok && av < bv
	case primitive.DateTime:
		bv, ok := b.(primitive.DateTime)
		return ok && av < bv
	default:
		return false
	}
}
