package cmap

import (
	"fmt"
	"sort"
	"sync"
	"testing"
)

func TestMap_SetGetDelete(t *testing.T) {
	m := New[int]()

	m.Set("a", 1)
	m.Set("b", 2)

	if v, ok := m.Get("a"); !ok || v != 1 {
		t.Fatalf("Get(a) = %d, %v, want 1, true", v, ok)
	}
	if _, ok := m.Get("missing"); ok {
		t.Fatal("Get(missing) = true, want false")
	}
	if m.Len() != 2 {
		t.Fatalf("Len = %d, want 2", m.Len())
	}

	if !m.Delete("a") {
		t.Fatal("Delete(a) = false, want true")
	}
	if m.Delete("a") {
		t.Fatal("second Delete(a) = true, want false")
	}
	if m.Len() != 1 {
		t.Fatalf("Len after delete = %d, want 1", m.Len())
	}
}

func TestMap_SetIfAbsent(t *testing.T) {
	m := New[string]()

	v, stored := m.SetIfAbsent("k", "first")
	if !stored || v != "first" {
		t.Fatalf("SetIfAbsent = %q, %v, want first, true", v, stored)
	}

	v, stored = m.SetIfAbsent("k", "second")
	if stored || v != "first" {
		t.Fatalf("second SetIfAbsent = %q, %v, want first, false", v, stored)
	}
}

func TestMap_Keys(t *testing.T) {
	m := New[int]()
	for i := 0; i < 10; i++ {
		m.Set(fmt.Sprintf("key-%d", i), i)
	}

	keys := m.Keys()
	sort.Strings(keys)
	if len(keys) != 10 {
		t.Fatalf("len(Keys) = %d, want 10", len(keys))
	}
	if keys[0] != "key-0" || keys[9] != "key-9" {
		t.Fatalf("Keys = %v", keys)
	}
}

func TestMap_RangeEarlyStop(t *testing.T) {
	m := New[int]()
	for i := 0; i < 10; i++ {
		m.Set(fmt.Sprintf("key-%d", i), i)
	}

	visited := 0
	m.Range(func(string, int) bool {
		visited++
		return visited < 3
	})
	if visited != 3 {
		t.Fatalf("visited = %d, want 3", visited)
	}
}

func TestMap_ConcurrentAccess(t *testing.T) {
	m := New[int]()
	var wg sync.WaitGroup

	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				key := fmt.Sprintf("g%d-%d", g, i)
				m.Set(key, i)
				if v, ok := m.Get(key); !ok || v != i {
					t.Errorf("Get(%s) = %d, %v", key, v, ok)
					return
				}
			}
		}(g)
	}
	wg.Wait()

	if m.Len() != 800 {
		t.Fatalf("Len = %d, want 800", m.Len())
	}
}
