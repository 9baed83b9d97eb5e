package registry

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SuYehTarn/jitr/internal/verifier/domain"
)

func newVerifier(name, address string) domain.Verifier {
	return domain.Verifier{Name: name, Reference: domain.Reference{Address: address}}
}

func TestMemoryRegistry_PutGet(t *testing.T) {
	r := NewMemoryRegistry()

	require.NoError(t, r.Put(newVerifier("denylist", "https://denylist.internal")))

	v, err := r.Get("denylist")
	require.NoError(t, err)
	assert.Equal(t, "https://denylist.internal", v.Reference.Address)

	t.Run("replace is wholesale", func(t *testing.T) {
		require.NoError(t, r.Put(domain.Verifier{
			Name:      "denylist",
			Reference: domain.Reference{Address: "builtin:deny"},
		}))
		v, err := r.Get("denylist")
		require.NoError(t, err)
		assert.Equal(t, domain.Reference{Address: "builtin:deny"}, v.Reference)
	})

	t.Run("put is idempotent", func(t *testing.T) {
		require.NoError(t, r.Put(newVerifier("chain", "builtin:chain")))
		require.NoError(t, r.Put(newVerifier("chain", "builtin:chain")))
		assert.Equal(t, []string{"chain", "denylist"}, r.Names())
	})
}

func TestMemoryRegistry_PutEmptyName(t *testing.T) {
	r := NewMemoryRegistry()

	err := r.Put(newVerifier("  ", "builtin:allow"))
	assert.ErrorIs(t, err, domain.ErrInvalidVerifierName)
	assert.Empty(t, r.List())
}

func TestMemoryRegistry_Delete(t *testing.T) {
	tests := []struct {
		name  string
		setup func(r *MemoryRegistry)
	}{
		{name: "absent", setup: func(r *MemoryRegistry) {}},
		{name: "present", setup: func(r *MemoryRegistry) { _ = r.Put(newVerifier("x", "builtin:allow")) }},
		{name: "already deleted", setup: func(r *MemoryRegistry) {
			_ = r.Put(newVerifier("x", "builtin:allow"))
			r.Delete("x")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewMemoryRegistry()
			tt.setup(r)

			r.Delete("x")

			_, err := r.Get("x")
			assert.ErrorIs(t, err, domain.ErrVerifierNotFound)
		})
	}
}

func TestMemoryRegistry_ListOrderedSnapshot(t *testing.T) {
	r := NewMemoryRegistry()
	for _, name := range []string{"ocsp", "chain", "denylist"} {
		require.NoError(t, r.Put(newVerifier(name, "builtin:allow")))
	}

	list := r.List()
	require.Len(t, list, 3)
	assert.Equal(t, "chain", list[0].Name)
	assert.Equal(t, "denylist", list[1].Name)
	assert.Equal(t, "ocsp", list[2].Name)

	list[0].Name = "mutated"
	assert.Equal(t, []string{"chain", "denylist", "ocsp"}, r.Names())
}

func TestMemoryRegistry_Replace(t *testing.T) {
	r := NewMemoryRegistry()
	require.NoError(t, r.Put(newVerifier("stale", "builtin:deny")))

	r.Replace([]domain.Verifier{newVerifier("fresh", "builtin:allow")})

	assert.Equal(t, []string{"fresh"}, r.Names())
}

func TestMemoryRegistry_ConcurrentAccess(t *testing.T) {
	r := NewMemoryRegistry()
	const writers = 8
	const rounds = 200

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				name := fmt.Sprintf("v%d", i%5)
				address := fmt.Sprintf("https://w%d.internal/%d", w, i)
				_ = r.Put(domain.Verifier{
					Name:      name,
					Reference: domain.Reference{Address: address, Permission: address},
				})
				if i%7 == 0 {
					r.Delete(name)
				}
			}
		}(w)
	}

	for rd := 0; rd < writers; rd++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				for _, v := range r.List() {
					// Address and permission are always written together.
					assert.Equal(t, v.Reference.Address, v.Reference.Permission)
				}
				if v, err := r.Get("v1"); err == nil {
					assert.Equal(t, v.Reference.Address, v.Reference.Permission)
				}
			}
		}()
	}

	wg.Wait()

	names := r.Names()
	seen := make(map[string]bool)
	for _, n := range names {
		assert.False(t, seen[n], "name listed twice: %s", n)
		seen[n] = true
	}
}
