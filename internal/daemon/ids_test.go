package daemon

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jmylchreest/stackbox/internal/notify"
)

func TestIDTable(t *testing.T) {
	small := func(id int) notify.Ref { return notify.Ref{Kind: notify.KindSmallBox, ID: id} }

	t.Run("bind and release", func(t *testing.T) {
		ids := newIDTable()
		a := &tracked{}
		assert.Nil(t, ids.Put(1, a))

		_, ok := ids.Lookup(1)
		assert.False(t, ok, "not shown yet")

		ids.Bind(a, small(1))
		ref, ok := ids.Lookup(1)
		assert.True(t, ok)
		assert.Equal(t, small(1), ref)
		id, ok := ids.IDFor(small(1))
		assert.True(t, ok)
		assert.Equal(t, uint32(1), id)

		assert.True(t, ids.Release(a))
		assert.False(t, ids.Release(a))
		assert.Zero(t, ids.Len())
	})

	t.Run("replaced entry releases nothing", func(t *testing.T) {
		ids := newIDTable()
		a, b := &tracked{}, &tracked{}
		ids.Put(7, a)
		ids.Bind(a, small(1))

		assert.Same(t, a, ids.Put(7, b))
		ids.Bind(b, small(2))

		assert.False(t, ids.Release(a))
		_, ok := ids.IDFor(small(1))
		assert.False(t, ok)
		ref, _ := ids.Lookup(7)
		assert.Equal(t, small(2), ref)
	})

	t.Run("restore after rejection", func(t *testing.T) {
		ids := newIDTable()
		a, b := &tracked{}, &tracked{}
		ids.Put(3, a)
		ids.Bind(a, small(1))

		old := ids.Put(3, b)
		ids.Restore(b, old)

		ref, ok := ids.Lookup(3)
		assert.True(t, ok)
		assert.Equal(t, small(1), ref)
		id, _ := ids.IDFor(small(1))
		assert.Equal(t, uint32(3), id)

		c := &tracked{}
		ids.Put(9, c)
		ids.Restore(c, nil)
		assert.Equal(t, 1, ids.Len())
	})

	t.Run("release by ref", func(t *testing.T) {
		ids := newIDTable()
		a := &tracked{}
		ids.Put(4, a)
		ids.Bind(a, small(5))

		got, ok := ids.ReleaseRef(small(5))
		assert.True(t, ok)
		assert.Same(t, a, got)
		_, ok = ids.ReleaseRef(small(5))
		assert.False(t, ok)
		assert.Zero(t, ids.Len())
	})
}
