package store

import (
	"testing"
	"time"

	"github.com/jmylchreest/stackbox/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStore(t *testing.T) {
	s := NewStore(nil)
	assert.NotNil(t, s)
	assert.Equal(t, 0, s.Count())
}

func TestStore_Add(t *testing.T) {
	s := NewStore(nil)
	defer s.Close()

	r := testRecord("a", 1000)
	require.NoError(t, s.Add(r))
	assert.Equal(t, 1, s.Count())

	// Same UID is skipped
	require.NoError(t, s.Add(r))
	assert.Equal(t, 1, s.Count())

	require.NoError(t, s.Add(testRecord("b", 1001)))
	assert.Equal(t, 2, s.Count())
	assert.NotEmpty(t, s.GetByUID("a").ContentHash)
}

func TestStore_Update(t *testing.T) {
	s := NewStore(nil)
	defer s.Close()

	r := testRecord("a", 1000)
	require.NoError(t, s.Add(r))

	r.MarkClosed(time.Unix(1010, 0), "button", "OK", "")
	require.NoError(t, s.Update(r))
	assert.Equal(t, "OK", s.GetByUID("a").Button)

	err := s.Update(testRecord("missing", 1))
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestStore_All(t *testing.T) {
	s := NewStore(nil)
	defer s.Close()

	s.Add(testRecord("old", 100))
	s.Add(testRecord("new", 200))

	all := s.All()
	require.Len(t, all, 2)
	assert.Equal(t, "new", all[0].UID)
	assert.Equal(t, "old", all[1].UID)
}

func TestStore_Filter(t *testing.T) {
	s := NewStore(nil)
	defer s.Close()
	now := time.Unix(10_000, 0)
	s.now = func() time.Time { return now }

	small := testRecord("s1", 9_990)
	big := testRecord("b1", 9_000)
	big.Kind = "big"
	big.Source = model.SourceDBus
	closed := testRecord("s2", 9_995)
	closed.MarkClosed(time.Unix(9_999, 0), "expired", "", "")

	s.Add(small)
	s.Add(big)
	s.Add(closed)

	tests := []struct {
		name     string
		opts     FilterOptions
		expected []string
	}{
		{"all newest first", FilterOptions{}, []string{"s2", "s1", "b1"}},
		{"oldest first", FilterOptions{SortOrder: "asc"}, []string{"b1", "s1", "s2"}},
		{"since", FilterOptions{Since: 30 * time.Second}, []string{"s2", "s1"}},
		{"kind", FilterOptions{Kind: "big"}, []string{"b1"}},
		{"source", FilterOptions{Source: model.SourceDBus}, []string{"b1"}},
		{"reason", FilterOptions{Reason: "expired"}, []string{"s2"}},
		{"open only", FilterOptions{OpenOnly: true}, []string{"s1", "b1"}},
		{"limit", FilterOptions{Limit: 1}, []string{"s2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var uids []string
			for _, r := range s.Filter(tt.opts) {
				uids = append(uids, r.UID)
			}
			assert.Equal(t, tt.expected, uids)
		})
	}
}

func TestStore_Lookup(t *testing.T) {
	s := NewStore(nil)
	defer s.Close()

	first := testRecord("01HZZZZZZZZZZZZZZZZZZZZZZA", 100)
	second := testRecord("01HZZZZZZZZZZZZZZZZZZZZZZB", 200)
	s.Add(first)
	s.Add(second)

	assert.Equal(t, first.UID, s.Lookup(first.UID).UID)
	assert.Equal(t, first.UID, s.Lookup(first.UID+" | small | Title").UID)
	assert.Equal(t, second.UID, s.Lookup("small#1").UID, "latest widget with the ref wins")
	assert.Nil(t, s.Lookup("big#9"))
}

func TestStore_Delete(t *testing.T) {
	s := NewStore(nil)
	defer s.Close()

	s.Add(testRecord("a", 1))
	s.Add(testRecord("b", 2))

	require.NoError(t, s.Delete("a"))
	assert.Equal(t, 1, s.Count())
	assert.Nil(t, s.GetByUID("a"))
	assert.NotNil(t, s.GetByUID("b"))

	require.NoError(t, s.Delete("missing"))
}

func TestStore_Prune(t *testing.T) {
	s := NewStore(nil)
	defer s.Close()
	now := time.Unix(100_000, 0)
	s.now = func() time.Time { return now }

	for i, uid := range []string{"a", "b", "c", "d"} {
		r := testRecord(uid, int64(1_000+i))
		r.MarkClosed(time.Unix(int64(1_100+i), 0), "clicked", "", "")
		s.Add(r)
	}
	s.Add(testRecord("open", 500))

	removed, err := s.Prune(time.Hour, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, removed)

	var uids []string
	for _, r := range s.All() {
		uids = append(uids, r.UID)
	}
	assert.Equal(t, []string{"d", "open"}, uids)
}

func TestStore_Subscribe(t *testing.T) {
	s := NewStore(nil)
	defer s.Close()

	ch := s.Subscribe()
	s.Add(testRecord("a", 1))

	select {
	case event := <-ch:
		assert.Equal(t, ChangeTypeAdd, event.Type)
		assert.Equal(t, 1, event.Count)
		assert.Equal(t, model.SourceCLI, event.Source)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for change event")
	}

	s.Unsubscribe(ch)
	_, ok := <-ch
	assert.False(t, ok)
}

func TestStore_Clear(t *testing.T) {
	s := NewStore(nil)
	defer s.Close()

	s.Add(testRecord("a", 1))
	require.NoError(t, s.Clear())
	assert.Equal(t, 0, s.Count())
}

func TestStore_Close(t *testing.T) {
	s := NewStore(nil)
	ch := s.Subscribe()

	require.NoError(t, s.Close())
	_, ok := <-ch
	assert.False(t, ok)

	assert.ErrorIs(t, s.Add(testRecord("a", 1)), ErrStoreClosed)
	require.NoError(t, s.Close())
}

func testRecord(uid string, created int64) model.Record {
	return model.Record{
		UID:       uid,
		Source:    model.SourceCLI,
		Kind:      "small",
		WidgetID:  1,
		Title:     "Title " + uid,
		CreatedAt: created,
	}
}
