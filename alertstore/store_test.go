/* Copyright (c) 2016 Jason Ish
 * All rights reserved.
 *
 * Redistribution and use in source and binary forms, with or without
 * modification, are permitted provided that the following conditions
 * are met:
 *
 * 1. Redistributions of source code must retain the above copyright
 *    notice, this list of conditions and the following disclaimer.
 * 2. Redistributions in binary form must reproduce the above copyright
 *    notice, this list of conditions and the following disclaimer in the
 *    documentation and/or other materials provided with the distribution.
 *
 * THIS SOFTWARE IS PROVIDED ``AS IS'' AND ANY EXPRESS OR IMPLIED
 * WARRANTIES, INCLUDING, BUT NOT LIMITED TO, THE IMPLIED WARRANTIES OF
 * MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE ARE
 * DISCLAIMED. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY DIRECT,
 * INDIRECT, INCIDENTAL, SPECIAL, EXEMPLARY, OR CONSEQUENTIAL DAMAGES
 * (INCLUDING, BUT NOT LIMITED TO, PROCUREMENT OF SUBSTITUTE GOODS OR
 * SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS INTERRUPTION)
 * HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY, WHETHER IN CONTRACT,
 * STRICT LIABILITY, OR TORT (INCLUDING NEGLIGENCE OR OTHERWISE) ARISING
 * IN ANY WAY OUT OF THE USE OF THIS SOFTWARE, EVEN IF ADVISED OF THE
 * POSSIBILITY OF SUCH DAMAGE.
 */

package alertstore

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/jasonish/evebox-triage/core"
	"github.com/jasonish/evebox-triage/eve"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// makeGroups returns n alert groups, newest first.
func makeGroups(n int) []core.AlertGroup {
	groups := make([]core.AlertGroup, 0, n)
	for i := n - 1; i >= 0; i-- {
		ts := eve.FormatAtTimestamp(baseTime.Add(time.Duration(i) * time.Minute))
		groups = append(groups, core.AlertGroup{
			Count: int64(i + 1),
			MinTs: ts,
			MaxTs: ts,
			Event: core.Document{
				ID: fmt.Sprintf("%d", i),
				Source: map[string]interface{}{
					"@timestamp": ts,
					"src_ip":     fmt.Sprintf("10.0.0.%d", i%7),
					"dest_ip":    fmt.Sprintf("10.0.1.%d", i),
					"tags":       []string{},
					"alert": map[string]interface{}{
						"signature_id": i,
						"signature":    fmt.Sprintf("SIG %03d", i),
					},
				},
			},
		})
	}
	return groups
}

// checkWindow asserts the window is the slice of all rows at the offset.
func checkWindow(t *testing.T, s *Store, full bool) {
	t.Helper()
	allRows := s.AllRows()
	rows := s.Rows()
	offset := s.Offset()

	require.LessOrEqual(t, offset+len(rows), len(allRows))
	for i, row := range rows {
		require.Equal(t, allRows[offset+i].Group.Key(), row.Group.Key())
	}

	if full {
		expected := len(allRows) - offset
		if expected > s.WindowSize() {
			expected = s.WindowSize()
		}
		require.Equal(t, expected, len(rows))
	}

	if len(rows) > 0 {
		require.GreaterOrEqual(t, s.ActiveRowIndex(), 0)
		require.Less(t, s.ActiveRowIndex(), len(rows))
	}
}

func TestNavigation(t *testing.T) {
	r := require.New(t)
	s := New(10)
	s.Load(makeGroups(25))

	r.Len(s.Rows(), 10)
	r.Equal(0, s.Offset())
	r.False(s.Newer())

	r.True(s.Older())
	r.Equal(10, s.Offset())
	r.True(s.Older())
	r.Equal(20, s.Offset())
	r.Len(s.Rows(), 5)
	r.False(s.Older())

	r.True(s.Newest())
	r.Equal(0, s.Offset())

	r.True(s.Oldest())
	r.Equal(15, s.Offset())
	r.Len(s.Rows(), 10)
	r.False(s.Oldest())

	r.True(s.Newer())
	r.Equal(5, s.Offset())
	r.True(s.Newer())
	r.Equal(0, s.Offset())
}

func TestNavigationResetsCursorAndSelection(t *testing.T) {
	s := New(10)
	s.Load(makeGroups(25))

	s.SetActiveRow(4)
	s.SetScrollOffset(120)
	s.SelectAll()
	require.Len(t, s.SelectedRows(), 10)

	s.Older()
	assert.Equal(t, 0, s.ActiveRowIndex())
	assert.Equal(t, 0, s.ScrollOffset())
	assert.Len(t, s.SelectedRows(), 0)

	s.Newer()
	assert.Len(t, s.SelectedRows(), 0)
}

func TestWindowInvariantRandomOps(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for round := 0; round < 50; round++ {
		s := New(1 + rng.Intn(12))
		s.Load(makeGroups(rng.Intn(60)))
		checkWindow(t, s, true)

		for step := 0; step < 100; step++ {
			switch rng.Intn(6) {
			case 0:
				s.Older()
				checkWindow(t, s, true)
			case 1:
				s.Newer()
				checkWindow(t, s, true)
			case 2:
				s.Oldest()
				checkWindow(t, s, true)
			case 3:
				s.Newest()
				checkWindow(t, s, true)
			case 4:
				s.MoveActive(rng.Intn(7) - 3)
				checkWindow(t, s, false)
			case 5:
				rows := s.Rows()
				if len(rows) > 0 {
					s.RemoveRow(rows[rng.Intn(len(rows))])
				}
				checkWindow(t, s, false)
				s.Refill()
				checkWindow(t, s, true)
			}
		}
	}
}

func TestRemoveRowBeforeCursor(t *testing.T) {
	s := New(10)
	s.Load(makeGroups(10))
	s.SetActiveRow(5)
	active := s.ActiveRow()

	require.True(t, s.RemoveRow(s.Row(2)))
	assert.Equal(t, 4, s.ActiveRowIndex())
	assert.Equal(t, active, s.ActiveRow())
	assert.Len(t, s.Rows(), 9)
	assert.Len(t, s.AllRows(), 9)
}

func TestRemoveRowAfterCursor(t *testing.T) {
	s := New(10)
	s.Load(makeGroups(10))
	s.SetActiveRow(5)

	s.RemoveRow(s.Row(7))
	assert.Equal(t, 5, s.ActiveRowIndex())
}

func TestRemoveActiveLastRow(t *testing.T) {
	s := New(10)
	s.Load(makeGroups(10))
	s.SetActiveRow(9)

	s.RemoveRow(s.Row(9))
	assert.Equal(t, 8, s.ActiveRowIndex())

	// Clamped at zero.
	s = New(10)
	s.Load(makeGroups(1))
	s.RemoveRow(s.Row(0))
	assert.Equal(t, 0, s.ActiveRowIndex())
	assert.Nil(t, s.ActiveRow())
	assert.Len(t, s.Rows(), 0)
}

func TestRemoveRowEmptyWindowPagesBack(t *testing.T) {
	s := New(5)
	s.Load(makeGroups(12))
	s.Older()
	s.Older()
	require.Equal(t, 10, s.Offset())
	require.Len(t, s.Rows(), 2)

	s.SetScrollOffset(50)
	for _, row := range s.Rows() {
		s.RemoveRow(row)
	}

	assert.Equal(t, 5, s.Offset())
	assert.Len(t, s.Rows(), 5)
	assert.Equal(t, 0, s.ActiveRowIndex())
	assert.Equal(t, 0, s.ScrollOffset())
	checkWindow(t, s, true)
}

func TestRemoveRowNotInStore(t *testing.T) {
	s := New(5)
	s.Load(makeGroups(3))
	assert.False(t, s.RemoveRow(&Row{}))
	assert.Equal(t, 3, s.Len())
}

func TestSelection(t *testing.T) {
	s := New(5)
	s.Load(makeGroups(8))

	row := s.Row(1)
	assert.True(t, s.ToggleSelected(row))
	selected := s.SelectedRows()
	require.Len(t, selected, 1)
	assert.Equal(t, row.Group.Key(), selected[0].Group.Key())
	assert.True(t, selected[0].Selected)
	assert.False(t, s.ToggleSelected(row))
	assert.Len(t, s.SelectedRows(), 0)

	// Rows outside the window can't be selected.
	outside := s.AllRows()[6]
	assert.False(t, s.ToggleSelected(outside))

	s.SelectAll()
	assert.Len(t, s.SelectedRows(), 5)
	s.DeselectAll()
	assert.Len(t, s.SelectedRows(), 0)
}

func TestSortBy(t *testing.T) {
	s := New(5)
	s.Load(makeGroups(8))

	s.SortBy(SortByCount)
	key, order := s.Sort()
	assert.Equal(t, SortByCount, key)
	assert.Equal(t, SortDesc, order)
	assert.Equal(t, int64(8), s.Row(0).Group.Count)

	s.SortBy(SortByCount)
	_, order = s.Sort()
	assert.Equal(t, SortAsc, order)
	assert.Equal(t, int64(1), s.Row(0).Group.Count)

	s.SortBy(SortBySignature)
	_, order = s.Sort()
	assert.Equal(t, SortAsc, order)
	assert.Equal(t, "SIG 000", s.Row(0).Group.Event.Signature())

	s.SortBy(SortByTimestamp)
	assert.Equal(t, "7", s.Row(0).Group.Event.ID)
	checkWindow(t, s, true)

	_, err := ParseSortKey("bogus")
	assert.Error(t, err)
	key, err = ParseSortKey("Destination")
	assert.NoError(t, err)
	assert.Equal(t, SortByDestination, key)
}

func TestStateRestore(t *testing.T) {
	r := require.New(t)
	s := New(5)
	s.Load(makeGroups(12))
	s.Older()
	s.SetActiveRow(3)
	s.SetScrollOffset(42)
	s.RemoveRow(s.Row(0))

	state := s.State()
	r.Equal(5, state.Offset)
	r.Equal(4, state.RowCount)
	r.Equal(2, state.ActiveRowIndex)
	r.Len(state.AllRows, 11)

	// Changes after the state was taken don't leak into it.
	r.True(s.Update(s.Row(0), func(group *core.AlertGroup) {
		group.Count = 1000
	}))
	r.NotEqual(int64(1000), state.AllRows[5].Group.Count)

	restored := New(5)
	restored.Restore(state)
	r.Equal(5, restored.Offset())
	r.Len(restored.Rows(), 4)
	r.Equal(2, restored.ActiveRowIndex())
	r.Equal(42, restored.ScrollOffset())
	r.Equal(state.AllRows[5].Group.Event.ID, restored.Row(0).Group.Event.ID)
	checkWindow(t, restored, false)
}

func TestRefillAfterRemove(t *testing.T) {
	r := require.New(t)
	s := New(3)
	s.Load(makeGroups(5))
	s.SetActiveRow(1)
	active := s.ActiveRow()

	r.True(s.RemoveRow(s.Row(0)))
	r.Len(s.Rows(), 2)
	r.Equal(0, s.ActiveRowIndex())

	s.Refill()
	r.Len(s.Rows(), 3)
	r.Equal(0, s.Offset())
	r.Equal(active.Group.Key(), s.ActiveRow().Group.Key())
	checkWindow(t, s, true)

	// Nothing left to fill from.
	s = New(3)
	s.Load(makeGroups(3))
	s.RemoveRow(s.Row(2))
	s.Refill()
	r.Len(s.Rows(), 2)
}

func TestRowsAreCopies(t *testing.T) {
	s := New(5)
	s.Load(makeGroups(5))

	row := s.Row(0)
	row.Group.Count = 1000
	row.Group.SetEscalated(true)
	row.Selected = true

	assert.Equal(t, int64(5), s.Row(0).Group.Count)
	assert.False(t, s.Row(0).Group.IsEscalated())
	assert.Len(t, s.SelectedRows(), 0)
}

func TestUpdate(t *testing.T) {
	s := New(5)
	s.Load(makeGroups(5))

	require.True(t, s.Update(s.Row(1), func(group *core.AlertGroup) {
		group.SetEscalated(true)
	}))
	assert.True(t, s.Row(1).Group.IsEscalated())
	assert.True(t, s.State().AllRows[1].Group.IsEscalated())

	assert.False(t, s.Update(&Row{}, func(group *core.AlertGroup) {
		t.Fatal("called for a row not in the store")
	}))
}

func TestConcurrentUpdateAndRead(t *testing.T) {
	s := New(10)
	s.Load(makeGroups(20))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			for _, row := range s.Rows() {
				s.Update(row, func(group *core.AlertGroup) {
					group.SetEscalated(i%2 == 0)
				})
			}
		}
	}()

	for i := 0; i < 200; i++ {
		for _, row := range s.Rows() {
			_, err := json.Marshal(row)
			require.NoError(t, err)
		}
		s.State()
	}
	<-done
}
