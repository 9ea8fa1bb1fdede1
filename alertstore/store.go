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
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jasonish/evebox-triage/core"
	"github.com/pkg/errors"
)

const DefaultWindowSize = 100

type SortKey string

const (
	SortByTimestamp   SortKey = "timestamp"
	SortByCount       SortKey = "count"
	SortBySignature   SortKey = "signature"
	SortBySource      SortKey = "source"
	SortByDestination SortKey = "destination"
)

const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

func ParseSortKey(name string) (SortKey, error) {
	switch key := SortKey(strings.ToLower(name)); key {
	case SortByTimestamp, SortByCount, SortBySignature, SortBySource, SortByDestination:
		return key, nil
	}
	return "", errors.Errorf("invalid sort key: %s", name)
}

// Row is an alert group as displayed in a list. Rows returned by a store
// are copies, a row is matched back to the store by its alert group key.
type Row struct {
	Group    *core.AlertGroup `json:"group"`
	Selected bool             `json:"selected"`
	Date     time.Time        `json:"date"`
}

func NewRow(group core.AlertGroup) *Row {
	g := group.Clone()
	return &Row{
		Group: g,
		Date:  g.Time(),
	}
}

func (r *Row) clone() *Row {
	return &Row{
		Group:    r.Group.Clone(),
		Selected: r.Selected,
		Date:     r.Date,
	}
}

func cloneRows(rows []*Row) []*Row {
	clones := make([]*Row, 0, len(rows))
	for _, row := range rows {
		clones = append(clones, row.clone())
	}
	return clones
}

// State is everything needed to put a store back the way it was.
type State struct {
	AllRows        []Row   `json:"allRows"`
	Offset         int     `json:"offset"`
	RowCount       int     `json:"rowCount"`
	ActiveRowIndex int     `json:"activeRowIndex"`
	ScrollOffset   int     `json:"scrollOffset"`
	SortBy         SortKey `json:"sortBy"`
	SortOrder      string  `json:"sortOrder"`
}

// Store holds the alert groups of the current query and a window over
// them, along with the active row cursor and the selection.
//
// The window is always a contiguous slice of all rows starting at the
// offset. Navigation and Refill fill the window to its full size, RemoveRow
// only shrinks it.
//
// Rows are only read and written with the lock held, callers get copies.
type Store struct {
	mu sync.Mutex

	allRows        []*Row
	rows           []*Row
	offset         int
	activeRowIndex int
	windowSize     int
	scrollOffset   int
	sortBy         SortKey
	sortOrder      string
}

func New(windowSize int) *Store {
	if windowSize <= 0 {
		windowSize = DefaultWindowSize
	}
	return &Store{
		windowSize: windowSize,
		sortBy:     SortByTimestamp,
		sortOrder:  SortDesc,
		rows:       []*Row{},
		allRows:    []*Row{},
	}
}

// Load replaces the rows with the given alert groups, which are expected
// newest first, and moves to the first window.
func (s *Store) Load(groups []core.AlertGroup) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.allRows = make([]*Row, 0, len(groups))
	for _, group := range groups {
		s.allRows = append(s.allRows, NewRow(group))
	}
	if s.sortBy != SortByTimestamp || s.sortOrder != SortDesc {
		s.sortRows()
	}
	s.setOffset(0)
}

// setOffset moves the window, resetting the cursor, the scroll position and
// the selection.
func (s *Store) setOffset(offset int) {
	if offset > len(s.allRows)-1 {
		offset = len(s.allRows) - 1
	}
	if offset < 0 {
		offset = 0
	}
	s.offset = offset
	s.fillWindow()
	s.activeRowIndex = 0
	s.scrollOffset = 0
	for _, row := range s.allRows {
		row.Selected = false
	}
}

func (s *Store) fillWindow() {
	end := s.offset + s.windowSize
	if end > len(s.allRows) {
		end = len(s.allRows)
	}
	if s.offset >= end {
		s.rows = []*Row{}
		return
	}
	s.rows = make([]*Row, end-s.offset)
	copy(s.rows, s.allRows[s.offset:end])
}

// refill restores a window shortened by removals without moving it.
func (s *Store) refill() {
	if s.offset+len(s.rows) < len(s.allRows) && len(s.rows) < s.windowSize {
		s.fillWindow()
	}
	s.activeRowIndex = s.clampIndex(s.activeRowIndex)
}

// Refill fills a window shortened by removals from the rows after it,
// keeping the offset and the cursor.
func (s *Store) Refill() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refill()
}

// Rows returns the rows of the current window.
func (s *Store) Rows() []*Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneRows(s.rows)
}

func (s *Store) AllRows() []*Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneRows(s.allRows)
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.allRows)
}

func (s *Store) Offset() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.offset
}

func (s *Store) WindowSize() int {
	return s.windowSize
}

// Older moves the window one page towards the older alerts. False is
// returned if already at the last window.
func (s *Store) Older() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.offset+s.windowSize >= len(s.allRows) {
		s.refill()
		return false
	}
	s.setOffset(s.offset + s.windowSize)
	return true
}

func (s *Store) Newer() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.offset == 0 {
		s.refill()
		return false
	}
	s.setOffset(s.offset - s.windowSize)
	return true
}

// Oldest moves to the last full window.
func (s *Store) Oldest() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	offset := len(s.allRows) - s.windowSize
	if offset < 0 {
		offset = 0
	}
	if offset == s.offset {
		s.refill()
		return false
	}
	s.setOffset(offset)
	return true
}

func (s *Store) Newest() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.offset == 0 {
		s.refill()
		return false
	}
	s.setOffset(0)
	return true
}

// RemoveRow removes a row from the store. The window is not refilled, so
// the cursor stays on the row it was on unless that row was removed. If
// the window becomes empty the previous window is shown.
func (s *Store) RemoveRow(row *Row) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	index := indexOf(s.allRows, row)
	if index < 0 {
		return false
	}
	s.allRows = append(s.allRows[:index], s.allRows[index+1:]...)

	if rowIndex := indexOf(s.rows, row); rowIndex >= 0 {
		s.rows = append(s.rows[:rowIndex], s.rows[rowIndex+1:]...)
		if rowIndex < s.activeRowIndex {
			s.activeRowIndex--
		}
	} else if index < s.offset {
		// Removed from before the window, which keeps its rows.
		s.offset--
	}

	if s.activeRowIndex > len(s.rows)-1 {
		s.activeRowIndex = len(s.rows) - 1
	}
	if s.activeRowIndex < 0 {
		s.activeRowIndex = 0
	}

	if len(s.rows) == 0 && len(s.allRows) > 0 {
		s.setOffset(s.offset - s.windowSize)
	}

	return true
}

func indexOf(rows []*Row, row *Row) int {
	if row == nil || row.Group == nil {
		return -1
	}
	key := row.Group.Key()
	for i, r := range rows {
		if r.Group.Key() == key {
			return i
		}
	}
	return -1
}

// Update applies fn to the alert group of a row in the store. False is
// returned if the row is not in the store.
func (s *Store) Update(row *Row, fn func(group *core.AlertGroup)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	index := indexOf(s.allRows, row)
	if index < 0 {
		return false
	}
	fn(s.allRows[index].Group)
	return true
}

func (s *Store) SelectAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.rows {
		row.Selected = true
	}
}

func (s *Store) DeselectAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.rows {
		row.Selected = false
	}
}

// ToggleSelected toggles the selection of a row in the window, returning
// the new state.
func (s *Store) ToggleSelected(row *Row) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	index := indexOf(s.rows, row)
	if index < 0 {
		return false
	}
	s.rows[index].Selected = !s.rows[index].Selected
	return s.rows[index].Selected
}

func (s *Store) SelectedRows() []*Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	selected := []*Row{}
	for _, row := range s.rows {
		if row.Selected {
			selected = append(selected, row.clone())
		}
	}
	return selected
}

// Row returns the row at index i of the window.
func (s *Store) Row(i int) *Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.rows) {
		return nil
	}
	return s.rows[i].clone()
}

// Find returns the row of the alert group with the given key.
func (s *Store) Find(key core.AlertGroupKey) *Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.allRows {
		if row.Group.Key() == key {
			return row.clone()
		}
	}
	return nil
}

func (s *Store) ActiveRowIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeRowIndex
}

func (s *Store) ActiveRow() *Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.rows) == 0 {
		return nil
	}
	return s.rows[s.activeRowIndex].clone()
}

// SetActiveRow moves the cursor, clamped to the window.
func (s *Store) SetActiveRow(i int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeRowIndex = s.clampIndex(i)
	return s.activeRowIndex
}

func (s *Store) MoveActive(delta int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeRowIndex = s.clampIndex(s.activeRowIndex + delta)
	return s.activeRowIndex
}

func (s *Store) clampIndex(i int) int {
	if i > len(s.rows)-1 {
		i = len(s.rows) - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}

func (s *Store) ScrollOffset() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scrollOffset
}

func (s *Store) SetScrollOffset(offset int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if offset < 0 {
		offset = 0
	}
	s.scrollOffset = offset
}

func (s *Store) Sort() (SortKey, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortBy, s.sortOrder
}

// SortBy sorts all rows by key and moves to the first window. Choosing the
// current key again reverses the order. Counts and timestamps sort
// descending first, everything else ascending.
func (s *Store) SortBy(key SortKey) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if key == s.sortBy {
		if s.sortOrder == SortAsc {
			s.sortOrder = SortDesc
		} else {
			s.sortOrder = SortAsc
		}
	} else {
		s.sortBy = key
		switch key {
		case SortByCount, SortByTimestamp:
			s.sortOrder = SortDesc
		default:
			s.sortOrder = SortAsc
		}
	}

	s.sortRows()
	s.setOffset(0)
}

func (s *Store) sortRows() {
	var less func(a, b *Row) bool
	switch s.sortBy {
	case SortByCount:
		less = func(a, b *Row) bool { return a.Group.Count < b.Group.Count }
	case SortBySignature:
		less = func(a, b *Row) bool {
			return strings.ToLower(a.Group.Event.Signature()) <
				strings.ToLower(b.Group.Event.Signature())
		}
	case SortBySource:
		less = func(a, b *Row) bool { return a.Group.Event.SrcIP() < b.Group.Event.SrcIP() }
	case SortByDestination:
		less = func(a, b *Row) bool { return a.Group.Event.DestIP() < b.Group.Event.DestIP() }
	default:
		less = func(a, b *Row) bool { return a.Date.Before(b.Date) }
	}

	desc := s.sortOrder == SortDesc
	sort.SliceStable(s.allRows, func(i, j int) bool {
		if desc {
			return less(s.allRows[j], s.allRows[i])
		}
		return less(s.allRows[i], s.allRows[j])
	})
}

// State returns a copy of the store state. Alert groups are copied so the
// state is unaffected by later changes to the store.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := State{
		AllRows:        make([]Row, 0, len(s.allRows)),
		Offset:         s.offset,
		RowCount:       len(s.rows),
		ActiveRowIndex: s.activeRowIndex,
		ScrollOffset:   s.scrollOffset,
		SortBy:         s.sortBy,
		SortOrder:      s.sortOrder,
	}
	for _, row := range s.allRows {
		state.AllRows = append(state.AllRows, *row.clone())
	}
	return state
}

// Restore puts the store back to a saved state.
func (s *Store) Restore(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.allRows = make([]*Row, 0, len(state.AllRows))
	for _, row := range state.AllRows {
		if row.Group == nil {
			continue
		}
		s.allRows = append(s.allRows, &Row{
			Group:    row.Group.Clone(),
			Selected: row.Selected,
			Date:     row.Date,
		})
	}

	if state.SortBy != "" {
		s.sortBy = state.SortBy
	}
	if state.SortOrder != "" {
		s.sortOrder = state.SortOrder
	}

	s.offset = state.Offset
	if s.offset > len(s.allRows) {
		s.offset = len(s.allRows)
	}
	if s.offset < 0 {
		s.offset = 0
	}
	end := s.offset + state.RowCount
	if end > len(s.allRows) || state.RowCount > s.windowSize || state.RowCount <= 0 {
		end = s.offset + s.windowSize
		if end > len(s.allRows) {
			end = len(s.allRows)
		}
	}
	s.rows = make([]*Row, end-s.offset)
	copy(s.rows, s.allRows[s.offset:end])

	s.activeRowIndex = s.clampIndex(state.ActiveRowIndex)
	s.scrollOffset = state.ScrollOffset
}
