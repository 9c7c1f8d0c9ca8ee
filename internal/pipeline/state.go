package pipeline

import (
	"fmt"

	"cdpflow/internal/audiofile"
	"cdpflow/internal/resolve"
)

// group is one arena slot: the per-channel handles derived from one logical
// input, indexed by channel position.
type group struct {
	id      int
	handles []audiofile.File
	state   resolve.State
}

func (g *group) String() string {
	return fmt.Sprintf("group %d (%s, %d handles)", g.id, g.state, len(g.handles))
}

// State is the arena of channel groups for one run.
type State struct {
	groups []*group
	nextID int
}

func (s *State) add(handles []audiofile.File, st resolve.State) *group {
	g := &group{id: s.nextID, state: st}
	s.nextID++
	g.handles = make([]audiofile.File, len(handles))
	for i, h := range handles {
		h.Group = g.id
		g.handles[i] = h
	}
	s.groups = append(s.groups, g)
	return g
}

// replaceAll collapses the arena to a single new group.
func (s *State) replaceAll(handles []audiofile.File, st resolve.State) *group {
	s.groups = nil
	return s.add(handles, st)
}

// Groups returns the number of live channel groups.
func (s *State) Groups() int {
	return len(s.groups)
}

// Handles returns a copy of every live handle, group by group.
func (s *State) Handles() []audiofile.File {
	var out []audiofile.File
	for _, g := range s.groups {
		out = append(out, g.handles...)
	}
	return out
}

// regroup gathers handles across groups by channel index. Every group must
// share one layout; mixed layouts have no meaningful index alignment.
func (s *State) regroup() (resolve.State, [][]audiofile.File, error) {
	if len(s.groups) == 0 {
		return resolve.State{}, nil, fmt.Errorf("no channel groups")
	}
	first := s.groups[0].state
	for _, g := range s.groups[1:] {
		if g.state != first {
			return resolve.State{}, nil, fmt.Errorf("%s does not match %s", g, s.groups[0])
		}
	}
	width := first.Layout.Handles()
	byIndex := make([][]audiofile.File, width)
	for _, g := range s.groups {
		if len(g.handles) != width {
			return resolve.State{}, nil, fmt.Errorf("%s has %d handles, want %d", g, len(g.handles), width)
		}
		for idx, h := range g.handles {
			byIndex[idx] = append(byIndex[idx], h)
		}
	}
	return first, byIndex, nil
}
