package resolve

import (
	"fmt"
	"strings"

	"cdpflow/internal/audiofile"
	"cdpflow/internal/faults"
	"cdpflow/internal/operation"
)

// Layout describes how a channel group's data is laid out on disk.
type Layout int

const (
	// LayoutMono is a single-channel group with one handle.
	LayoutMono Layout = iota
	// LayoutUnsplit is stereo data in one interleaved handle.
	LayoutUnsplit
	// LayoutSplit is stereo data as separate LEFT and RIGHT handles.
	LayoutSplit
)

func (l Layout) String() string {
	switch l {
	case LayoutUnsplit:
		return "stereo"
	case LayoutSplit:
		return "split"
	default:
		return "mono"
	}
}

// Handles is the number of files a group with this layout holds.
func (l Layout) Handles() int {
	if l == LayoutSplit {
		return 2
	}
	return 1
}

// Stereo reports whether the layout carries two channels.
func (l Layout) Stereo() bool {
	return l != LayoutMono
}

// State is the resolver's view of one channel group.
type State struct {
	Format audiofile.Format
	Layout Layout
}

func (s State) String() string {
	return fmt.Sprintf("%s/%s", s.Format, s.Layout)
}

// Channels is the channel mode requested for the final output.
type Channels int

const (
	// ChannelsPreserve keeps stereo data stereo and mono data mono.
	ChannelsPreserve Channels = iota
	ChannelsMono
	ChannelsStereo
)

func (c Channels) String() string {
	switch c {
	case ChannelsMono:
		return "mono"
	case ChannelsStereo:
		return "stereo"
	default:
		return "preserve"
	}
}

// ParseChannels maps a CLI token to a Channels mode.
func ParseChannels(value string) (Channels, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "preserve":
		return ChannelsPreserve, nil
	case "mono":
		return ChannelsMono, nil
	case "stereo":
		return ChannelsStereo, nil
	default:
		return ChannelsPreserve, fmt.Errorf("unknown channel mode %q", value)
	}
}

// Target is what the next step expects. Closing marks the final output step,
// where Channels applies and Arity is ignored.
type Target struct {
	Format   audiofile.Format
	Arity    operation.Arity
	Closing  bool
	Channels Channels
}

// ForOperation returns the target implied by an operation's input requirement.
func ForOperation(req operation.Requirement) Target {
	return Target{Format: req.Format, Arity: req.Arity}
}

// ForOutput returns the target for the closing step.
func ForOutput(format audiofile.Format, channels Channels) Target {
	return Target{Format: format, Closing: true, Channels: channels}
}

// ActionKind enumerates resolver actions.
type ActionKind int

const (
	ActionConvert ActionKind = iota
	ActionSplit
	ActionMerge
)

func (k ActionKind) String() string {
	switch k {
	case ActionSplit:
		return "split"
	case ActionMerge:
		return "merge"
	default:
		return "convert"
	}
}

// Action is one step the caller must execute, in order.
type Action struct {
	Kind ActionKind
	// From and To are set for conversions.
	From audiofile.Format
	To   audiofile.Format
}

func (a Action) String() string {
	if a.Kind == ActionConvert {
		return fmt.Sprintf("convert %s->%s", a.From, a.To)
	}
	return a.Kind.String()
}

// Resolve returns the state after aligning state with target and the actions
// that get it there.
func Resolve(state State, target Target) (State, []Action, error) {
	if !state.Format.Valid() {
		return state, nil, conversionError(fmt.Sprintf("unknown current format %q", state.Format))
	}
	if !target.Format.Valid() {
		return state, nil, conversionError(fmt.Sprintf("unknown target format %q", target.Format))
	}

	needSplit, needMerge, err := channelPlan(state, target)
	if err != nil {
		return state, nil, err
	}

	cur := state
	var actions []Action
	convert := func(to audiofile.Format) {
		if cur.Format == to {
			return
		}
		actions = append(actions, Action{Kind: ActionConvert, From: cur.Format, To: to})
		cur.Format = to
	}

	switch {
	case needSplit:
		convert(audiofile.FormatRaw)
		actions = append(actions, Action{Kind: ActionSplit})
		cur.Layout = LayoutSplit
	case needMerge:
		convert(audiofile.FormatRaw)
		if err := CheckMerge(cur); err != nil {
			return state, nil, err
		}
		actions = append(actions, Action{Kind: ActionMerge})
		cur.Layout = LayoutUnsplit
	}
	convert(target.Format)

	return cur, actions, nil
}

func channelPlan(state State, target Target) (split, merge bool, err error) {
	if target.Closing {
		switch target.Channels {
		case ChannelsStereo:
			if state.Layout == LayoutMono {
				return false, false, conversionError("stereo output requested from mono data")
			}
			return false, state.Layout == LayoutSplit, nil
		case ChannelsMono:
			if state.Layout != LayoutMono {
				return false, false, conversionError("mono output requested from stereo data")
			}
			return false, false, nil
		default:
			return false, state.Layout == LayoutSplit, nil
		}
	}
	if target.Arity == operation.ArityMonoOnly && state.Layout == LayoutUnsplit {
		return true, false, nil
	}
	return false, false, nil
}

// CheckMerge rejects merges that have no legal direct form: only split RAW
// groups can be interleaved.
func CheckMerge(state State) error {
	if state.Format != audiofile.FormatRaw {
		return conversionError(fmt.Sprintf("cannot merge %s channels directly; synthesize to raw first", state.Format))
	}
	if state.Layout != LayoutSplit {
		return conversionError(fmt.Sprintf("cannot merge a %s group", state.Layout))
	}
	return nil
}

// CheckSplit rejects splits that have no legal direct form: only unsplit RAW
// stereo groups can be split.
func CheckSplit(state State) error {
	if state.Format != audiofile.FormatRaw {
		return conversionError(fmt.Sprintf("cannot split %s data directly; synthesize to raw first", state.Format))
	}
	if state.Layout != LayoutUnsplit {
		return conversionError(fmt.Sprintf("cannot split a %s group", state.Layout))
	}
	return nil
}

func conversionError(msg string) error {
	return faults.Wrap(faults.ErrConversion, "resolve", "plan", msg, nil)
}
