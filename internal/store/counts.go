package store

import "fluxtodo/internal/service"

// TaskCount is the denormalized per-list task tally kept by the ListStore.
// Invariant: 0 <= Completed <= Total.
type TaskCount struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
}

func (c TaskCount) clamp() TaskCount {
	c.Total = max(c.Total, 0)
	c.Completed = min(max(c.Completed, 0), c.Total)
	return c
}

// EffectKind identifies a task-count change.
type EffectKind int

const (
	EffectIncrement EffectKind = iota + 1
	EffectDecrement
	EffectTransition
)

func (k EffectKind) String() string {
	switch k {
	case EffectIncrement:
		return "increment"
	case EffectDecrement:
		return "decrement"
	case EffectTransition:
		return "transition"
	default:
		return "unknown"
	}
}

// Effect describes a count change the ListStore must apply on behalf of a
// task mutation. For increment and decrement, Completed is the task's flag.
// For transition, WasCompleted and Completed are the flag before and after.
type Effect struct {
	Kind         EffectKind
	ListID       string
	Completed    bool
	WasCompleted bool
}

// Inverse returns the effect that undoes e.
func (e Effect) Inverse() Effect {
	switch e.Kind {
	case EffectIncrement:
		e.Kind = EffectDecrement
	case EffectDecrement:
		e.Kind = EffectIncrement
	case EffectTransition:
		e.Completed, e.WasCompleted = e.WasCompleted, e.Completed
	}
	return e
}

// CountSink receives task-count effects. ListStore implements it.
type CountSink interface {
	ApplyEffects(effects ...Effect)
}

func increment(listID string, completed bool) Effect {
	return Effect{Kind: EffectIncrement, ListID: listID, Completed: completed}
}

func decrement(listID string, completed bool) Effect {
	return Effect{Kind: EffectDecrement, ListID: listID, Completed: completed}
}

func transition(listID string, was, is bool) Effect {
	return Effect{Kind: EffectTransition, ListID: listID, WasCompleted: was, Completed: is}
}

// changeEffects returns the count effects of replacing before with after.
func changeEffects(before, after service.Task) []Effect {
	if before.ListID != after.ListID {
		return []Effect{
			decrement(before.ListID, before.Completed),
			increment(after.ListID, after.Completed),
		}
	}
	if before.Completed != after.Completed {
		return []Effect{transition(before.ListID, before.Completed, after.Completed)}
	}
	return nil
}

// invert returns the effects undoing effs, in reverse order.
func invert(effs []Effect) []Effect {
	out := make([]Effect, len(effs))
	for i, e := range effs {
		out[len(effs)-1-i] = e.Inverse()
	}
	return out
}

// applyEffect mutates counts in place.
func applyEffect(counts map[string]TaskCount, e Effect) {
	c := counts[e.ListID]
	switch e.Kind {
	case EffectIncrement:
		c.Total++
		if e.Completed {
			c.Completed++
		}
	case EffectDecrement:
		c.Total = max(c.Total-1, 0)
		if e.Completed {
			c.Completed = max(c.Completed-1, 0)
		}
	case EffectTransition:
		if e.WasCompleted == e.Completed {
			return
		}
		if e.Completed {
			c.Completed++
		} else {
			c.Completed = max(c.Completed-1, 0)
		}
	default:
		return
	}
	counts[e.ListID] = c.clamp()
}

// CountsFromSnapshot tallies tasks per list.
func CountsFromSnapshot(lists []service.ListWithTasks) map[string]TaskCount {
	out := make(map[string]TaskCount, len(lists))
	for _, l := range lists {
		var c TaskCount
		for _, t := range l.Tasks {
			c.Total++
			if t.Completed {
				c.Completed++
			}
		}
		out[l.ID] = c
	}
	return out
}
