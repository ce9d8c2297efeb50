package config

import "github.com/Paintersrp/protonctl/internal/game"

// Record is the persisted launcher configuration.
type Record struct {
	// BaseRuntimeDirectory is scanned for installed Proton versions.
	BaseRuntimeDirectory string            `yaml:"proton_root" json:"proton_root"`
	Launches             []game.Descriptor `yaml:"games" json:"games"`
}

// Default returns the record used when no configuration file exists.
func Default() *Record {
	return &Record{Launches: []game.Descriptor{}}
}

// Find returns the descriptor with the given name.
func (r *Record) Find(name string) (game.Descriptor, bool) {
	if r == nil {
		return game.Descriptor{}, false
	}
	for _, d := range r.Launches {
		if d.Name == name {
			return d, true
		}
	}
	return game.Descriptor{}, false
}

// Upsert replaces the descriptor with the same ID, or appends it. A zero ID
// is assigned the next free one.
func (r *Record) Upsert(desc game.Descriptor) game.Descriptor {
	if desc.ID == 0 {
		desc.ID = r.nextID()
	}
	for i := range r.Launches {
		if r.Launches[i].ID == desc.ID {
			r.Launches[i] = desc
			return desc
		}
	}
	r.Launches = append(r.Launches, desc)
	return desc
}

// Remove deletes the descriptor with the given ID and reports whether one was
// found.
func (r *Record) Remove(id uint64) bool {
	for i := range r.Launches {
		if r.Launches[i].ID == id {
			r.Launches = append(r.Launches[:i], r.Launches[i+1:]...)
			return true
		}
	}
	return false
}

func (r *Record) nextID() uint64 {
	var max uint64
	for _, d := range r.Launches {
		if d.ID > max {
			max = d.ID
		}
	}
	return max + 1
}

func (r *Record) normalize() {
	if r.Launches == nil {
		r.Launches = []game.Descriptor{}
	}
}
