package domain

import "time"

// Decision is the outcome of a single reminder check
type Decision struct {
	Workspace  string
	Stat       DiffStat
	Threshold  int
	MutedUntil *time.Time
	Remind     bool
	CheckedAt  time.Time
}

// IsMuted returns true if the mute window was still open at check time
func (d *Decision) IsMuted() bool {
	return d.MutedUntil != nil && d.CheckedAt.Before(*d.MutedUntil)
}

// Over returns how many lines the workspace is past its threshold
func (d *Decision) Over() int {
	if over := d.Stat.Total() - d.Threshold; over > 0 {
		return over
	}
	return 0
}

// Reminder is what notifiers deliver when a check fires
type Reminder struct {
	Workspace  string
	Branch     string
	Stat       DiffStat
	Threshold  int
	Suggestion string // Optional commit message, empty when disabled
	At         time.Time
}
