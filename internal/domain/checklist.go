/**
 * @description
 * This file defines the Checklist and Task models. A checklist is the set of
 * tasks a user tracks for one calendar day; tasks are embedded in their
 * checklist and are never queried independently. There is at most one
 * checklist per (user, date), and once a checklist is checked in its task
 * list is frozen for history.
 */
package domain

import "time"

// DayFormat is the canonical calendar-day layout used for checklist keys.
const DayFormat = "2006-01-02"

// Task is a single entry in a day's checklist. Tasks are addressed by their
// stable index within the checklist; order is creation/display order.
type Task struct {
	Text        string `json:"text"`
	Completed   bool   `json:"completed"`
	CarriedOver bool   `json:"carriedOver"`
}

// Checklist holds a user's tasks for one calendar day.
type Checklist struct {
	ID         string
	UserID     int64
	Date       time.Time
	WeeklyGoal string
	CheckedIn  bool
	Tasks      []Task
	CreatedAt  time.Time
}

// CompletedCount returns how many tasks are marked complete.
func (c *Checklist) CompletedCount() int {
	n := 0
	for _, t := range c.Tasks {
		if t.Completed {
			n++
		}
	}
	return n
}

// IncompleteTexts returns the texts of all incomplete tasks, in order.
func (c *Checklist) IncompleteTexts() []string {
	var out []string
	for _, t := range c.Tasks {
		if !t.Completed {
			out = append(out, t.Text)
		}
	}
	return out
}

// HasTaskText reports whether a task with the given text already exists.
// Carry-over and merge de-duplicate on text.
func (c *Checklist) HasTaskText(text string) bool {
	for _, t := range c.Tasks {
		if t.Text == text {
			return true
		}
	}
	return false
}

// CheckInSummary is the result of closing out a checklist.
type CheckInSummary struct {
	Completed int
	Total     int
	Message   string
}
