package model

import "time"

// Status is a workflow column. The wire values are fixed; the board
// renders columns in the order of Statuses.
type Status string

const (
	StatusBacklog    Status = "Backlog"
	StatusToDo       Status = "To Do"
	StatusInProgress Status = "In Progress"
	StatusReview     Status = "Review"
	StatusDone       Status = "Done"
)

// Statuses lists every column in board order.
var Statuses = []Status{StatusBacklog, StatusToDo, StatusInProgress, StatusReview, StatusDone}

func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

type Task struct {
	ID          string    `json:"id" bson:"-"`
	Board       string    `json:"board" bson:"board"`
	Title       string    `json:"title" bson:"title"`
	Description string    `json:"description" bson:"description"`
	Status      Status    `json:"status" bson:"status"`
	Revision    int64     `json:"revision" bson:"revision"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
}

// TaskPatch carries the field subset of a PUT. Nil means "leave as is".
// Revision, when set, turns the update into a compare-and-swap against the
// revision the caller read.
type TaskPatch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Status      *Status `json:"status,omitempty"`
	Revision    *int64  `json:"revision,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil
}

// ContentChange reports whether the patch touches title or description.
func (p TaskPatch) ContentChange() bool {
	return p.Title != nil || p.Description != nil
}

// StatusChange reports whether the patch moves the task to another column.
func (p TaskPatch) StatusChange() bool {
	return p.Status != nil
}
