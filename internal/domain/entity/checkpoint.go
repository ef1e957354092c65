package entity

import "time"

// Checkpoint is the persisted part of a conversation run. The bound model
// is never stored; it is rebuilt when a run resumes.
type Checkpoint struct {
	ThreadID  string    `json:"thread_id" bson:"_id"`
	Messages  []Message `json:"messages" bson:"messages"`
	Next      string    `json:"next" bson:"next"`
	Step      int       `json:"step" bson:"step"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

func (c Checkpoint) Clone() Checkpoint {
	c.Messages = CloneMessages(c.Messages)
	return c
}
