package model

import (
	"errors"
	"fmt"
)

// JobState is the local view of a remote job within one interaction.
type JobState string

const (
	StateNoJob        JobState = "no_job"
	StateSubmitted    JobState = "submitted"
	StateCompleted    JobState = "completed"
	StateNotCompleted JobState = "not_completed"
)

// RemoteStatusCompleted is the only status the result endpoint reports for a finished job.
const RemoteStatusCompleted = "completed"

var ErrInvalidTransition = errors.New("invalid job state transition")

// ExtractedFields maps a field name (truck number, carrier name, ...) to its extracted value.
type ExtractedFields map[string]any

// Job is the record of a single process-file / result round trip.
// It is never stored; it lives for the duration of one request.
type Job struct {
	ID            string          `json:"job_id,omitempty"`
	Filename      string          `json:"filename"`
	State         JobState        `json:"state"`
	RemoteStatus  string          `json:"status,omitempty"`
	ExtractedData ExtractedFields `json:"extracted_data,omitempty"`
}

func NewJob(filename string) *Job {
	return &Job{Filename: filename, State: StateNoJob}
}

// Submit records the job id returned by the process-file call.
func (j *Job) Submit(id string) error {
	if j.State != StateNoJob {
		return fmt.Errorf("%w: submit from %s", ErrInvalidTransition, j.State)
	}
	if id == "" {
		return fmt.Errorf("%w: empty job id", ErrInvalidTransition)
	}
	j.ID = id
	j.State = StateSubmitted
	return nil
}

// Complete stores the extracted fields of a finished job.
func (j *Job) Complete(fields ExtractedFields) error {
	if j.State != StateSubmitted {
		return fmt.Errorf("%w: complete from %s", ErrInvalidTransition, j.State)
	}
	if fields == nil {
		fields = ExtractedFields{}
	}
	j.RemoteStatus = RemoteStatusCompleted
	j.ExtractedData = fields
	j.State = StateCompleted
	return nil
}

// MarkNotCompleted ends the interaction without a result. There is no way back to Submitted.
func (j *Job) MarkNotCompleted(remoteStatus string) error {
	if j.State != StateSubmitted {
		return fmt.Errorf("%w: mark not completed from %s", ErrInvalidTransition, j.State)
	}
	j.RemoteStatus = remoteStatus
	j.State = StateNotCompleted
	return nil
}

// Terminal reports whether the job has reached a dead end for this interaction.
func (j *Job) Terminal() bool {
	return j.State == StateCompleted || j.State == StateNotCompleted
}
