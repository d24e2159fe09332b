package models

import (
	"maps"
	"slices"
	"time"
)

// JobStatus is the lifecycle state of a pipeline job.
type JobStatus string

const (
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusError      JobStatus = "error"
)

// Terminal reports whether no further stage may run.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusError
}

// Product is one distinct item identified in the video.
type Product struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// JobState is the single mutable record of one pipeline run. The executor owns
// it for the lifetime of the run; everybody else sees copies made by Clone.
type JobState struct {
	JobID       string    `json:"job_id"`
	VideoURL    string    `json:"video_url"`
	Status      JobStatus `json:"status"`
	CurrentStep string    `json:"current_step"`
	Progress    int       `json:"progress"`
	Error       *string   `json:"error,omitempty"`

	VideoPath string   `json:"video_path,omitempty"`
	Frames    []string `json:"frames"`

	Products   []Product         `json:"products"`
	BestFrames map[string]string `json:"best_frames"`

	SegmentationMasks  map[string]string `json:"segmentation_masks"`
	SegmentedImages    map[string]string `json:"segmented_images"`
	SegmentationErrors map[string]string `json:"segmentation_errors"`

	EnhancedImages    map[string][]string `json:"enhanced_images"`
	EnhancementErrors map[string]string   `json:"enhancement_errors"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewJobState returns the initial record for a freshly submitted job.
func NewJobState(jobID, videoURL string) *JobState {
	now := time.Now().UTC()
	return &JobState{
		JobID:              jobID,
		VideoURL:           videoURL,
		Status:             JobStatusProcessing,
		CurrentStep:        "Starting...",
		Frames:             []string{},
		Products:           []Product{},
		BestFrames:         map[string]string{},
		SegmentationMasks:  map[string]string{},
		SegmentedImages:    map[string]string{},
		SegmentationErrors: map[string]string{},
		EnhancedImages:     map[string][]string{},
		EnhancementErrors:  map[string]string{},
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// Clone returns a deep copy safe to hand to readers while the run continues.
func (s *JobState) Clone() JobState {
	c := *s
	if s.Error != nil {
		msg := *s.Error
		c.Error = &msg
	}
	c.Frames = slices.Clone(s.Frames)
	c.Products = slices.Clone(s.Products)
	c.BestFrames = maps.Clone(s.BestFrames)
	c.SegmentationMasks = maps.Clone(s.SegmentationMasks)
	c.SegmentedImages = maps.Clone(s.SegmentedImages)
	c.SegmentationErrors = maps.Clone(s.SegmentationErrors)
	c.EnhancementErrors = maps.Clone(s.EnhancementErrors)
	if s.EnhancedImages != nil {
		c.EnhancedImages = make(map[string][]string, len(s.EnhancedImages))
		for k, v := range s.EnhancedImages {
			c.EnhancedImages[k] = slices.Clone(v)
		}
	}
	return c
}

// JobStatusView is the polling projection of a JobState.
type JobStatusView struct {
	JobID       string    `json:"job_id"`
	Status      JobStatus `json:"status"`
	CurrentStep string    `json:"current_step"`
	Progress    int       `json:"progress"`
	Error       *string   `json:"error,omitempty"`
}

// JobResults is the projection returned once a job has completed.
type JobResults struct {
	JobID              string              `json:"job_id"`
	Status             JobStatus           `json:"status"`
	Products           []Product           `json:"products"`
	BestFrames         map[string]string   `json:"best_frames"`
	SegmentedImages    map[string]string   `json:"segmented_images"`
	EnhancedImages     map[string][]string `json:"enhanced_images"`
	SegmentationErrors map[string]string   `json:"segmentation_errors"`
	EnhancementErrors  map[string]string   `json:"enhancement_errors"`
}

func (s *JobState) StatusView() JobStatusView {
	v := JobStatusView{
		JobID:       s.JobID,
		Status:      s.Status,
		CurrentStep: s.CurrentStep,
		Progress:    s.Progress,
	}
	if s.Error != nil {
		msg := *s.Error
		v.Error = &msg
	}
	return v
}

func (s *JobState) Results() JobResults {
	c := s.Clone()
	return JobResults{
		JobID:              c.JobID,
		Status:             c.Status,
		Products:           c.Products,
		BestFrames:         c.BestFrames,
		SegmentedImages:    c.SegmentedImages,
		EnhancedImages:     c.EnhancedImages,
		SegmentationErrors: c.SegmentationErrors,
		EnhancementErrors:  c.EnhancementErrors,
	}
}
