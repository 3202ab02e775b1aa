package models

import "math"

// Progress is the read-side summary of a workflow's task set.
type Progress struct {
	Percent   int `json:"percent"`
	Completed int `json:"completed"`
	Total     int `json:"total"`
}

// ComputeProgress counts SUCCESS and SKIPPED tasks as completed and rounds the
// percentage half away from zero. An empty task set is 0%.
func ComputeProgress(tasks []*Task) Progress {
	progress := Progress{Total: len(tasks)}

	for _, task := range tasks {
		if task.Status.IsFinal() {
			progress.Completed++
		}
	}

	if progress.Total > 0 {
		progress.Percent = int(math.Round(float64(progress.Completed) / float64(progress.Total) * 100))
	}

	return progress
}
