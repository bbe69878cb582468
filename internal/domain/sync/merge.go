package sync

import "learning-app-go/internal/domain/learning"

// MergeResult is the outcome of reconciling the local lesson table with a
// remote fetch. Added, Updated and Dropped are informational id lists.
type MergeResult struct {
	Lessons []learning.Lesson
	Added   []int64
	Updated []int64
	Dropped []int64
}

// MergeLessons applies the server-authoritative policy: the remote set fully
// replaces the local one, local-only lessons are dropped and remote fields win
// wholesale. The one exception is progress still owed to the server
// (pendingProgress, keyed by lesson id), which is re-applied on top of the
// remote row so an unsent local update is not silently lost.
// Duplicate remote ids keep their first occurrence.
func MergeLessons(local, remote []learning.Lesson, pendingProgress map[int64]float64) MergeResult {
	localIDs := make(map[int64]struct{}, len(local))
	for _, lesson := range local {
		localIDs[lesson.ID] = struct{}{}
	}

	result := MergeResult{
		Lessons: make([]learning.Lesson, 0, len(remote)),
		Added:   []int64{},
		Updated: []int64{},
		Dropped: []int64{},
	}

	seen := make(map[int64]struct{}, len(remote))
	for _, lesson := range remote {
		if lesson.ID != 0 {
			if _, dup := seen[lesson.ID]; dup {
				continue
			}
			seen[lesson.ID] = struct{}{}
		}

		if progress, ok := pendingProgress[lesson.ID]; ok && lesson.ID != 0 {
			lesson.Progress = progress
		}

		if _, ok := localIDs[lesson.ID]; ok && lesson.ID != 0 {
			result.Updated = append(result.Updated, lesson.ID)
		} else {
			result.Added = append(result.Added, lesson.ID)
		}
		result.Lessons = append(result.Lessons, lesson)
	}

	for _, lesson := range local {
		if _, ok := seen[lesson.ID]; !ok {
			result.Dropped = append(result.Dropped, lesson.ID)
		}
	}

	return result
}
