package pipeline

import (
	"fmt"
	"math/rand"
)

// newAccessKey builds the one-time capability token for a candidate's phone
// interview. Uniqueness is enforced by the compound (seeker, job post)
// structure, not by the random suffix alone; the suffix only keeps keys
// unguessable across re-creations.
func newAccessKey(jobSeekerID, jobPostID string) string {
	return fmt.Sprintf("%s-%s-%06d", jobSeekerID, jobPostID, rand.Intn(1_000_000))
}
