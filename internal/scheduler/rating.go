package scheduler

import "fmt"

// Rating is the user's assessment of recall quality for a single review.
type Rating int

const (
	RatingForgot Rating = iota + 1 // Complete failure to recall.
	RatingHard                     // Recalled with significant difficulty.
	RatingGood                     // Recalled with some effort.
	RatingEasy                     // Recalled effortlessly.
)

var ratingNames = [...]string{RatingForgot: "Forgot", RatingHard: "Hard", RatingGood: "Good", RatingEasy: "Easy"}

// String returns the rating name, or "Rating(n)" for invalid values.
func (r Rating) String() string {
	if r.IsValid() {
		return ratingNames[r]
	}
	return fmt.Sprintf("Rating(%d)", int(r))
}

// IsValid reports whether r is within the accepted 1..4 range.
func (r Rating) IsValid() bool {
	return r >= RatingForgot && r <= RatingEasy
}

// IsSuccess reports whether r counts as a successful recall (Good or Easy).
func (r Rating) IsSuccess() bool {
	return r >= RatingGood
}

// quality maps the 1-4 rating onto the 0-5 SM-2 quality scale.
func (r Rating) quality() int {
	switch r {
	case RatingForgot:
		return 0
	case RatingHard:
		return 2
	case RatingGood:
		return 4
	case RatingEasy:
		return 5
	}
	return 0
}
