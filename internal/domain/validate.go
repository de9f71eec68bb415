package domain

import "fmt"

const (
	minTextLen  = 10
	maxTextLen  = 5000
	maxTitleLen = 200
)

// ValidateNewReview checks caller-supplied content and collects every
// violation rather than stopping at the first. Returns nil when valid.
func ValidateNewReview(in NewReviewInput) *ValidationError {
	var v []string
	if in.SupplierID == "" {
		v = append(v, "supplierId is required")
	}
	if in.AuthorID == "" {
		v = append(v, "authorId is required")
	}
	if in.Rating == 0 {
		v = append(v, "rating is required")
	} else if in.Rating < 1 || in.Rating > 5 {
		v = append(v, fmt.Sprintf("rating must be between 1 and 5, got %d", in.Rating))
	}
	if n := len([]rune(in.Text)); in.Text != "" && (n < minTextLen || n > maxTextLen) {
		v = append(v, fmt.Sprintf("text must be between %d and %d characters", minTextLen, maxTextLen))
	}
	if len([]rune(in.Title)) > maxTitleLen {
		v = append(v, fmt.Sprintf("title must be at most %d characters", maxTitleLen))
	}
	if len(v) == 0 {
		return nil
	}
	return &ValidationError{Violations: v}
}
