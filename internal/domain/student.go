package domain

import "regexp"

var studentEmail = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.edu\.ph$`)

// IsStudentEmail reports whether email belongs to a Philippine academic domain.
// The ".edu.ph" suffix match is case-sensitive.
func IsStudentEmail(email string) bool {
	return studentEmail.MatchString(email)
}
