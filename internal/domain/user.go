package domain

import "time"

// User is the per-user account and profile document.
// PK: user_id (the auth identity id). Username is lower-cased and unique once set.
type User struct {
	UserID           string                 `json:"id" dynamodbav:"user_id"`
	Email            string                 `json:"email" dynamodbav:"email"`
	Name             string                 `json:"name" dynamodbav:"name"`
	Username         *string                `json:"username" dynamodbav:"username,omitempty"`
	ProfilePic       string                 `json:"profilePic" dynamodbav:"profile_pic"`
	Bio              string                 `json:"bio" dynamodbav:"bio"`
	University       string                 `json:"university" dynamodbav:"university"`
	YearLevel        string                 `json:"yearLevel" dynamodbav:"year_level"`
	StudyPreferences map[string]interface{} `json:"studyPreferences" dynamodbav:"study_preferences"`
	StudentVerified  *bool                  `json:"studentVerified" dynamodbav:"student_verified"`
	ActiveMatch      *string                `json:"activeMatch" dynamodbav:"active_match"`
	EmailVerified    bool                   `json:"emailVerified" dynamodbav:"email_verified"`
	CreatedAt        time.Time              `json:"createdAt" dynamodbav:"created_at"`
	UpdatedAt        time.Time              `json:"updatedAt" dynamodbav:"updated_at"`
	Version          int64                  `json:"-" dynamodbav:"version"`
}

// HasIdentity reports whether the one-time "complete your profile" step is done.
func (u *User) HasIdentity() bool {
	return u.Name != "" || (u.Username != nil && *u.Username != "")
}

// CurrentUsername returns the claimed username or "".
func (u *User) CurrentUsername() string {
	if u.Username == nil {
		return ""
	}
	return *u.Username
}

// NewVerifiedUser returns the document written the first time a user verifies their email.
func NewVerifiedUser(userID, email string, now time.Time) *User {
	return &User{
		UserID:           userID,
		Email:            email,
		StudyPreferences: map[string]interface{}{},
		EmailVerified:    true,
		CreatedAt:        now,
		UpdatedAt:        now,
		Version:          1,
	}
}

// UpdateProfileRequest is the body of POST /update-user-details.
// Only listed fields change; nil means "leave as is".
type UpdateProfileRequest struct {
	Name             *string                `json:"name" validate:"omitnil,min=1,max=80"`
	Username         *string                `json:"username" validate:"omitnil,username"`
	ProfilePic       *string                `json:"profilePic" validate:"omitempty,max=2048"`
	Bio              *string                `json:"bio" validate:"omitempty,max=500"`
	University       *string                `json:"university" validate:"omitempty,max=120"`
	YearLevel        *string                `json:"yearLevel" validate:"omitempty,max=20"`
	StudyPreferences map[string]interface{} `json:"studyPreferences" validate:"omitempty,max=50"`
	ActiveMatch      *string                `json:"activeMatch" validate:"omitempty,max=128"`
}
