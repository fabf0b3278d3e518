// Package directory holds the course, material and user collaborators the
// assessment subsystem reads from. Course and material authoring live
// elsewhere; this package only exposes what quizzes and progress need.
package directory

import "time"

type Role string

const (
	RoleStudent    Role = "student"
	RoleInstructor Role = "instructor"
	RoleAdmin      Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleInstructor, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID              string    `json:"id"`
	Subject         string    `json:"-"` // stable id from the token issuer
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	Avatar          string    `json:"avatar"`
	Role            Role      `json:"role"`
	EnrolledCourses []string  `json:"enrolledCourses"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Profile is the minimal identity shown next to graded attempts.
type Profile struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Avatar string `json:"avatar"`
}

func (u User) Profile() Profile {
	return Profile{ID: u.ID, Name: u.Name, Email: u.Email, Avatar: u.Avatar}
}

type Course struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	InstructorID string    `json:"instructor"`
	MaterialIDs  []string  `json:"materials"` // ordered by position
	CreatedAt    time.Time `json:"createdAt"`
}

type Material struct {
	ID       string `json:"id"`
	CourseID string `json:"course"`
	Title    string `json:"title"`
	FileURL  string `json:"fileUrl"`
	FileType string `json:"fileType"`
}
