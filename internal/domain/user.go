package domain

import "time"

// RegistrationMethod — способ, которым был создан аккаунт.
type RegistrationMethod string

const (
	RegistrationEmail  RegistrationMethod = "email"
	RegistrationGoogle RegistrationMethod = "google"
)

// User описывает зарегистрированного покупателя.
type User struct {
	ID                 int64
	Email              string
	Username           string
	FirstName          string
	LastName           string
	PasswordHash       string
	ProfilePictureURL  string
	RegistrationMethod RegistrationMethod
	CreatedAt          time.Time
}
