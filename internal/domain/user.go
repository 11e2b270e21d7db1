package domain

import "time"

// User is an account that owns projects.
type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"nome"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"data_criacao"`
	LastActivity time.Time `json:"ultima_atividade"`
}
