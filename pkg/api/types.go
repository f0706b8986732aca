package api

import (
	"github.com/ssargent/qsolog/pkg/adif"
	"github.com/ssargent/qsolog/pkg/qso"
)

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ServerConfig holds configuration for the API server
type ServerConfig struct {
	Port int
	Bind string
	// APIKey protects /api/v1. An empty key disables the check.
	APIKey string
	// MaxImportBytes caps the size of an uploaded ADIF document.
	MaxImportBytes int64
}

// ImportResponse is returned by POST /api/v1/import.
type ImportResponse struct {
	adif.ImportResult
	Summary string `json:"summary"`
}

// ContactList is returned by GET /api/v1/contacts.
type ContactList struct {
	Contacts []qso.Contact `json:"contacts"`
	Total    int           `json:"total"`
}
