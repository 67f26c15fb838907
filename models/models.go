package models

import (
	"time"
)

// AssistantID is the reserved user id of the AI assistant. It is never issued to a real user.
const AssistantID = 0

type UserType string

const (
	UserTypeUser     UserType = "user"
	UserTypeBusiness UserType = "business"
)

type User struct {
	ID           int      `json:"id"`
	Username     string   `json:"username"`
	PasswordHash []byte   `json:"-"`
	Type         UserType `json:"type"`
	Name         string   `json:"name,omitempty"`
}

// IndustryRules carries the optional matching hints a business attaches to its profile.
type IndustryRules struct {
	Keywords        []string `json:"keywords,omitempty"`
	Priority        *float64 `json:"priority,omitempty"`
	Requirements    []string `json:"requirements,omitempty"`
	Specializations []string `json:"specializations,omitempty"`
}

// Business is a business profile and the candidate unit for query matching.
// ID is the sole correlation key between oracle output and candidates.
type Business struct {
	ID            int            `json:"id"`
	UserID        int            `json:"userId"`
	Description   string         `json:"description"`
	Category      string         `json:"category"`
	Location      string         `json:"location"`
	Services      []string       `json:"services,omitempty"`
	IndustryRules *IndustryRules `json:"industryRules,omitempty"`
}

type Message struct {
	ID            int       `json:"id"`
	FromID        int       `json:"fromId"`
	ToID          int       `json:"toId"`
	Content       string    `json:"content"`
	Timestamp     time.Time `json:"timestamp"`
	IsAiAssistant bool      `json:"isAiAssistant"`
}

type NewUser struct {
	Username string   `json:"username"`
	Password string   `json:"password"`
	Type     UserType `json:"type"`
	Name     string   `json:"name,omitempty"`
}

type NewBusiness struct {
	Description   string         `json:"description"`
	Category      string         `json:"category"`
	Location      string         `json:"location"`
	Services      []string       `json:"services,omitempty"`
	IndustryRules *IndustryRules `json:"industryRules,omitempty"`
}

type NewMessage struct {
	FromID        int    `json:"fromId"`
	ToID          int    `json:"toId"`
	Content       string `json:"content"`
	IsAiAssistant bool   `json:"isAiAssistant,omitempty"`
}

// Category is an entry of the service category catalogue used by the classifier.
type Category struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Emergency is the outcome of the emergency classifier.
type Emergency struct {
	IsEmergency bool   `json:"isEmergency"`
	Reason      string `json:"reason,omitempty"`
}
