package models

import "time"

// AskRecord is one answered question, kept in the history log.
type AskRecord struct {
	ID                int64     `json:"id"`
	UploadNo          string    `json:"upload_no"`
	Question          string    `json:"question"`
	ClarifiedQuestion string    `json:"clarified_question"`
	Answer            string    `json:"answer"`
	CreatedAt         time.Time `json:"created_at"`
}
