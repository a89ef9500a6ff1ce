package model

import "time"

// NotAvailable is the sentinel value for an unanswerable question.
const NotAvailable = "N/A"

// Reference points at the page an answer was drawn from.
type Reference struct {
	PDFSHA1   string `json:"pdf_sha1"`
	PageIndex int    `json:"page_index"`
}

// Answer is one submission record.
type Answer struct {
	QuestionText string      `json:"question_text"`
	Value        any         `json:"value"`
	References   []Reference `json:"references"`
}

// Submission is the top-level document sent to the grading endpoint.
type Submission struct {
	TeamEmail      string   `json:"team_email"`
	SubmissionName string   `json:"submission_name"`
	Answers        []Answer `json:"answers"`
}

// Run records a completed answering run.
type Run struct {
	ID             string    `json:"id"`
	SubmissionName string    `json:"submission_name"`
	Questions      int       `json:"questions"`
	Answered       int       `json:"answered"`
	Payload        []byte    `json:"-"`
	UploadStatus   int       `json:"upload_status"`
	UploadBody     string    `json:"upload_body"`
	CreatedAt      time.Time `json:"created_at"`
}

// CountAnswered returns how many records carry a value other than N/A.
func CountAnswered(answers []Answer) int {
	n := 0
	for _, a := range answers {
		if s, ok := a.Value.(string); ok && s == NotAvailable {
			continue
		}
		n++
	}
	return n
}
