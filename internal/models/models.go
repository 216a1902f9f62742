// Package models defines core data structures for organisations, study programs,
// and the three synchronized knowledge resource kinds.
package models

import "time"

// TenantContext identifies the caller's organisation for every service call.
// It is constructed at the HTTP edge and passed explicitly; no service reads
// ambient request state.
type TenantContext struct {
	OrgID         int64
	IsSystemAdmin bool
}

// Organisation is the isolation boundary owning resources and study programs.
type Organisation struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// StudyProgram is a classification label owned by one organisation and
// attachable to resources. The remote index keys study programs by name.
type StudyProgram struct {
	ID    int64  `json:"id"`
	OrgID int64  `json:"orgId"`
	Name  string `json:"name"`
}

// Website is a crawled web page mirrored into the remote index.
// ContentHash is the fingerprint of the text last successfully pushed.
type Website struct {
	ID            string         `json:"id"`
	OrgID         int64          `json:"orgId"`
	Title         string         `json:"title"`
	Link          string         `json:"link"`
	ContentHash   string         `json:"-"`
	StudyPrograms []StudyProgram `json:"studyPrograms"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// Document is an uploaded file whose extracted text is mirrored into the
// remote index. Filename is the stored name on disk, OriginalFilename the
// name supplied at upload.
type Document struct {
	ID               string         `json:"id"`
	OrgID            int64          `json:"orgId"`
	Title            string         `json:"title"`
	Filename         string         `json:"-"`
	OriginalFilename string         `json:"originalFilename"`
	ContentHash      string         `json:"-"`
	StudyPrograms    []StudyProgram `json:"studyPrograms"`
	CreatedAt        time.Time      `json:"createdAt"`
	UpdatedAt        time.Time      `json:"updatedAt"`
}

// SampleQuestion is a curated question/answer pair mirrored into the remote index.
type SampleQuestion struct {
	ID            string         `json:"id"`
	OrgID         int64          `json:"orgId"`
	Topic         string         `json:"topic"`
	Question      string         `json:"question"`
	Answer        string         `json:"answer"`
	ContentHash   string         `json:"-"`
	StudyPrograms []StudyProgram `json:"studyPrograms"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// WebsiteInput is the input for creating or editing a website resource.
type WebsiteInput struct {
	Title           string  `json:"title"`
	Link            string  `json:"link"`
	StudyProgramIDs []int64 `json:"studyProgramIds"`
}

// DocumentInput is the input for creating or editing a document resource.
// The file itself is supplied separately on create.
type DocumentInput struct {
	Title           string  `json:"title"`
	StudyProgramIDs []int64 `json:"studyProgramIds"`
}

// SampleQuestionInput is the input for creating or editing a sample question.
type SampleQuestionInput struct {
	Topic           string  `json:"topic"`
	Question        string  `json:"question"`
	Answer          string  `json:"answer"`
	StudyProgramIDs []int64 `json:"studyProgramIds"`
}
