package angelos

// AddWebsiteRequest is the payload for indexing a new website.
type AddWebsiteRequest struct {
	ID            string   `json:"id"`
	OrgID         int64    `json:"orgId"`
	Title         string   `json:"title"`
	Link          string   `json:"link"`
	StudyPrograms []string `json:"studyPrograms"`
	Content       string   `json:"content"`
	Type          string   `json:"type"`
}

// EditWebsiteRequest updates a website's metadata in the index.
type EditWebsiteRequest struct {
	Title         string   `json:"title"`
	StudyPrograms []string `json:"studyPrograms"`
	OrgID         int64    `json:"orgId"`
}

// AddDocumentRequest is the payload for indexing a new document.
type AddDocumentRequest struct {
	ID            string   `json:"id"`
	OrgID         int64    `json:"orgId"`
	Title         string   `json:"title"`
	StudyPrograms []string `json:"studyPrograms"`
	Content       string   `json:"content"`
}

// EditDocumentRequest updates a document's metadata in the index.
type EditDocumentRequest struct {
	Title         string   `json:"title"`
	StudyPrograms []string `json:"studyPrograms"`
	OrgID         int64    `json:"orgId"`
}

// AddSampleQuestionRequest is the payload for indexing a new sample question.
type AddSampleQuestionRequest struct {
	ID            string   `json:"id"`
	OrgID         int64    `json:"orgId"`
	Topic         string   `json:"topic"`
	Question      string   `json:"question"`
	Answer        string   `json:"answer"`
	StudyPrograms []string `json:"studyPrograms"`
}

// EditSampleQuestionRequest updates a sample question in the index.
type EditSampleQuestionRequest struct {
	Topic         string   `json:"topic"`
	Question      string   `json:"question"`
	Answer        string   `json:"answer"`
	StudyPrograms []string `json:"studyPrograms"`
	OrgID         int64    `json:"orgId"`
}

// refreshContentRequest carries re-extracted content for an existing entry.
type refreshContentRequest struct {
	Content string `json:"content"`
}
