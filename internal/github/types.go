package github

import "time"

// FileContent is a decoded file read from the contents API.
type FileContent struct {
	Path    string
	SHA     string
	Content string
}

// UpsertResult reports what a file upsert did. Skipped is set when the
// remote blob already matched and no commit was made.
type UpsertResult struct {
	Path       string
	ContentSHA string
	CommitSHA  string
	Skipped    bool
}

// WorkflowRun is the subset of an Actions run the build loop needs.
type WorkflowRun struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	HeadSHA      string    `json:"head_sha"`
	Status       string    `json:"status"`
	Conclusion   string    `json:"conclusion"`
	HTMLURL      string    `json:"html_url"`
	ArtifactsURL string    `json:"artifacts_url"`
	CreatedAt    time.Time `json:"created_at"`
}

func (r *WorkflowRun) Completed() bool {
	return r != nil && r.Status == "completed"
}

func (r *WorkflowRun) Succeeded() bool {
	return r.Completed() && r.Conclusion == "success"
}

// Artifact is one uploaded build output of a run.
type Artifact struct {
	ID                 int64  `json:"id"`
	Name               string `json:"name"`
	SizeInBytes        int64  `json:"size_in_bytes"`
	ArchiveDownloadURL string `json:"archive_download_url"`
	Expired            bool   `json:"expired"`
}

// RunFilter narrows the latest-run lookup.
type RunFilter struct {
	HeadSHA string
	Branch  string
}

type contentResponse struct {
	Type     string `json:"type"`
	Path     string `json:"path"`
	SHA      string `json:"sha"`
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

type putContentRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	SHA     string `json:"sha,omitempty"`
	Branch  string `json:"branch,omitempty"`
}

type putContentResponse struct {
	Content struct {
		SHA string `json:"sha"`
	} `json:"content"`
	Commit struct {
		SHA string `json:"sha"`
	} `json:"commit"`
}

type runsResponse struct {
	TotalCount   int           `json:"total_count"`
	WorkflowRuns []WorkflowRun `json:"workflow_runs"`
}

type artifactsResponse struct {
	TotalCount int        `json:"total_count"`
	Artifacts  []Artifact `json:"artifacts"`
}

type errorResponse struct {
	Message string `json:"message"`
}
