package mcp

// IndexWorkspaceInput defines the input schema for index_workspace.
type IndexWorkspaceInput struct {
	Workspace string `json:"workspace,omitempty" jsonschema:"workspace name from the registry, default workspace when omitted"`
}

// IndexWorkspaceOutput defines the output schema for index_workspace.
type IndexWorkspaceOutput struct {
	JobID   string `json:"job_id" jsonschema:"identifier to poll with job_status"`
	Message string `json:"message" jsonschema:"human-readable confirmation"`
}

// SearchInput defines the input schema for search_workspace.
type SearchInput struct {
	Query          string `json:"query" jsonschema:"full-text query over titles, content and properties"`
	Workspace      string `json:"workspace,omitempty" jsonschema:"workspace name, default workspace when omitted"`
	Limit          int    `json:"limit,omitempty" jsonschema:"maximum number of results, default 10"`
	Offset         int    `json:"offset,omitempty" jsonschema:"number of results to skip for pagination"`
	IncludeContent bool   `json:"include_content,omitempty" jsonschema:"include full markdown content in results"`
}

// GlobInput defines the input schema for glob_workspace.
type GlobInput struct {
	Pattern        string `json:"pattern" jsonschema:"glob pattern matched against slugs or titles, e.g. /projects/*"`
	Field          string `json:"field,omitempty" jsonschema:"column to match: slug (default) or title"`
	Workspace      string `json:"workspace,omitempty" jsonschema:"workspace name, default workspace when omitted"`
	Limit          int    `json:"limit,omitempty" jsonschema:"maximum number of results, default 10"`
	Offset         int    `json:"offset,omitempty" jsonschema:"number of results to skip for pagination"`
	IncludeContent bool   `json:"include_content,omitempty" jsonschema:"include full markdown content in results"`
}

// SearchOutput defines the output schema for search and glob tools.
type SearchOutput struct {
	Results    []ResultOutput `json:"results" jsonschema:"matched pages and databases"`
	TotalCount int            `json:"total_count" jsonschema:"total matches before pagination"`
	HasMore    bool           `json:"has_more" jsonschema:"whether more results are available"`
}

// ResultOutput is a single search or glob match.
type ResultOutput struct {
	ID          string  `json:"id" jsonschema:"source object id"`
	Type        string  `json:"type" jsonschema:"record type: page, database or database_page"`
	Title       string  `json:"title" jsonschema:"page or database title"`
	Slug        string  `json:"slug,omitempty" jsonschema:"hierarchical path, empty for database rows"`
	Content     string  `json:"content,omitempty" jsonschema:"markdown content when requested"`
	LastUpdated string  `json:"last_updated,omitempty" jsonschema:"last edit timestamp"`
	Rank        float64 `json:"rank,omitempty" jsonschema:"relevance score, higher is better"`
}

// ViewPageInput defines the input schema for view_page.
type ViewPageInput struct {
	Slug      string `json:"slug" jsonschema:"slug path of the page or database, e.g. /projects/alpha"`
	Workspace string `json:"workspace,omitempty" jsonschema:"workspace name, default workspace when omitted"`
}

// ViewPageOutput defines the output schema for view_page.
type ViewPageOutput struct {
	Type        string `json:"type" jsonschema:"record type: page or database"`
	Title       string `json:"title" jsonschema:"page or database title"`
	Slug        string `json:"slug" jsonschema:"hierarchical path"`
	Content     string `json:"content" jsonschema:"markdown content, or schema JSON for databases"`
	LastUpdated string `json:"last_updated" jsonschema:"last edit timestamp"`
}

// ListWorkspaceInput defines the input schema for list_workspace.
type ListWorkspaceInput struct {
	Prefix    string `json:"prefix,omitempty" jsonschema:"slug prefix to list under, default /"`
	MaxDepth  int    `json:"max_depth,omitempty" jsonschema:"tree depth cap, default 2"`
	Workspace string `json:"workspace,omitempty" jsonschema:"workspace name, default workspace when omitted"`
}

// ListWorkspaceOutput defines the output schema for list_workspace.
type ListWorkspaceOutput struct {
	Tree string `json:"tree" jsonschema:"indented slug tree, ++ marks truncated branches"`
}

// JobStatusInput defines the input schema for job_status.
type JobStatusInput struct {
	JobID string `json:"job_id" jsonschema:"job identifier returned by index_workspace"`
}

// JobStatusOutput defines the output schema for job_status.
type JobStatusOutput struct {
	JobID     string `json:"job_id"`
	State     string `json:"state" jsonschema:"START, PROCESSING, END or ERROR"`
	Message   string `json:"message,omitempty"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time,omitempty"`
}

// ListJobsInput defines the input schema for list_jobs.
type ListJobsInput struct {
	Limit  int    `json:"limit,omitempty" jsonschema:"maximum number of jobs, default 10"`
	Origin string `json:"origin,omitempty" jsonschema:"filter by job origin: cli or mcp, all when omitted"`
}

// ListJobsOutput defines the output schema for list_jobs.
type ListJobsOutput struct {
	Jobs []JobStatusOutput `json:"jobs" jsonschema:"recent jobs, newest first"`
}
