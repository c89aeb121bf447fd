package dispatch

import "encoding/json"

// Event is the invocation payload: which App to authenticate as, where its
// key lives, and which workflow to trigger.
type Event struct {
	AppID          string                 `json:"app_id" validate:"required,numeric"`
	InstallationID string                 `json:"installation_id" validate:"required,numeric"`
	SecretName     string                 `json:"secret_name" validate:"required"`
	RepoOwner      string                 `json:"repo_owner" validate:"required"`
	RepoName       string                 `json:"repo_name" validate:"required"`
	WorkflowFile   string                 `json:"workflow_file" validate:"required,workflowfile"`
	Ref            string                 `json:"ref" validate:"required"`
	WorkflowInputs map[string]interface{} `json:"workflow_inputs,omitempty"`
	RegionName     string                 `json:"region_name,omitempty"`
	VerifyRef      bool                   `json:"verify_ref,omitempty"`
}

// Result is the uniform outcome record returned to the invoker. Every code
// path produces one; Trigger never returns an error.
type Result struct {
	Success    bool          `json:"success"`
	StatusCode int           `json:"status_code"`
	Message    string        `json:"message"`
	Errors     []interface{} `json:"errors"`
}

// MarshalJSON keeps the errors key present on API-reported failures, where
// it is always at least an empty list, and omits it entirely on the paths
// that carry no structured errors.
func (r Result) MarshalJSON() ([]byte, error) {
	type result Result
	if r.Errors == nil {
		return json.Marshal(struct {
			result
			Errors interface{} `json:"errors,omitempty"`
		}{result: result(r)})
	}
	return json.Marshal(result(r))
}

// dispatchBody is the workflow_dispatch request payload.
type dispatchBody struct {
	Ref    string                 `json:"ref"`
	Inputs map[string]interface{} `json:"inputs,omitempty"`
}

// apiError is the error envelope GitHub returns on a failed dispatch.
type apiError struct {
	Message string        `json:"message"`
	Errors  []interface{} `json:"errors"`
}
