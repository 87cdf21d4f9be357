package statusapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/jpopelka/dist-git-to-source-git/pkg/runstore"
)

// HealthOutput is the response for the health check
type HealthOutput struct {
	Body struct {
		Status string `json:"status" example:"ok" doc:"Health status"`
	}
}

// ListRunsInput defines the input for listing a spec's runs
type ListRunsInput struct {
	Spec  string `path:"spec" doc:"Schedule spec name"`
	Limit int    `query:"limit" doc:"Maximum number of records" required:"false"`
}

// ListRunsOutput is the response for listing a spec's runs
type ListRunsOutput struct {
	Body struct {
		Runs []runstore.Record `json:"runs" doc:"Run records, newest first"`
	}
}

// LastRunOutput is the response for the latest run of a spec
type LastRunOutput struct {
	Body runstore.Record
}

// Register wires all routes onto the API.
func Register(api huma.API, store runstore.Store) {
	huma.Register(api, huma.Operation{
		OperationID: "health-check",
		Method:      http.MethodGet,
		Path:        "/api/health",
		Summary:     "Health check",
		Tags:        []string{"General"},
	}, func(ctx context.Context, input *struct{}) (*HealthOutput, error) {
		resp := &HealthOutput{}
		resp.Body.Status = "ok"
		return resp, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-runs",
		Method:      http.MethodGet,
		Path:        "/api/runs/{spec}",
		Summary:     "List runs for a schedule",
		Description: "Get recorded check-updates runs for a schedule spec, newest first",
		Tags:        []string{"Runs"},
	}, func(ctx context.Context, input *ListRunsInput) (*ListRunsOutput, error) {
		records, err := store.List(ctx, input.Spec, input.Limit)
		if err != nil {
			return nil, huma.Error500InternalServerError(fmt.Sprintf("failed to list runs: %v", err))
		}

		resp := &ListRunsOutput{}
		resp.Body.Runs = records
		if resp.Body.Runs == nil {
			resp.Body.Runs = []runstore.Record{}
		}
		return resp, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "last-run",
		Method:      http.MethodGet,
		Path:        "/api/runs/{spec}/last",
		Summary:     "Latest run for a schedule",
		Tags:        []string{"Runs"},
	}, func(ctx context.Context, input *ListRunsInput) (*LastRunOutput, error) {
		rec, err := store.Last(ctx, input.Spec)
		if err == runstore.ErrNotFound {
			return nil, huma.Error404NotFound(fmt.Sprintf("no runs recorded for %q", input.Spec))
		}
		if err != nil {
			return nil, huma.Error500InternalServerError(fmt.Sprintf("failed to load run: %v", err))
		}
		return &LastRunOutput{Body: *rec}, nil
	})
}
