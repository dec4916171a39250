package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/dustin/go-humanize"

	"github.com/smazurov/pidone/internal/api/models"
	"github.com/smazurov/pidone/internal/version"
)

func (s *Server) registerSystemRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "health-check",
		Method:      http.MethodGet,
		Path:        "/api/health",
		Summary:     "Health",
		Description: "Check that the supervision loop has published state",
		Tags:        []string{"health"},
		Security:    []map[string][]string{},
		Errors:      []int{503},
	}, func(_ context.Context, _ *struct{}) (*models.HealthResponse, error) {
		snap := s.options.Snapshot()
		if snap == nil {
			return nil, huma.Error503ServiceUnavailable("supervision loop has not started")
		}
		return &models.HealthResponse{
			Body: models.HealthData{
				Status:   "ok",
				Message:  "API is healthy",
				PID:      s.options.PID,
				Started:  snap.Started,
				Uptime:   humanize.Time(snap.Started),
				Children: snap.KnownChildren,
				Reaped:   snap.Reaped,
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-version",
		Method:      http.MethodGet,
		Path:        "/api/version",
		Summary:     "Version",
		Description: "Get application version information",
		Tags:        []string{"system"},
		Security:    []map[string][]string{},
	}, func(_ context.Context, _ *struct{}) (*models.VersionResponse, error) {
		info := version.Get()
		return &models.VersionResponse{
			Body: models.VersionData{
				Version:   info.Version,
				GitCommit: info.GitCommit,
				BuildDate: info.BuildDate,
				Modified:  info.Modified,
				GoVersion: info.GoVersion,
				Platform:  info.Platform,
			},
		}, nil
	})
}
