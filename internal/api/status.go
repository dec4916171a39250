package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/pidone/internal/api/models"
	"github.com/smazurov/pidone/internal/reaper"
)

func (s *Server) registerStatusRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-commands",
		Method:      http.MethodGet,
		Path:        "/api/commands",
		Summary:     "List Commands",
		Description: "Persistent commands with their current pid, spawn count and restart policy",
		Tags:        []string{"commands"},
		Security:    withAuth(),
		Errors:      []int{401, 503},
	}, func(_ context.Context, _ *struct{}) (*models.CommandsResponse, error) {
		snap := s.options.Snapshot()
		if snap == nil {
			return nil, huma.Error503ServiceUnavailable("supervision loop has not started")
		}
		return &models.CommandsResponse{Body: commandsData(snap)}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "list-orphans",
		Method:      http.MethodGet,
		Path:        "/api/orphans",
		Summary:     "List Orphans",
		Description: "Orphaned descendants and how far their termination has progressed",
		Tags:        []string{"orphans"},
		Security:    withAuth(),
		Errors:      []int{401, 503},
	}, func(_ context.Context, _ *struct{}) (*models.OrphansResponse, error) {
		snap := s.options.Snapshot()
		if snap == nil {
			return nil, huma.Error503ServiceUnavailable("supervision loop has not started")
		}
		return &models.OrphansResponse{Body: orphansData(snap)}, nil
	})
}

func commandsData(snap *reaper.Snapshot) models.CommandsData {
	data := models.CommandsData{
		Commands: make([]models.CommandInfo, 0, len(snap.Commands)),
		Dropped:  make([]models.DroppedCommandInfo, 0, len(snap.Dropped)),
		Count:    len(snap.Commands),
	}
	for _, c := range snap.Commands {
		info := models.CommandInfo{
			Name:             c.Name,
			Path:             c.Path,
			Args:             c.Args,
			PID:              c.PID,
			Spawns:           c.Spawns,
			RestartOnSuccess: c.RestartOnSuccess,
			RestartOnError:   c.RestartOnError,
			RestartOnSignal:  c.RestartOnSignal,
		}
		if c.Limited {
			limit := c.SpawnLimit
			info.SpawnLimit = &limit
		}
		data.Commands = append(data.Commands, info)
	}
	for _, d := range snap.Dropped {
		data.Dropped = append(data.Dropped, models.DroppedCommandInfo{
			Name:    d.Name,
			LastPID: d.LastPID,
			Spawns:  d.Spawns,
			Code:    d.Code,
			Reason:  d.Reason,
			At:      d.At,
		})
	}
	return data
}

func orphansData(snap *reaper.Snapshot) models.OrphansData {
	data := models.OrphansData{
		Orphans: make([]models.OrphanInfo, 0, len(snap.Orphans)),
		Counts:  make(map[string]int, len(snap.OrphanCounts)),
	}
	for _, o := range snap.Orphans {
		info := models.OrphanInfo{PID: o.PID, Stage: o.Stage, Error: o.Error}
		if !o.KilledAt.IsZero() {
			killed := o.KilledAt
			info.KilledAt = &killed
		}
		data.Orphans = append(data.Orphans, info)
	}
	for stage, n := range snap.OrphanCounts {
		data.Counts[stage] = n
	}
	return data
}
