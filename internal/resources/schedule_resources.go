package resources

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/meetslots/internal/server"
	"github.com/teemow/meetslots/internal/slots"
)

// Resource URIs.
const (
	SettingsURI         = "meetslots://settings"
	durationURIPrefix   = "meetslots://durations/"
	DurationURITemplate = durationURIPrefix + "{date}"
)

// settings is the public part of the booking configuration.
type settings struct {
	Timezone            string `json:"timezone"`
	WorkStart           string `json:"work_start"`
	WorkEnd             string `json:"work_end"`
	SlotDuration        int    `json:"slot_duration_minutes"`
	DefaultSlotDuration int    `json:"default_slot_duration_minutes"`
	ProposalCount       int    `json:"proposal_count"`
	ProposalOffsetDays  int    `json:"proposal_offset_days"`
	MaxLookaheadDays    int    `json:"max_lookahead_days"`
	Today               string `json:"today"`
}

// RegisterScheduleResources registers the booking settings resource and the
// per-day slot duration template.
func RegisterScheduleResources(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	settingsResource := mcp.NewResource(
		SettingsURI,
		"Booking Settings",
		mcp.WithResourceDescription("Working hours, time zone, slot durations and proposal settings"),
		mcp.WithMIMEType("application/json"),
	)

	s.AddResource(settingsResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleSettings(ctx, request, sc)
	})

	durationTemplate := mcp.NewResourceTemplate(
		DurationURITemplate,
		"Slot Duration",
		mcp.WithTemplateDescription("Slot duration in minutes configured for a day (YYYY-MM-DD)"),
		mcp.WithTemplateMIMEType("application/json"),
	)

	s.AddResourceTemplate(durationTemplate, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleDuration(ctx, request, sc)
	})

	return nil
}

func handleSettings(_ context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	svc := sc.BookingService()
	if svc == nil {
		return nil, fmt.Errorf("booking service is not configured")
	}

	cfg := svc.Config()
	return jsonContents(request.Params.URI, settings{
		Timezone:            cfg.Slots.Location.String(),
		WorkStart:           cfg.Slots.WorkStart.String(),
		WorkEnd:             cfg.Slots.WorkEnd.String(),
		SlotDuration:        cfg.Slots.SlotDuration,
		DefaultSlotDuration: cfg.Slots.DefaultSlotDuration,
		ProposalCount:       cfg.ProposalCount,
		ProposalOffsetDays:  cfg.ProposalOffsetDays,
		MaxLookaheadDays:    cfg.MaxLookaheadDays,
		Today:               svc.Today().String(),
	})
}

func handleDuration(ctx context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	svc := sc.BookingService()
	if svc == nil {
		return nil, fmt.Errorf("booking service is not configured")
	}

	raw, ok := strings.CutPrefix(request.Params.URI, durationURIPrefix)
	if !ok {
		return nil, fmt.Errorf("unexpected resource URI %q", request.Params.URI)
	}
	day, err := slots.ParseDate(raw)
	if err != nil {
		return nil, err
	}

	minutes, err := svc.SlotDuration(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("failed to load slot duration: %w", err)
	}

	return jsonContents(request.Params.URI, map[string]any{
		"date":             day.String(),
		"duration_minutes": minutes,
	})
}

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resource data: %w", err)
	}

	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(jsonData),
		},
	}, nil
}
