package tools

import (
	"context"
	"encoding/json"
	"fmt"
)

// RegisterMeetingTools registers the meeting-facing query tools
// (meeting list/detail, upcoming meetings, transcript, summary)
// against repo.
func RegisterMeetingTools(r *Registry, repo KGRepository) {
	r.Register(Meta{
		Name:        "list_meetings",
		Description: "List meetings visible to the caller.",
		Category:    CategoryQuery,
		Params:      map[string]ParamSpec{},
		Fn: func(ctx context.Context, args map[string]interface{}) (string, error) {
			userID, _ := CallerUserID(ctx)
			meetings, err := repo.ListMeetings(ctx, userID)
			if err != nil {
				return "", fmt.Errorf("list_meetings: %w", err)
			}
			return marshalToolResult(meetings)
		},
	})

	r.Register(Meta{
		Name:        "get_meeting_detail",
		Description: "Get details for a specific meeting by id.",
		Category:    CategoryQuery,
		Params: map[string]ParamSpec{
			"meeting_id": {Type: "string", Description: "Meeting UUID", Required: true},
		},
		Fn: func(ctx context.Context, args map[string]interface{}) (string, error) {
			id, _ := args["meeting_id"].(string)
			detail, err := repo.GetMeeting(ctx, id)
			if err != nil {
				return "", fmt.Errorf("get_meeting_detail: %w", err)
			}
			return marshalToolResult(detail)
		},
	})

	r.Register(Meta{
		Name:        "upcoming_meetings",
		Description: "List the caller's upcoming scheduled meetings.",
		Category:    CategoryQuery,
		Params:      map[string]ParamSpec{},
		Fn: func(ctx context.Context, args map[string]interface{}) (string, error) {
			userID, _ := CallerUserID(ctx)
			meetings, err := repo.UpcomingMeetings(ctx, userID)
			if err != nil {
				return "", fmt.Errorf("upcoming_meetings: %w", err)
			}
			return marshalToolResult(meetings)
		},
	})

	r.Register(Meta{
		Name:        "meeting_transcript",
		Description: "Fetch the full transcript text for a meeting.",
		Category:    CategoryQuery,
		Params: map[string]ParamSpec{
			"meeting_id": {Type: "string", Description: "Meeting UUID", Required: true},
		},
		Fn: func(ctx context.Context, args map[string]interface{}) (string, error) {
			id, _ := args["meeting_id"].(string)
			text, err := repo.MeetingTranscript(ctx, id)
			if err != nil {
				return "", fmt.Errorf("meeting_transcript: %w", err)
			}
			return text, nil
		},
	})

	r.Register(Meta{
		Name:        "meeting_summary",
		Description: "Fetch the hierarchical topic summary for a meeting.",
		Category:    CategoryQuery,
		Params: map[string]ParamSpec{
			"meeting_id": {Type: "string", Description: "Meeting UUID", Required: true},
		},
		Fn: func(ctx context.Context, args map[string]interface{}) (string, error) {
			id, _ := args["meeting_id"].(string)
			text, err := repo.MeetingSummary(ctx, id)
			if err != nil {
				return "", fmt.Errorf("meeting_summary: %w", err)
			}
			return text, nil
		},
	})
}

func marshalToolResult(v interface{}) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal tool result: %w", err)
	}
	return string(b), nil
}
