// Package mcpserver registers MCP tools that expose the seven.io API.
// Every tool is a thin wrapper: it maps its arguments onto an HTTP
// verb and path and hands the call to the authenticated gateway
// client. All protocol state lives in the auth subsystem.
package mcpserver

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Gateway is the authenticated HTTP client the tools call through.
type Gateway interface {
	Get(ctx context.Context, path string, query url.Values) (json.RawMessage, error)
	Post(ctx context.Context, path string, payload map[string]any, form bool) (json.RawMessage, error)
	Patch(ctx context.Context, path string, payload map[string]any, form bool) (json.RawMessage, error)
	Delete(ctx context.Context, path string, query url.Values) (json.RawMessage, error)
}

// RegisterTools adds all seven.io tools to the given MCP server.
func RegisterTools(server *mcp.Server, gw Gateway) {
	registerMessagingTools(server, gw)
	registerInfoTools(server, gw)
	registerResourceTools(server, gw)
}

// rawResult wraps the gateway's JSON response as text content.
func rawResult(raw json.RawMessage) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(raw)}},
	}
}

// toPayload converts a typed input into the map payload the client
// expects. omitempty tags keep unset optionals out of the request.
func toPayload(v any) map[string]any {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}

	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil
	}

	return m
}

// --- Messaging: SMS, RCS, voice ---

// SMSFile is a file attachment for an SMS.
type SMSFile struct {
	Name     string `json:"name" jsonschema:"required,file name"`
	Contents string `json:"contents" jsonschema:"required,base64 encoded file content"`
	Validity int    `json:"validity,omitempty" jsonschema:"file deletion period in days"`
	Password string `json:"password,omitempty" jsonschema:"password to access the file"`
}

// SendSMSInput holds parameters for send_sms.
type SendSMSInput struct {
	To                  []string  `json:"to" jsonschema:"required,recipient phone numbers"`
	Text                string    `json:"text" jsonschema:"required,SMS message text"`
	From                string    `json:"from,omitempty" jsonschema:"sender ID (alphanumeric or phone number)"`
	Delay               string    `json:"delay,omitempty" jsonschema:"delayed sending timestamp (Unix timestamp or ISO 8601)"`
	Debug               bool      `json:"debug,omitempty" jsonschema:"enable debug mode (no actual sending)"`
	Flash               bool      `json:"flash,omitempty" jsonschema:"send as flash SMS"`
	Unicode             bool      `json:"unicode,omitempty" jsonschema:"enable unicode mode"`
	UTF8                bool      `json:"utf8,omitempty" jsonschema:"enable UTF-8 encoding"`
	Details             bool      `json:"details,omitempty" jsonschema:"return detailed response"`
	ReturnMsgID         bool      `json:"return_msg_id,omitempty" jsonschema:"return message ID"`
	PerformanceTracking bool      `json:"performance_tracking,omitempty" jsonschema:"enable performance tracking"`
	Label               string    `json:"label,omitempty" jsonschema:"custom label for the message"`
	ForeignID           string    `json:"foreign_id,omitempty" jsonschema:"custom ID for tracking"`
	TTL                 int       `json:"ttl,omitempty" jsonschema:"time to live in minutes"`
	UDH                 string    `json:"udh,omitempty" jsonschema:"user data header for binary SMS"`
	IsBinary            bool      `json:"is_binary,omitempty" jsonschema:"send as binary SMS"`
	Files               []SMSFile `json:"files,omitempty" jsonschema:"file attachments"`
}

// DeleteSMSInput holds parameters for delete_sms.
type DeleteSMSInput struct {
	IDs []string `json:"ids" jsonschema:"required,SMS message IDs to delete"`
}

// RCSSuggestion is a suggested reply or action on an RCS message.
type RCSSuggestion struct {
	Text   string `json:"text" jsonschema:"required,suggestion text"`
	Action string `json:"action,omitempty" jsonschema:"suggestion action"`
}

// SendRCSInput holds parameters for send_rcs.
type SendRCSInput struct {
	To                  string          `json:"to" jsonschema:"required,recipient phone number"`
	Text                string          `json:"text,omitempty" jsonschema:"message text"`
	Media               string          `json:"media,omitempty" jsonschema:"media URL"`
	Suggestions         []RCSSuggestion `json:"suggestions,omitempty" jsonschema:"suggested replies and actions"`
	Orientation         string          `json:"orientation,omitempty" jsonschema:"card orientation: horizontal or vertical"`
	From                string          `json:"from,omitempty" jsonschema:"RCS agent to send from"`
	ForeignID           string          `json:"foreign_id,omitempty" jsonschema:"custom ID for tracking"`
	Delay               string          `json:"delay,omitempty" jsonschema:"delayed sending timestamp"`
	TTL                 int             `json:"ttl,omitempty" jsonschema:"time to live in minutes"`
	Label               string          `json:"label,omitempty" jsonschema:"custom label"`
	PerformanceTracking bool            `json:"performance_tracking,omitempty" jsonschema:"enable performance tracking"`
}

// DeleteRCSInput holds parameters for delete_rcs.
type DeleteRCSInput struct {
	ID string `json:"id" jsonschema:"required,RCS message ID to delete"`
}

// RCSEventInput holds parameters for rcs_event.
type RCSEventInput struct {
	EventType string `json:"event_type" jsonschema:"required,event type: IS_TYPING or READ"`
	Phone     string `json:"phone,omitempty" jsonschema:"recipient phone number (IS_TYPING)"`
	MessageID string `json:"message_id,omitempty" jsonschema:"message ID the event refers to (READ)"`
}

// SendVoiceInput holds parameters for send_voice.
type SendVoiceInput struct {
	To        []string `json:"to" jsonschema:"required,recipient phone numbers"`
	Text      string   `json:"text" jsonschema:"required,text to read out or TTS XML"`
	From      string   `json:"from,omitempty" jsonschema:"caller ID"`
	XML       bool     `json:"xml,omitempty" jsonschema:"interpret text as XML"`
	Debug     bool     `json:"debug,omitempty" jsonschema:"enable debug mode"`
	Ringtime  int      `json:"ringtime,omitempty" jsonschema:"seconds to ring before hangup"`
	ForeignID string   `json:"foreign_id,omitempty" jsonschema:"custom ID for tracking"`
}

// HangupVoiceInput holds parameters for hangup_voice.
type HangupVoiceInput struct {
	CallID string `json:"call_id" jsonschema:"required,ID of the active call"`
}

func registerMessagingTools(server *mcp.Server, gw Gateway) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "send_sms",
		Description: "Send an SMS message to one or multiple recipients",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input SendSMSInput) (*mcp.CallToolResult, any, error) {
		raw, err := gw.Post(ctx, "/sms", toPayload(input), false)
		if err != nil {
			return nil, nil, err
		}
		return rawResult(raw), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "delete_sms",
		Description: "Delete scheduled SMS message(s)",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input DeleteSMSInput) (*mcp.CallToolResult, any, error) {
		q := url.Values{}
		for _, id := range input.IDs {
			q.Add("ids[]", id)
		}
		raw, err := gw.Delete(ctx, "/sms", q)
		if err != nil {
			return nil, nil, err
		}
		return rawResult(raw), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "send_rcs",
		Description: "Send an RCS (Rich Communication Services) message",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input SendRCSInput) (*mcp.CallToolResult, any, error) {
		raw, err := gw.Post(ctx, "/rcs/messages", toPayload(input), false)
		if err != nil {
			return nil, nil, err
		}
		return rawResult(raw), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "delete_rcs",
		Description: "Delete a scheduled RCS message",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input DeleteRCSInput) (*mcp.CallToolResult, any, error) {
		raw, err := gw.Delete(ctx, "/rcs/messages/"+url.PathEscape(input.ID), nil)
		if err != nil {
			return nil, nil, err
		}
		return rawResult(raw), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "rcs_event",
		Description: "Publish an RCS event (typing indicator or read receipt)",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input RCSEventInput) (*mcp.CallToolResult, any, error) {
		raw, err := gw.Post(ctx, "/rcs/events", rcsEventPayload(input), false)
		if err != nil {
			return nil, nil, err
		}
		return rawResult(raw), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "send_voice",
		Description: "Initiate a text-to-speech voice call",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input SendVoiceInput) (*mcp.CallToolResult, any, error) {
		raw, err := gw.Post(ctx, "/voice", toPayload(input), false)
		if err != nil {
			return nil, nil, err
		}
		return rawResult(raw), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "hangup_voice",
		Description: "Hang up an active voice call",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input HangupVoiceInput) (*mcp.CallToolResult, any, error) {
		raw, err := gw.Post(ctx, "/voice/"+url.PathEscape(input.CallID)+"/hangup", nil, false)
		if err != nil {
			return nil, nil, err
		}
		return rawResult(raw), nil, nil
	})
}

// rcsEventPayload maps tool arguments onto the /rcs/events request
// shape: event_type becomes event, IS_TYPING addresses the recipient
// as "to", READ names the message as "msg_id".
func rcsEventPayload(input RCSEventInput) map[string]any {
	payload := map[string]any{"event": input.EventType}

	if input.Phone != "" {
		if input.EventType == "IS_TYPING" {
			payload["to"] = input.Phone
		} else {
			payload["phone"] = input.Phone
		}
	}

	if input.MessageID != "" {
		if input.EventType == "READ" {
			payload["msg_id"] = input.MessageID
		} else {
			payload["message_id"] = input.MessageID
		}
	}

	return payload
}
