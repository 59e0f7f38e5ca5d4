package mcpserver

import (
	"context"
	"net/url"
	"strconv"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// --- Lookups, account, journal, sender validation ---

// LookupInput holds the phone number for the lookup tools.
type LookupInput struct {
	Number string `json:"number" jsonschema:"required,phone number in international format"`
}

// PricingInput holds parameters for get_pricing.
type PricingInput struct {
	Country string `json:"country,omitempty" jsonschema:"ISO country code to restrict pricing to"`
}

// AnalyticsInput holds parameters for get_analytics.
type AnalyticsInput struct {
	Start       string `json:"start,omitempty" jsonschema:"start date (YYYY-MM-DD)"`
	End         string `json:"end,omitempty" jsonschema:"end date (YYYY-MM-DD)"`
	GroupBy     string `json:"group_by,omitempty" jsonschema:"grouping: date, label, subaccount or country"`
	Label       string `json:"label,omitempty" jsonschema:"restrict to a message label"`
	Subaccounts string `json:"subaccounts,omitempty" jsonschema:"restrict to specific subaccounts"`
}

// StatusInput holds parameters for get_status.
type StatusInput struct {
	ID string `json:"id" jsonschema:"required,message ID to query delivery status for"`
}

// JournalInput holds shared filters for the logbook tools.
type JournalInput struct {
	ID       string `json:"id,omitempty" jsonschema:"restrict to a single message ID"`
	To       string `json:"to,omitempty" jsonschema:"restrict to a recipient number"`
	State    string `json:"state,omitempty" jsonschema:"restrict to a delivery state"`
	DateFrom string `json:"date_from,omitempty" jsonschema:"start date (YYYY-MM-DD)"`
	DateTo   string `json:"date_to,omitempty" jsonschema:"end date (YYYY-MM-DD)"`
	Limit    int    `json:"limit,omitempty" jsonschema:"maximum number of entries"`
}

// ValidateSenderInput holds parameters for validate_sender.
type ValidateSenderInput struct {
	Number   string `json:"number" jsonschema:"required,phone number to validate as caller ID"`
	Callback string `json:"callback,omitempty" jsonschema:"callback URL invoked with the validation code"`
}

func (j JournalInput) query() url.Values {
	q := url.Values{}

	set := func(key, val string) {
		if val != "" {
			q.Set(key, val)
		}
	}

	set("id", j.ID)
	set("to", j.To)
	set("state", j.State)
	set("date_from", j.DateFrom)
	set("date_to", j.DateTo)

	if j.Limit > 0 {
		q.Set("limit", strconv.Itoa(j.Limit))
	}

	return q
}

func registerInfoTools(server *mcp.Server, gw Gateway) {
	lookups := []struct {
		name, path, description string
	}{
		{"lookup_format", "/lookup/format", "Validate phone number format"},
		{"lookup_rcs", "/lookup/rcs", "Check RCS capabilities for a phone number"},
		{"lookup_hlr", "/lookup/hlr", "Perform Home Location Register lookup (network info, roaming status)"},
		{"lookup_mnp", "/lookup/mnp", "Perform Mobile Number Portability lookup (current carrier)"},
		{"lookup_cnam", "/lookup/cnam", "Perform Caller ID Name lookup"},
	}

	for _, l := range lookups {
		path := l.path
		mcp.AddTool(server, &mcp.Tool{
			Name:        l.name,
			Description: l.description,
		}, func(ctx context.Context, _ *mcp.CallToolRequest, input LookupInput) (*mcp.CallToolResult, any, error) {
			raw, err := gw.Get(ctx, path, url.Values{"number": {input.Number}})
			if err != nil {
				return nil, nil, err
			}
			return rawResult(raw), nil, nil
		})
	}

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_balance",
		Description: "Get the current account balance",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, any, error) {
		raw, err := gw.Get(ctx, "/balance", nil)
		if err != nil {
			return nil, nil, err
		}
		return rawResult(raw), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_pricing",
		Description: "Get SMS pricing, optionally restricted to one country",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input PricingInput) (*mcp.CallToolResult, any, error) {
		q := url.Values{}
		if input.Country != "" {
			q.Set("country", input.Country)
		}
		raw, err := gw.Get(ctx, "/pricing", q)
		if err != nil {
			return nil, nil, err
		}
		return rawResult(raw), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_analytics",
		Description: "Get usage analytics for the account",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input AnalyticsInput) (*mcp.CallToolResult, any, error) {
		q := url.Values{}
		set := func(key, val string) {
			if val != "" {
				q.Set(key, val)
			}
		}
		set("start", input.Start)
		set("end", input.End)
		set("group_by", input.GroupBy)
		set("label", input.Label)
		set("subaccounts", input.Subaccounts)
		raw, err := gw.Get(ctx, "/analytics", q)
		if err != nil {
			return nil, nil, err
		}
		return rawResult(raw), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_status",
		Description: "Get the delivery status of a sent message",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input StatusInput) (*mcp.CallToolResult, any, error) {
		raw, err := gw.Get(ctx, "/journal/outbound", url.Values{"id": {input.ID}})
		if err != nil {
			return nil, nil, err
		}
		return rawResult(raw), nil, nil
	})

	journals := []struct {
		name, path, description string
	}{
		{"logbook_outbound", "/journal/outbound", "List sent messages from the journal"},
		{"logbook_inbound", "/journal/inbound", "List received messages from the journal"},
		{"logbook_voice", "/journal/voice", "List voice calls from the journal"},
	}

	for _, j := range journals {
		path := j.path
		mcp.AddTool(server, &mcp.Tool{
			Name:        j.name,
			Description: j.description,
		}, func(ctx context.Context, _ *mcp.CallToolRequest, input JournalInput) (*mcp.CallToolResult, any, error) {
			raw, err := gw.Get(ctx, path, input.query())
			if err != nil {
				return nil, nil, err
			}
			return rawResult(raw), nil, nil
		})
	}

	mcp.AddTool(server, &mcp.Tool{
		Name:        "validate_sender",
		Description: "Validate a phone number for use as a voice caller ID",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input ValidateSenderInput) (*mcp.CallToolResult, any, error) {
		q := url.Values{"number": {input.Number}}
		if input.Callback != "" {
			q.Set("callback", input.Callback)
		}
		raw, err := gw.Get(ctx, "/validate_sender", q)
		if err != nil {
			return nil, nil, err
		}
		return rawResult(raw), nil, nil
	})
}
