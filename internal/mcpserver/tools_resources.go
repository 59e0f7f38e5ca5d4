package mcpserver

import (
	"context"
	"net/url"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// --- Numbers, contacts, groups, subaccounts, webhooks ---

// AvailableNumbersInput holds parameters for get_available_numbers.
type AvailableNumbersInput struct {
	Country        string `json:"country,omitempty" jsonschema:"ISO country code"`
	FeaturesSMS    bool   `json:"features_sms,omitempty" jsonschema:"require SMS capability"`
	FeaturesAPplus bool   `json:"features_a2p_sms,omitempty" jsonschema:"require A2P SMS capability"`
	FeaturesVoice  bool   `json:"features_voice,omitempty" jsonschema:"require voice capability"`
}

// OrderNumberInput holds parameters for order_number.
type OrderNumberInput struct {
	Number          string `json:"number" jsonschema:"required,phone number to order"`
	PaymentInterval string `json:"payment_interval,omitempty" jsonschema:"annually or monthly"`
}

// NumberInput identifies one active number.
type NumberInput struct {
	Number string `json:"number" jsonschema:"required,active phone number"`
}

// UpdateNumberInput holds parameters for update_number.
type UpdateNumberInput struct {
	Number       string `json:"number" jsonschema:"required,active phone number"`
	FriendlyName string `json:"friendly_name,omitempty" jsonschema:"display name for the number"`
	SMSForward   string `json:"sms_forward,omitempty" jsonschema:"forward inbound SMS to this destination"`
	EmailForward string `json:"email_forward,omitempty" jsonschema:"forward inbound SMS to this email"`
}

// ContactInput holds the fields of a contact.
type ContactInput struct {
	Firstname string `json:"firstname,omitempty" jsonschema:"first name"`
	Lastname  string `json:"lastname,omitempty" jsonschema:"last name"`
	Mobile    string `json:"mobile_number,omitempty" jsonschema:"mobile phone number"`
	Home      string `json:"home_number,omitempty" jsonschema:"home phone number"`
	Email     string `json:"email,omitempty" jsonschema:"email address"`
	Address   string `json:"address,omitempty" jsonschema:"postal address"`
	Postcode  string `json:"postal_code,omitempty" jsonschema:"postal code"`
	City      string `json:"city,omitempty" jsonschema:"city"`
	Birthday  string `json:"birthday,omitempty" jsonschema:"birthday (YYYY-MM-DD)"`
	Notes     string `json:"notes,omitempty" jsonschema:"free-form notes"`
}

// ContactIDInput identifies one contact.
type ContactIDInput struct {
	ID string `json:"id" jsonschema:"required,contact ID"`
}

// UpdateContactInput holds parameters for update_contact.
type UpdateContactInput struct {
	ID string `json:"id" jsonschema:"required,contact ID"`
	ContactInput
}

// GroupInput holds the fields of a contact group.
type GroupInput struct {
	Name string `json:"name" jsonschema:"required,group name"`
}

// GroupIDInput identifies one group.
type GroupIDInput struct {
	ID string `json:"id" jsonschema:"required,group ID"`
}

// UpdateGroupInput holds parameters for update_group.
type UpdateGroupInput struct {
	ID   string `json:"id" jsonschema:"required,group ID"`
	Name string `json:"name" jsonschema:"required,new group name"`
}

// CreateSubaccountInput holds parameters for create_subaccount.
type CreateSubaccountInput struct {
	Name  string `json:"name" jsonschema:"required,subaccount name"`
	Email string `json:"email" jsonschema:"required,subaccount owner email"`
}

// UpdateSubaccountInput holds parameters for update_subaccount.
type UpdateSubaccountInput struct {
	ID        string  `json:"id" jsonschema:"required,subaccount ID"`
	Amount    float64 `json:"amount,omitempty" jsonschema:"auto-charge amount"`
	Threshold float64 `json:"threshold,omitempty" jsonschema:"balance threshold triggering auto-charge"`
}

// TransferCreditsInput holds parameters for transfer_credits.
type TransferCreditsInput struct {
	ID     string  `json:"id" jsonschema:"required,subaccount ID"`
	Amount float64 `json:"amount" jsonschema:"required,amount to transfer"`
}

// SubaccountIDInput identifies one subaccount.
type SubaccountIDInput struct {
	ID string `json:"id" jsonschema:"required,subaccount ID"`
}

// CreateWebhookInput holds parameters for create_webhook.
type CreateWebhookInput struct {
	TargetURL     string `json:"target_url" jsonschema:"required,URL to deliver events to"`
	EventType     string `json:"event_type" jsonschema:"required,event type to subscribe to"`
	RequestMethod string `json:"request_method,omitempty" jsonschema:"HTTP method: POST GET or JSON"`
}

// WebhookIDInput identifies one webhook.
type WebhookIDInput struct {
	ID string `json:"id" jsonschema:"required,webhook ID"`
}

func registerResourceTools(server *mcp.Server, gw Gateway) {
	// Numbers.
	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_available_numbers",
		Description: "List phone numbers available for purchase",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input AvailableNumbersInput) (*mcp.CallToolResult, any, error) {
		q := url.Values{}
		if input.Country != "" {
			q.Set("country", input.Country)
		}
		if input.FeaturesSMS {
			q.Set("features_sms", "1")
		}
		if input.FeaturesAPplus {
			q.Set("features_a2p_sms", "1")
		}
		if input.FeaturesVoice {
			q.Set("features_voice", "1")
		}
		raw, err := gw.Get(ctx, "/numbers/available", q)
		if err != nil {
			return nil, nil, err
		}
		return rawResult(raw), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "order_number",
		Description: "Order an available phone number",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input OrderNumberInput) (*mcp.CallToolResult, any, error) {
		raw, err := gw.Post(ctx, "/numbers/order", toPayload(input), false)
		if err != nil {
			return nil, nil, err
		}
		return rawResult(raw), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_active_numbers",
		Description: "List phone numbers on the account",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, any, error) {
		raw, err := gw.Get(ctx, "/numbers/active", nil)
		if err != nil {
			return nil, nil, err
		}
		return rawResult(raw), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_number",
		Description: "Get details of one active phone number",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input NumberInput) (*mcp.CallToolResult, any, error) {
		raw, err := gw.Get(ctx, "/numbers/active/"+url.PathEscape(input.Number), nil)
		if err != nil {
			return nil, nil, err
		}
		return rawResult(raw), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_number",
		Description: "Update settings of an active phone number",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input UpdateNumberInput) (*mcp.CallToolResult, any, error) {
		payload := toPayload(input)
		delete(payload, "number")
		raw, err := gw.Patch(ctx, "/numbers/active/"+url.PathEscape(input.Number), payload, false)
		if err != nil {
			return nil, nil, err
		}
		return rawResult(raw), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "delete_number",
		Description: "Cancel an active phone number",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input NumberInput) (*mcp.CallToolResult, any, error) {
		raw, err := gw.Delete(ctx, "/numbers/active/"+url.PathEscape(input.Number), nil)
		if err != nil {
			return nil, nil, err
		}
		return rawResult(raw), nil, nil
	})

	// Contacts. The contacts and groups resources take form-encoded
	// bodies, unlike the messaging endpoints.
	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_contacts",
		Description: "List all contacts",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, any, error) {
		raw, err := gw.Get(ctx, "/contacts", nil)
		if err != nil {
			return nil, nil, err
		}
		return rawResult(raw), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "create_contact",
		Description: "Create a new contact",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input ContactInput) (*mcp.CallToolResult, any, error) {
		raw, err := gw.Post(ctx, "/contacts", toPayload(input), true)
		if err != nil {
			return nil, nil, err
		}
		return rawResult(raw), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_contact",
		Description: "Get one contact by ID",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input ContactIDInput) (*mcp.CallToolResult, any, error) {
		raw, err := gw.Get(ctx, "/contacts/"+url.PathEscape(input.ID), nil)
		if err != nil {
			return nil, nil, err
		}
		return rawResult(raw), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_contact",
		Description: "Update an existing contact",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input UpdateContactInput) (*mcp.CallToolResult, any, error) {
		payload := toPayload(input.ContactInput)
		raw, err := gw.Patch(ctx, "/contacts/"+url.PathEscape(input.ID), payload, true)
		if err != nil {
			return nil, nil, err
		}
		return rawResult(raw), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "delete_contact",
		Description: "Delete a contact",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input ContactIDInput) (*mcp.CallToolResult, any, error) {
		raw, err := gw.Delete(ctx, "/contacts/"+url.PathEscape(input.ID), nil)
		if err != nil {
			return nil, nil, err
		}
		return rawResult(raw), nil, nil
	})

	// Groups.
	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_groups",
		Description: "List all contact groups",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, any, error) {
		raw, err := gw.Get(ctx, "/groups", nil)
		if err != nil {
			return nil, nil, err
		}
		return rawResult(raw), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "create_group",
		Description: "Create a new contact group",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input GroupInput) (*mcp.CallToolResult, any, error) {
		raw, err := gw.Post(ctx, "/groups", toPayload(input), true)
		if err != nil {
			return nil, nil, err
		}
		return rawResult(raw), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_group",
		Description: "Get one contact group by ID",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input GroupIDInput) (*mcp.CallToolResult, any, error) {
		raw, err := gw.Get(ctx, "/groups/"+url.PathEscape(input.ID), nil)
		if err != nil {
			return nil, nil, err
		}
		return rawResult(raw), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_group",
		Description: "Rename a contact group",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input UpdateGroupInput) (*mcp.CallToolResult, any, error) {
		raw, err := gw.Patch(ctx, "/groups/"+url.PathEscape(input.ID), map[string]any{"name": input.Name}, true)
		if err != nil {
			return nil, nil, err
		}
		return rawResult(raw), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "delete_group",
		Description: "Delete a contact group",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input GroupIDInput) (*mcp.CallToolResult, any, error) {
		raw, err := gw.Delete(ctx, "/groups/"+url.PathEscape(input.ID), nil)
		if err != nil {
			return nil, nil, err
		}
		return rawResult(raw), nil, nil
	})

	// Subaccounts route every operation through one endpoint with an
	// action query parameter.
	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_subaccounts",
		Description: "List all subaccounts",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, any, error) {
		raw, err := gw.Get(ctx, "/subaccounts", url.Values{"action": {"read"}})
		if err != nil {
			return nil, nil, err
		}
		return rawResult(raw), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "create_subaccount",
		Description: "Create a new subaccount",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input CreateSubaccountInput) (*mcp.CallToolResult, any, error) {
		raw, err := gw.Post(ctx, "/subaccounts?action=create", toPayload(input), false)
		if err != nil {
			return nil, nil, err
		}
		return rawResult(raw), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_subaccount",
		Description: "Update auto-charge settings of a subaccount",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input UpdateSubaccountInput) (*mcp.CallToolResult, any, error) {
		raw, err := gw.Post(ctx, "/subaccounts?action=update", toPayload(input), false)
		if err != nil {
			return nil, nil, err
		}
		return rawResult(raw), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "transfer_credits",
		Description: "Transfer credits to a subaccount",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input TransferCreditsInput) (*mcp.CallToolResult, any, error) {
		raw, err := gw.Post(ctx, "/subaccounts?action=transfer_credits", toPayload(input), false)
		if err != nil {
			return nil, nil, err
		}
		return rawResult(raw), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "delete_subaccount",
		Description: "Delete a subaccount",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input SubaccountIDInput) (*mcp.CallToolResult, any, error) {
		raw, err := gw.Post(ctx, "/subaccounts?action=delete", map[string]any{"id": input.ID}, false)
		if err != nil {
			return nil, nil, err
		}
		return rawResult(raw), nil, nil
	})

	// Webhooks.
	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_webhooks",
		Description: "List all registered webhooks",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, any, error) {
		raw, err := gw.Get(ctx, "/hooks", nil)
		if err != nil {
			return nil, nil, err
		}
		return rawResult(raw), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "create_webhook",
		Description: "Register a webhook for event delivery",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input CreateWebhookInput) (*mcp.CallToolResult, any, error) {
		raw, err := gw.Post(ctx, "/hooks", toPayload(input), false)
		if err != nil {
			return nil, nil, err
		}
		return rawResult(raw), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "delete_webhook",
		Description: "Delete a registered webhook",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input WebhookIDInput) (*mcp.CallToolResult, any, error) {
		raw, err := gw.Delete(ctx, "/hooks", url.Values{"id": {input.ID}})
		if err != nil {
			return nil, nil, err
		}
		return rawResult(raw), nil, nil
	})
}
