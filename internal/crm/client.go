package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/shiftpages/funneltrace/internal/model"
)

const upsertPathFormat = "/api/v2/workspaces/%s/contacts/upsert"

const maxErrorBodySize = 4 * 1024

// Client talks to the funnel-management CRM API.
type Client struct {
	client      *http.Client
	baseURL     string
	workspaceID string
	apiKey      string
	tagIDs      []int
	logger      *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets the HTTP client used for CRM calls.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// WithLogger sets a custom logger for the client.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithDefaultTags sets the tag IDs applied to contacts that carry none
// of their own.
func WithDefaultTags(tagIDs []int) ClientOption {
	return func(c *Client) {
		c.tagIDs = tagIDs
	}
}

// NewClient creates a CRM client for one workspace. apiKey is sent as a
// bearer token on every request.
func NewClient(baseURL, workspaceID, apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		client:      http.DefaultClient,
		baseURL:     strings.TrimRight(baseURL, "/"),
		workspaceID: workspaceID,
		apiKey:      apiKey,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		c.logger = slog.Default()
	}

	return c
}

// wireContact is the CRM upsert payload for one contact.
type wireContact struct {
	EmailAddress string            `json:"email_address"`
	FirstName    string            `json:"first_name,omitempty"`
	LastName     string            `json:"last_name,omitempty"`
	PhoneNumber  string            `json:"phone_number,omitempty"`
	TagIDs       []int             `json:"tag_ids,omitempty"`
	Fields       map[string]string `json:"fields,omitempty"`
}

// UpsertContact creates or updates the CRM record keyed on the
// contact's email address. Contacts without an email are skipped
// without error.
func (c *Client) UpsertContact(ctx context.Context, contact model.Contact) error {
	if contact.Email == "" {
		c.logger.Debug("contact skipped, no email address")
		return nil
	}

	tagIDs := contact.TagIDs
	if len(tagIDs) == 0 {
		tagIDs = c.tagIDs
	}

	body, err := json.Marshal(struct {
		Contact wireContact `json:"contact"`
	}{
		Contact: wireContact{
			EmailAddress: contact.Email,
			FirstName:    contact.FirstName,
			LastName:     contact.LastName,
			PhoneNumber:  contact.Phone,
			TagIDs:       tagIDs,
			Fields:       contact.Fields,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to encode contact: %w", err)
	}

	url := c.baseURL + fmt.Sprintf(upsertPathFormat, c.workspaceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build upsert request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("contact upsert failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return fmt.Errorf("contact upsert failed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	c.logger.Debug("contact upserted", "workspace", c.workspaceID)
	return nil
}

// ContactFromAttributes projects page attributes and an optional
// resolved location into a CRM contact. Location fields prefer the
// explicit URL parameters over the resolved values.
func ContactFromAttributes(attrs model.ContextAttributes, loc *model.GeoContext) model.Contact {
	fields := map[string]string{}

	setField := func(key, value string) {
		if value != "" {
			fields[key] = value
		}
	}

	setField("source", attrs.SourceURL)
	setField("utm_source", attrs.UTMSource)
	setField("utm_medium", attrs.UTMMedium)
	setField("utm_campaign", attrs.UTMCampaign)
	setField("referrer", attrs.Referrer)

	country := attrs.Country
	if country == "" && loc != nil && loc.Country != model.UnknownLocation {
		country = loc.Country
	}
	setField("country", country)
	if loc != nil && loc.City != model.UnknownLocation {
		setField("city", loc.City)
	}

	if len(fields) == 0 {
		fields = nil
	}

	return model.Contact{
		Email:     attrs.Email,
		FirstName: attrs.FirstName,
		LastName:  attrs.LastName,
		Phone:     attrs.Phone,
		Fields:    fields,
	}
}

// ContactFromRegistration builds a CRM contact from submitted
// registration form fields. Field names follow the registration form
// conventions; unknown fields become custom attribution fields.
func ContactFromRegistration(fields map[string]string) model.Contact {
	contact := model.Contact{Fields: map[string]string{}}

	var fullName string
	for key, value := range fields {
		if value == "" {
			continue
		}
		switch strings.ToLower(key) {
		case "email", "email_address":
			contact.Email = value
		case "first_name", "firstname":
			contact.FirstName = value
		case "last_name", "lastname":
			contact.LastName = value
		case "phone", "phone_number":
			contact.Phone = value
		case "name", "full_name":
			fullName = value
		default:
			contact.Fields[key] = value
		}
	}

	// A combined name only fills in what the split fields didn't supply.
	if fullName != "" && contact.FirstName == "" {
		first, last, found := strings.Cut(fullName, " ")
		contact.FirstName = first
		if found && contact.LastName == "" {
			contact.LastName = last
		}
	}

	if len(contact.Fields) == 0 {
		contact.Fields = nil
	}

	return contact
}
