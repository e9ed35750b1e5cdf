package model

// Contact is the CRM-facing projection of a visitor: the contact
// details and attribution fields the funnel-management API stores on an
// upserted contact.
type Contact struct {
	// Email is the contact's email address. A contact without an email
	// cannot be upserted and is skipped by the CRM client.
	Email string

	// FirstName, LastName, and Phone are optional contact details.
	FirstName string
	LastName  string
	Phone     string

	// TagIDs are the CRM tags applied on upsert.
	TagIDs []int

	// Fields are the custom attribution fields (source URL, UTM
	// parameters, location, referrer).
	Fields map[string]string
}
