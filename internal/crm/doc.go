// Package crm pushes captured visitor contacts into the marketing CRM.
//
// Registrations and parameter-bearing visits produce a contact upsert
// keyed on the email address, so repeat visits update the existing CRM
// record instead of creating duplicates. Contacts without an email are
// skipped; there is nothing to key the upsert on.
package crm
