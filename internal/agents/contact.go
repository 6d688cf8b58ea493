package agents

import (
	"context"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/presentos/presentos/internal/store"
	"github.com/presentos/presentos/pkg/models"
)

var (
	reContactEmail = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	reContactPhone = regexp.MustCompile(`(?:\+?\d{1,3}[-.\s]?)?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}|\d{10}`)

	contactNamePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?:add|new|create|save)\s+contact\s+(?:named\s+)?([A-Z][a-z]+(?:\s+[A-Z][a-z]+)*)`),
		regexp.MustCompile(`contact\s+(?:named|called)\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)*)`),
		regexp.MustCompile(`(?:add|save)\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)*?)(?:\s+to contacts|\s+as contact)`),
	}
	reCapitalizedName = regexp.MustCompile(`\b([A-Z][a-z]+(?:\s+[A-Z][a-z]+){0,2})\b`)
	reContactCompany  = regexp.MustCompile(`(?:works?\s+at|from|company)\s+([A-Z][A-Za-z\s&.]+?)(?:\s+as|\s+and|,|\.|$)`)
	reContactRole     = regexp.MustCompile(`(?:works?\s+as|role\s+is|position\s+is|title\s+is)\s+(?:a\s+|an\s+)?([a-z\s]+?)(?:\s+at|\s+from|$)`)
)

var contactNameStopWords = map[string]bool{
	"Add": true, "New": true, "Create": true, "Save": true,
	"Contact": true, "Person": true, "Named": true, "Called": true,
	"Email": true, "Phone": true, "Company": true,
	"The": true, "This": true, "That": true,
}

var contactTagKeywords = map[string]string{
	"client": "client", "customer": "client",
	"vendor": "vendor", "supplier": "vendor",
	"colleague": "colleague", "friend": "friend",
	"family": "family", "important": "important", "vip": "vip",
}

// ContactService manages the personal network.
type ContactService struct {
	store store.ContactStore
}

// NewContactService creates the contact collaborator.
func NewContactService(s store.ContactStore) *ContactService {
	return &ContactService{store: s}
}

// ExtractContactInfo pulls contact fields out of free text. Missing fields
// are returned empty.
func ExtractContactInfo(text string) models.Contact {
	var c models.Contact

	if emails := reContactEmail.FindAllString(text, -1); len(emails) > 0 {
		c.Email = emails[0]
	}
	if phone := reContactPhone.FindString(text); phone != "" {
		c.Phone = phone
	}

	for _, pattern := range contactNamePatterns {
		if m := pattern.FindStringSubmatch(text); m != nil {
			candidate := strings.TrimSpace(m[1])
			if !contactNameStopWords[candidate] {
				c.Name = candidate
				break
			}
		}
	}
	if c.Name == "" {
		for _, m := range reCapitalizedName.FindAllString(text, -1) {
			blocked := false
			for _, word := range strings.Fields(m) {
				if contactNameStopWords[word] {
					blocked = true
					break
				}
			}
			if !blocked {
				c.Name = m
				break
			}
		}
	}
	if c.Name == "" && c.Email != "" {
		// Derive a display name from the address local part.
		local := strings.SplitN(c.Email, "@", 2)[0]
		local = strings.NewReplacer(".", " ", "_", " ").Replace(local)
		c.Name = titleWords(local)
	}

	if m := reContactCompany.FindStringSubmatch(text); m != nil {
		c.Company = strings.TrimRight(strings.TrimSpace(m[1]), ".")
	}
	if m := reContactRole.FindStringSubmatch(strings.ToLower(text)); m != nil {
		c.Role = titleWords(strings.TrimSpace(m[1]))
	}

	lower := strings.ToLower(text)
	seen := map[string]bool{}
	for keyword, tag := range contactTagKeywords {
		if strings.Contains(lower, keyword) && !seen[tag] {
			c.Tags = append(c.Tags, tag)
			seen[tag] = true
		}
	}
	return c
}

// Add saves a contact, filling missing fields from rawText extraction.
// Adding an existing name updates it.
func (c *ContactService) Add(ctx context.Context, contact models.Contact, rawText string) *models.ContactResult {
	if rawText != "" {
		extracted := ExtractContactInfo(rawText)
		if contact.Name == "" {
			contact.Name = extracted.Name
		}
		if contact.Email == "" {
			contact.Email = extracted.Email
		}
		if contact.Phone == "" {
			contact.Phone = extracted.Phone
		}
		if contact.Company == "" {
			contact.Company = extracted.Company
		}
		if contact.Role == "" {
			contact.Role = extracted.Role
		}
		if len(contact.Tags) == 0 {
			contact.Tags = extracted.Tags
		}
	}

	if contact.Name == "" {
		return &models.ContactResult{
			Success: false,
			Error:   "no name provided. Try: 'Add contact John Doe'",
		}
	}

	if existing, err := c.store.GetContact(ctx, contact.Name); err == nil {
		contact.ID = existing.ID
		contact.Created = existing.Created
	} else {
		contact.ID = uuid.New().String()
		contact.Created = time.Now()
	}

	if err := c.store.CreateContact(ctx, &contact); err != nil {
		return &models.ContactResult{Success: false, Error: err.Error()}
	}

	log.Info().Str("name", contact.Name).Msg("Contact saved")
	return &models.ContactResult{Success: true, Contact: &contact}
}

// List returns all contacts, optionally filtered to those carrying any of
// the given tags.
func (c *ContactService) List(ctx context.Context, tags []string) ([]models.Contact, error) {
	all, err := c.store.ListContacts(ctx)
	if err != nil {
		return nil, err
	}
	if len(tags) == 0 {
		return all, nil
	}

	want := map[string]bool{}
	for _, t := range tags {
		want[t] = true
	}
	var out []models.Contact
	for _, contact := range all {
		for _, t := range contact.Tags {
			if want[t] {
				out = append(out, contact)
				break
			}
		}
	}
	return out, nil
}

// Search matches the query against name, email, company, and tags.
func (c *ContactService) Search(ctx context.Context, query string) ([]models.Contact, error) {
	all, err := c.store.ListContacts(ctx)
	if err != nil {
		return nil, err
	}

	query = strings.ToLower(query)
	var out []models.Contact
	for _, contact := range all {
		searchable := strings.ToLower(strings.Join(append([]string{
			contact.Name, contact.Email, contact.Company,
		}, contact.Tags...), " "))
		if strings.Contains(searchable, query) {
			out = append(out, contact)
		}
	}
	return out, nil
}

// Delete removes a contact by name.
func (c *ContactService) Delete(ctx context.Context, name string) error {
	return c.store.DeleteContact(ctx, name)
}

// titleWords uppercases the first letter of each space-separated word.
func titleWords(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
