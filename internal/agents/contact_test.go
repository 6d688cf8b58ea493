package agents

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/presentos/presentos/internal/store"
	"github.com/presentos/presentos/pkg/models"
)

func newContactService(t *testing.T) *ContactService {
	t.Helper()
	s := store.NewMemoryStore("")
	t.Cleanup(func() { s.Close() })
	return NewContactService(s)
}

func TestExtractContactInfo(t *testing.T) {
	cases := []struct {
		name string
		text string
		want models.Contact
	}{
		{
			name: "explicit add pattern",
			text: "add contact John Doe",
			want: models.Contact{Name: "John Doe"},
		},
		{
			name: "name with email and phone",
			text: "save Jane Smith to contacts, email jane@acme.com phone 555-123-4567",
			want: models.Contact{Name: "Jane Smith", Email: "jane@acme.com", Phone: "555-123-4567"},
		},
		{
			name: "name derived from email",
			text: "add contact with email ravi.kumar@example.com",
			want: models.Contact{Name: "Ravi Kumar", Email: "ravi.kumar@example.com"},
		},
		{
			name: "company and tag",
			text: "add contact Priya Patel, works at Acme Corp, she is an important client",
			want: models.Contact{Name: "Priya Patel", Company: "Acme Corp", Tags: []string{"client", "important"}},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ExtractContactInfo(tc.text)
			assert.Equal(t, tc.want.Name, got.Name)
			if tc.want.Email != "" {
				assert.Equal(t, tc.want.Email, got.Email)
			}
			if tc.want.Phone != "" {
				assert.Equal(t, tc.want.Phone, got.Phone)
			}
			if tc.want.Company != "" {
				assert.Equal(t, tc.want.Company, got.Company)
			}
			for _, tag := range tc.want.Tags {
				assert.Contains(t, got.Tags, tag)
			}
		})
	}
}

func TestAddContactFromText(t *testing.T) {
	c := newContactService(t)

	res := c.Add(context.Background(), models.Contact{}, "add contact Maria Garcia email maria@corp.io")
	require.True(t, res.Success)
	require.NotNil(t, res.Contact)

	assert.Equal(t, "Maria Garcia", res.Contact.Name)
	assert.Equal(t, "maria@corp.io", res.Contact.Email)
	assert.NotEmpty(t, res.Contact.ID)
}

func TestAddContactNoName(t *testing.T) {
	c := newContactService(t)

	res := c.Add(context.Background(), models.Contact{}, "add a contact for me")
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "no name")
}

func TestAddContactUpdateKeepsIDAndCreated(t *testing.T) {
	c := newContactService(t)
	ctx := context.Background()

	first := c.Add(ctx, models.Contact{Name: "Sam Lee", Email: "sam@old.com"}, "")
	require.True(t, first.Success)

	second := c.Add(ctx, models.Contact{Name: "Sam Lee", Email: "sam@new.com"}, "")
	require.True(t, second.Success)

	assert.Equal(t, first.Contact.ID, second.Contact.ID)
	assert.Equal(t, first.Contact.Created.Unix(), second.Contact.Created.Unix())
	assert.Equal(t, "sam@new.com", second.Contact.Email)
}

func TestSearchContacts(t *testing.T) {
	c := newContactService(t)
	ctx := context.Background()

	c.Add(ctx, models.Contact{Name: "Alice Wong", Company: "Initech", Tags: []string{"client"}}, "")
	c.Add(ctx, models.Contact{Name: "Bob Ray", Email: "bob@umbrella.com"}, "")

	byCompany, err := c.Search(ctx, "initech")
	require.NoError(t, err)
	require.Len(t, byCompany, 1)
	assert.Equal(t, "Alice Wong", byCompany[0].Name)

	byTag, err := c.Search(ctx, "client")
	require.NoError(t, err)
	require.Len(t, byTag, 1)

	byEmail, err := c.Search(ctx, "umbrella")
	require.NoError(t, err)
	require.Len(t, byEmail, 1)
	assert.Equal(t, "Bob Ray", byEmail[0].Name)
}

func TestListContactsByTag(t *testing.T) {
	c := newContactService(t)
	ctx := context.Background()

	c.Add(ctx, models.Contact{Name: "Vip One", Tags: []string{"vip"}}, "")
	c.Add(ctx, models.Contact{Name: "Plain Two"}, "")

	vips, err := c.List(ctx, []string{"vip"})
	require.NoError(t, err)
	require.Len(t, vips, 1)
	assert.Equal(t, "Vip One", vips[0].Name)

	all, err := c.List(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestDeleteContact(t *testing.T) {
	c := newContactService(t)
	ctx := context.Background()

	c.Add(ctx, models.Contact{Name: "Gone Soon"}, "")
	require.NoError(t, c.Delete(ctx, "Gone Soon"))

	var notFound *store.ErrNotFound
	err := c.Delete(ctx, "Gone Soon")
	assert.ErrorAs(t, err, &notFound)
}
