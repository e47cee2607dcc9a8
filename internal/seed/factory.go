// Package seed creates demo data for development databases.
package seed

import (
	"fmt"
	"strings"

	"proposta/internal/models"
	"proposta/internal/service"

	"github.com/brianvoe/gofakeit/v6"
)

// Factory builds realistic inputs with a seeded faker, so a seed value
// always produces the same data.
type Factory struct {
	faker *gofakeit.Faker
}

func NewFactory(seed int64) *Factory {
	return &Factory{faker: gofakeit.New(seed)}
}

func (f *Factory) Profile(userID uint) *models.Profile {
	return &models.Profile{
		ID:          userID,
		Name:        f.faker.Name(),
		CompanyName: f.faker.Company(),
		Location:    fmt.Sprintf("%s, %s", f.faker.City(), f.faker.StateAbr()),
	}
}

func (f *Factory) Proposal(includeContract bool) service.ProposalInput {
	n := f.faker.Number(1, 5)
	items := make([]service.ProposalItemInput, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, service.ProposalItemInput{
			Name:       strings.TrimSpace(f.faker.JobDescriptor() + " " + f.faker.BuzzWord()),
			ValueCents: int64(f.faker.Number(5, 500)) * 1000,
		})
	}
	delivery := f.faker.FutureDate()
	valid := delivery.AddDate(0, 0, -f.faker.Number(1, 10))

	in := service.ProposalInput{
		ClientName:      f.faker.Company(),
		Description:     f.faker.Sentence(12),
		Items:           items,
		DeliveryDate:    &delivery,
		ValidUntil:      &valid,
		AdditionalNotes: f.faker.Sentence(8),
		Template:        f.faker.RandomString([]string{"modern", "classic", "minimal"}),
		IncludeContract: includeContract,
	}
	if includeContract {
		in.ContractContent = f.Contract(in.ClientName)
	}
	return in
}

// Contract renders a short plain-text service agreement for client.
func (f *Factory) Contract(client string) string {
	var b strings.Builder
	b.WriteString("CONTRATO DE PRESTAÇÃO DE SERVIÇOS\n\n")
	fmt.Fprintf(&b, "CONTRATANTE: %s\n\n", client)
	for i := 1; i <= 3; i++ {
		fmt.Fprintf(&b, "CLÁUSULA %d. %s\n\n", i, f.faker.Paragraph(1, 3, 14, " "))
	}
	return b.String()
}

// Signatories returns n signatories with distinct emails.
func (f *Factory) Signatories(n int) []service.SignatoryInput {
	out := make([]service.SignatoryInput, 0, n)
	seen := map[string]bool{}
	for len(out) < n {
		email := strings.ToLower(f.faker.Email())
		if seen[email] {
			continue
		}
		seen[email] = true
		out = append(out, service.SignatoryInput{Name: f.faker.Name(), Email: email})
	}
	return out
}

// Response picks a signatory outcome: mostly signed, sometimes rejected,
// sometimes still pending.
func (f *Factory) Response() models.SignatoryStatus {
	switch r := f.faker.Number(1, 10); {
	case r <= 6:
		return models.SignatoryStatusSigned
	case r == 7:
		return models.SignatoryStatusRejected
	default:
		return models.SignatoryStatusPending
	}
}
