package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/biblionet/biblionet-backend/internal/app"
	"github.com/biblionet/biblionet-backend/internal/auth"
	"github.com/biblionet/biblionet-backend/internal/catalog"
	"github.com/biblionet/biblionet-backend/internal/loanrules"
	"github.com/biblionet/biblionet-backend/internal/suppliers"
	"github.com/biblionet/biblionet-backend/pkg/enums"
	pkgerrors "github.com/biblionet/biblionet-backend/pkg/errors"
)

// SeedFile is the YAML layout accepted by `admin seed`.
type SeedFile struct {
	Admin     SeedStaff      `yaml:"admin"`
	LoanRule  *SeedLoanRule  `yaml:"loan_rule"`
	Books     []SeedBook     `yaml:"books"`
	Suppliers []SeedSupplier `yaml:"suppliers"`
}

type SeedStaff struct {
	FirstName string `yaml:"first_name"`
	LastName  string `yaml:"last_name"`
	Email     string `yaml:"email"`
	Password  string `yaml:"password"`
}

type SeedLoanRule struct {
	TermDays       int    `yaml:"term_days"`
	MaxActiveLoans int    `yaml:"max_active_loans"`
	DailyFee       string `yaml:"daily_fee"`
	Description    string `yaml:"description"`
}

type SeedBook struct {
	ISBN            string `yaml:"isbn"`
	Title           string `yaml:"title"`
	Author          string `yaml:"author"`
	Category        string `yaml:"category"`
	Publisher       string `yaml:"publisher"`
	PublicationYear int    `yaml:"publication_year"`
	Stock           int    `yaml:"stock"`
	SalePrice       string `yaml:"sale_price"`
	TaxPercent      string `yaml:"tax_percent"`
}

type SeedSupplier struct {
	Name    string `yaml:"name"`
	Contact string `yaml:"contact"`
	Email   string `yaml:"email"`
	Phone   string `yaml:"phone"`
}

// ParseSeed decodes and checks a seed document.
func ParseSeed(r io.Reader) (*SeedFile, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var seed SeedFile
	if err := dec.Decode(&seed); err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	if strings.TrimSpace(seed.Admin.Email) == "" {
		return nil, fmt.Errorf("seed: admin.email is required")
	}
	for i, b := range seed.Books {
		if strings.TrimSpace(b.ISBN) == "" {
			return nil, fmt.Errorf("seed: books[%d].isbn is required", i)
		}
	}
	return &seed, nil
}

// Input converts the seed row into a catalog input.
func (b SeedBook) Input() (catalog.BookInput, error) {
	in := catalog.BookInput{
		ISBN:            b.ISBN,
		Title:           b.Title,
		Author:          b.Author,
		Category:        b.Category,
		Publisher:       b.Publisher,
		PublicationYear: b.PublicationYear,
	}
	stock := b.Stock
	in.Stock = &stock
	if b.SalePrice != "" {
		price, err := decimal.NewFromString(b.SalePrice)
		if err != nil {
			return in, fmt.Errorf("book %s: sale_price: %w", b.ISBN, err)
		}
		in.SalePrice = &price
	}
	if b.TaxPercent != "" {
		tax, err := decimal.NewFromString(b.TaxPercent)
		if err != nil {
			return in, fmt.Errorf("book %s: tax_percent: %w", b.ISBN, err)
		}
		in.TaxPercent = &tax
	}
	return in, nil
}

func newSeedCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load an administrator, the loan rule, books and suppliers from YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := os.Open(file)
			if err != nil {
				return err
			}
			defer f.Close()
			seed, err := ParseSeed(f)
			if err != nil {
				return err
			}

			ctx := commandContext(cmd)
			rt, err := bootstrap(ctx, false)
			if err != nil {
				return err
			}
			defer rt.Close()
			return applySeed(ctx, cmd.OutOrStdout(), rt, seed)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "seed.yaml", "seed document")
	return cmd
}

// applySeed is idempotent: rows that already exist are skipped.
func applySeed(ctx context.Context, out io.Writer, rt *app.Runtime, seed *SeedFile) error {
	staff, err := auth.NewStaffRegisterService(auth.StaffRegisterServiceParams{
		Tx:             rt.DB,
		Users:          rt.Domain.Users,
		Audit:          rt.Domain.AuditRepo,
		PasswordConfig: rt.Config.Password,
		Logger:         rt.Logger,
	})
	if err != nil {
		return err
	}

	adminEmail := strings.ToLower(strings.TrimSpace(seed.Admin.Email))
	res, err := staff.Register(ctx, 0, auth.StaffRegisterRequest{
		FirstName: seed.Admin.FirstName,
		LastName:  seed.Admin.LastName,
		Email:     adminEmail,
		Password:  seed.Admin.Password,
		Role:      string(enums.RoleAdmin),
	})
	switch {
	case err == nil:
		fmt.Fprintf(out, "admin %s created\n", adminEmail)
		if res.TemporaryPassword != "" {
			fmt.Fprintf(out, "temporary password: %s\n", res.TemporaryPassword)
		}
	case pkgerrors.IsCode(err, pkgerrors.CodeConflict):
		fmt.Fprintf(out, "admin %s already exists\n", adminEmail)
	default:
		return fmt.Errorf("seed admin: %w", err)
	}

	admin, err := rt.Domain.Users.FindByEmail(ctx, nil, adminEmail)
	if err != nil {
		return fmt.Errorf("load admin: %w", err)
	}
	actor := admin.ID

	if seed.LoanRule != nil {
		_, err := rt.Domain.LoanRules.Update(ctx, actor, loanrules.UpdateInput{
			TermDays:       fmt.Sprint(seed.LoanRule.TermDays),
			MaxActiveLoans: fmt.Sprint(seed.LoanRule.MaxActiveLoans),
			DailyFee:       seed.LoanRule.DailyFee,
			Description:    seed.LoanRule.Description,
		})
		if err != nil {
			return fmt.Errorf("seed loan rule: %w", err)
		}
		fmt.Fprintln(out, "loan rule saved")
	}

	var errs error
	created := 0
	for _, b := range seed.Books {
		in, err := b.Input()
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if _, err := rt.Domain.Catalog.CreateBook(ctx, actor, in); err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
				continue
			}
			errs = multierr.Append(errs, fmt.Errorf("book %s: %w", b.ISBN, err))
			continue
		}
		created++
	}
	fmt.Fprintf(out, "books created: %d of %d\n", created, len(seed.Books))

	created = 0
	for _, s := range seed.Suppliers {
		_, err := rt.Domain.Suppliers.Create(ctx, actor, suppliers.SupplierInput{
			Name:    s.Name,
			Contact: s.Contact,
			Email:   s.Email,
			Phone:   s.Phone,
		})
		if err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
				continue
			}
			errs = multierr.Append(errs, fmt.Errorf("supplier %s: %w", s.Name, err))
			continue
		}
		created++
	}
	fmt.Fprintf(out, "suppliers created: %d of %d\n", created, len(seed.Suppliers))
	return errs
}
